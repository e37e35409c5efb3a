// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultTokenTTL bounds token validity when configuration does not
// override it.
const DefaultTokenTTL = 30 * time.Minute

// ErrInvalidToken is returned for every verification failure: expired,
// tampered, malformed, or wrongly signed tokens are indistinguishable to the
// caller so the codec cannot be used as an oracle.
var ErrInvalidToken = errors.New("invalid token")

// TokenCodec signs and verifies compact bearer tokens (JWT, HS256) carrying
// the account login as the subject claim. Tokens are signed, not encrypted;
// they hold no secret payload beyond the login.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a codec from the signing secret and token lifetime.
// A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenCodec(secret []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("AUTH_TOKEN_SECRET_MISSING").Errorf("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{secret: secret, ttl: ttl}, nil
}

// Issue signs a token whose subject is the given login, expiring after the
// codec's TTL.
func (c *TokenCodec) Issue(login string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   login,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its subject claim. All
// failures collapse into ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
