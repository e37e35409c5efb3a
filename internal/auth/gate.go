// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/acctpool/acctpool/internal/account"
)

// ErrInvalidCredentials is the uniform failure for every authentication
// path: unknown login, wrong password, or a token that fails verification or
// resolution. Which step failed is never disclosed.
var ErrInvalidCredentials = errors.New("could not validate credentials")

// dummyCredentialHash is verified against when a login does not exist so
// that response time stays flat. It is a fake hash that matches no password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyCredentialHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Gate turns raw credentials into a verified account and a bearer token
// back into a request-scoped account.
type Gate struct {
	accounts account.Repository
	hasher   PasswordHasher
	codec    *TokenCodec
	logger   *slog.Logger
}

// NewGate creates a Gate with the default logger.
func NewGate(accounts account.Repository, hasher PasswordHasher, codec *TokenCodec) (*Gate, error) {
	return NewGateWithLogger(accounts, hasher, codec, slog.Default())
}

// NewGateWithLogger creates a Gate with an explicit logger.
func NewGateWithLogger(accounts account.Repository, hasher PasswordHasher, codec *TokenCodec, logger *slog.Logger) (*Gate, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_GATE_INVALID").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_GATE_INVALID").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_GATE_INVALID").Errorf("token codec is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_GATE_INVALID").Errorf("logger is required")
	}
	return &Gate{accounts: accounts, hasher: hasher, codec: codec, logger: logger}, nil
}

// Authenticate verifies a login/password pair and returns the account on
// success. Password verification runs even when the login is unknown to keep
// timing flat across both failure modes.
func (g *Gate) Authenticate(ctx context.Context, login, password string) (*account.Account, error) {
	acct, lookupErr := g.accounts.GetByLogin(ctx, login)

	targetHash := dummyCredentialHash
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = acct.CredentialHash
		exists = true
	case errors.Is(lookupErr, account.ErrNotFound):
		// fall through with the dummy hash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by login").
			Wrap(lookupErr)
	}

	valid, verifyErr := g.hasher.Verify(password, targetHash)
	if verifyErr != nil && exists {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !exists || !valid {
		return nil, ErrInvalidCredentials
	}

	return acct, nil
}

// Login authenticates and issues a bearer token for the account's login.
func (g *Gate) Login(ctx context.Context, login, password string) (string, error) {
	acct, err := g.Authenticate(ctx, login, password)
	if err != nil {
		return "", err
	}

	token, err := g.codec.Issue(acct.Login)
	if err != nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	g.logger.InfoContext(ctx, "account logged in", "account_id", acct.ID.String())
	return token, nil
}

// Identify resolves a bearer token to the account it was issued for.
// Verification failure and resolution failure are both ErrInvalidCredentials.
func (g *Gate) Identify(ctx context.Context, token string) (*account.Account, error) {
	login, err := g.codec.Verify(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	acct, err := g.accounts.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, oops.Code("AUTH_IDENTIFY_FAILED").
			With("operation", "resolve token subject").
			Wrap(err)
	}
	return acct, nil
}
