// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

// Package auth provides credential hashing, bearer token issuance, and the
// authentication gate in front of protected operations.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters (OWASP-recommended).
const (
	hashIterations  = 1
	hashMemoryKiB   = 64 * 1024
	hashParallelism = 4
	hashSaltLen     = 16
	hashKeyLen      = 32
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces an opaque salted hash of the password.
	Hash(password string) (string, error)

	// Verify checks the password against a stored hash in constant time
	// with respect to correctness. Returns (true, nil) on match,
	// (false, nil) on mismatch, or an error on a malformed hash.
	Verify(password, hash string) (bool, error)
}

// Argon2idHasher implements PasswordHasher using argon2id with PHC-format
// string encoding.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password with a fresh random salt.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, hashIterations, hashMemoryKiB, hashParallelism, hashKeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hashMemoryKiB,
		hashIterations,
		hashParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify checks the password against a PHC-encoded argon2id hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, iterations, parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if parallelism == 0 || parallelism > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("parallelism %d out of range", parallelism)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(expected) == 0 || len(expected) > 1<<10 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid key length %d", len(expected))
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, uint8(parallelism), uint32(len(expected)))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
