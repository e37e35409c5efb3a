// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

// Package account defines the account entity, its lock state machine,
// and the persistence contract the service layer runs on.
package account

import (
	"context"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted plaintext password length.
const MinPasswordLength = 8

// Environment names a deployment environment an account belongs to.
type Environment string

// Valid environments.
const (
	EnvProd    Environment = "prod"
	EnvPreprod Environment = "preprod"
	EnvStage   Environment = "stage"
)

// Valid reports whether the environment is one of the known values.
func (e Environment) Valid() bool {
	switch e {
	case EnvProd, EnvPreprod, EnvStage:
		return true
	}
	return false
}

// DomainType names the domain flavour an account is provisioned for.
type DomainType string

// Valid domain types.
const (
	DomainCanary  DomainType = "canary"
	DomainRegular DomainType = "regular"
)

// Valid reports whether the domain type is one of the known values.
func (d DomainType) Valid() bool {
	switch d {
	case DomainCanary, DomainRegular:
		return true
	}
	return false
}

// Account is a registered credential-bearing resource that test runners can
// reserve exclusively. LockTime is the only field that changes after
// creation: nil means the account is free, non-nil means it is held.
type Account struct {
	ID             ulid.ULID
	CreatedAt      time.Time
	Login          string
	CredentialHash string
	ProjectID      ulid.ULID
	Environment    Environment
	DomainType     DomainType
	LockTime       *time.Time
}

// Locked reports whether the account is currently reserved.
func (a *Account) Locked() bool {
	return a.LockTime != nil
}

// ValidateLogin checks that login parses as an addr-spec email address.
// Addresses with display names ("Name <a@x.com>") are rejected.
func ValidateLogin(login string) error {
	if login == "" {
		return oops.Code("ACCOUNT_INVALID_LOGIN").
			Wrapf(ErrInvalidInput, "login cannot be empty")
	}
	addr, err := mail.ParseAddress(login)
	if err != nil || addr.Address != login {
		return oops.Code("ACCOUNT_INVALID_LOGIN").
			With("login", login).
			Wrapf(ErrInvalidInput, "login must be a valid email address")
	}
	return nil
}

// ValidatePassword checks the plaintext password against length rules.
// Length counts characters, not bytes, so multibyte passwords are not
// over-credited.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Wrapf(ErrInvalidInput, "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Repository manages account persistence. Every mutation is a single atomic
// statement against one row; implementations must not read-then-write.
type Repository interface {
	// Create stores a new account. Returns ErrLoginTaken when the login
	// is already registered.
	Create(ctx context.Context, acct *Account) error

	// GetByID retrieves an account by ID. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByLogin retrieves an account by login (case-sensitive).
	// Returns ErrNotFound when absent.
	GetByLogin(ctx context.Context, login string) (*Account, error)

	// List returns all accounts ordered by creation time.
	List(ctx context.Context) ([]*Account, error)

	// AcquireLock conditionally sets lock_time to at, succeeding only when
	// the row exists and lock_time is currently null. Returns ErrNotFound
	// when no row was updated; callers disambiguate missing vs held.
	AcquireLock(ctx context.Context, id ulid.ULID, at time.Time) (*Account, error)

	// ReleaseLock unconditionally clears lock_time. Releasing a free
	// account succeeds. Returns ErrNotFound when the row does not exist.
	ReleaseLock(ctx context.Context, id ulid.ULID) (*Account, error)
}
