// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CredentialHasher produces an opaque one-way hash of a plaintext password.
// Satisfied by auth.PasswordHasher implementations.
type CredentialHasher interface {
	Hash(password string) (string, error)
}

// RegisterParams carries validated-at-the-boundary registration input.
// Enum fields are re-validated here so no write path can drift.
type RegisterParams struct {
	Login       string
	Password    string
	ProjectID   ulid.ULID
	Environment Environment
	DomainType  DomainType
}

// Service implements registration and the acquire/release state machine.
// All cross-request mutual exclusion is pushed down to the repository's
// conditional update; the service holds no locks of its own.
type Service struct {
	repo   Repository
	hasher CredentialHasher
	logger *slog.Logger
}

// NewService creates a Service with the default logger.
func NewService(repo Repository, hasher CredentialHasher) (*Service, error) {
	return NewServiceWithLogger(repo, hasher, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(repo Repository, hasher CredentialHasher, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("credential hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{repo: repo, hasher: hasher, logger: logger}, nil
}

// Register validates the input, hashes the password, and creates a free
// account. Returns ErrLoginTaken when the login is already registered.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*Account, error) {
	if err := ValidateLogin(p.Login); err != nil {
		return nil, err
	}
	if err := ValidatePassword(p.Password); err != nil {
		return nil, err
	}
	if !p.Environment.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_ENVIRONMENT").
			With("environment", string(p.Environment)).
			Wrapf(ErrInvalidInput, "environment must be one of prod, preprod, stage")
	}
	if !p.DomainType.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_DOMAIN_TYPE").
			With("domain_type", string(p.DomainType)).
			Wrapf(ErrInvalidInput, "domain_type must be one of canary, regular")
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	acct := &Account{
		ID:             ulid.Make(),
		CreatedAt:      time.Now().UTC(),
		Login:          p.Login,
		CredentialHash: hash,
		ProjectID:      p.ProjectID,
		Environment:    p.Environment,
		DomainType:     p.DomainType,
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account registered",
		"account_id", acct.ID.String(),
		"project_id", acct.ProjectID.String(),
		"environment", string(acct.Environment),
	)
	return acct, nil
}

// Get retrieves a single account.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]*Account, error) {
	return s.repo.List(ctx)
}

// Acquire reserves a free account, stamping lock_time with the current time.
// Exactly one of N concurrent acquires on the same account succeeds; the
// conditional update in the repository is the only synchronization point.
// Returns ErrNotFound or ErrAlreadyLocked on failure.
func (s *Service) Acquire(ctx context.Context, id ulid.ULID) (*Account, error) {
	acct, err := s.repo.AcquireLock(ctx, id, time.Now().UTC())
	if err == nil {
		s.logger.InfoContext(ctx, "account lock acquired",
			"account_id", acct.ID.String(),
			"lock_time", acct.LockTime,
		)
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Zero rows updated: the account is either absent or already held.
	// The follow-up read only classifies the failure; it never mutates.
	if _, getErr := s.repo.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyLocked
}

// Release clears an account's lock unconditionally. A crashed runner can be
// cleaned up without knowing the current lock state, so releasing an already
// free account succeeds and returns the account unchanged.
func (s *Service) Release(ctx context.Context, id ulid.ULID) (*Account, error) {
	acct, err := s.repo.ReleaseLock(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "account lock released", "account_id", acct.ID.String())
	return acct, nil
}
