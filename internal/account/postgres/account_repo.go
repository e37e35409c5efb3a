// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

// Package postgres implements account.Repository using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/acctpool/acctpool/internal/account"
)

// DB is the subset of pgxpool.Pool the repository uses. It is satisfied by
// both *pgxpool.Pool and pgxmock.PgxPoolIface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements account.Repository on PostgreSQL. Lock
// transitions are single conditional statements; the row count decides the
// outcome, so two concurrent acquirers can never both observe success.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, created_at, login, credential_hash, project_id, environment, domain_type, lock_time`

// Create stores a new account. A unique-index violation on login is mapped
// to account.ErrLoginTaken; other integrity failures propagate wrapped.
func (r *AccountRepository) Create(ctx context.Context, acct *account.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (
			id, created_at, login, credential_hash,
			project_id, environment, domain_type, lock_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		acct.ID.String(),
		acct.CreatedAt,
		acct.Login,
		acct.CredentialHash,
		acct.ProjectID.String(),
		string(acct.Environment),
		string(acct.DomainType),
		acct.LockTime,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_LOGIN_TAKEN").
				With("login", acct.Login).
				Wrap(account.ErrLoginTaken)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("login", acct.Login).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// GetByLogin retrieves an account by login. Logins compare case-sensitively.
func (r *AccountRepository) GetByLogin(ctx context.Context, login string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE login = $1
	`, login)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("login", login).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_LOGIN_FAILED").
			With("operation", "get account by login").
			Wrap(err)
	}
	return acct, nil
}

// List returns all accounts ordered by creation time.
func (r *AccountRepository) List(ctx context.Context) ([]*account.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	defer rows.Close()

	var accts []*account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account row").
				Wrap(err)
		}
		accts = append(accts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return accts, nil
}

// AcquireLock stamps lock_time on a free account in one conditional
// statement. The WHERE clause is the compare-and-set: when the row is
// missing or already locked no row comes back and account.ErrNotFound is
// returned for the caller to disambiguate.
func (r *AccountRepository) AcquireLock(ctx context.Context, id ulid.ULID, at time.Time) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE accounts
		SET lock_time = $2
		WHERE id = $1 AND lock_time IS NULL
		RETURNING `+accountColumns+`
	`, id.String(), at)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_ACQUIRE_FAILED").
			With("operation", "acquire account lock").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// ReleaseLock clears lock_time unconditionally. The update matches on id
// alone, so releasing a free account is a successful no-op on state.
func (r *AccountRepository) ReleaseLock(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE accounts
		SET lock_time = NULL
		WHERE id = $1
		RETURNING `+accountColumns+`
	`, id.String())

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_RELEASE_FAILED").
			With("operation", "release account lock").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// scanAccount scans a single row into an Account. Callers are responsible
// for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		idStr        string
		createdAt    time.Time
		login        string
		credHash     string
		projectIDStr string
		environment  string
		domainType   string
		lockTime     *time.Time
	)

	err := row.Scan(&idStr, &createdAt, &login, &credHash, &projectIDStr, &environment, &domainType, &lockTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	projectID, err := ulid.Parse(projectIDStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_PROJECT_ID").
			With("project_id", projectIDStr).
			Wrap(err)
	}

	return &account.Account{
		ID:             id,
		CreatedAt:      createdAt,
		Login:          login,
		CredentialHash: credHash,
		ProjectID:      projectID,
		Environment:    account.Environment(environment),
		DomainType:     account.DomainType(domainType),
		LockTime:       lockTime,
	}, nil
}

// Compile-time interface check.
var _ account.Repository = (*AccountRepository)(nil)
