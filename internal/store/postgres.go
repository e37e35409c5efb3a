// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

// Package store provides database connectivity and schema management.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry policy. Unreachable storage at boot is fatal once the
// retry budget is exhausted.
const (
	connectBaseDelay  = 500 * time.Millisecond
	connectMaxRetries = 5
)

// Connect opens a pgx pool and verifies connectivity with bounded
// exponential backoff. The returned pool is ready for use.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").
			With("operation", "parse database url").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectMaxRetries, retry.NewExponential(connectBaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			slog.Warn("database not reachable yet, retrying", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
