// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package main

import (
	"context"

	accountpg "github.com/acctpool/acctpool/internal/account/postgres"
	"github.com/acctpool/acctpool/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory connects to the database.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, url string) (Pool, error)

	// MigratorFactory creates a migrator for startup migrations.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// APIServerFactory creates the public JSON API server.
	// Default: httpapi.NewServer
	APIServerFactory func(cfg apiServerConfig) (APIServer, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// Pool wraps the pgxpool methods the serve command and repository use.
type Pool interface {
	accountpg.DB
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator wraps the migrator methods used for startup migrations.
type AutoMigrator interface {
	Up() error
	Close() error
}

// APIServer wraps the methods used from httpapi.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
