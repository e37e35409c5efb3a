// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/acctpool/acctpool/internal/account"
	accountpg "github.com/acctpool/acctpool/internal/account/postgres"
	"github.com/acctpool/acctpool/internal/auth"
	"github.com/acctpool/acctpool/internal/config"
	"github.com/acctpool/acctpool/internal/httpapi"
	"github.com/acctpool/acctpool/internal/logging"
	"github.com/acctpool/acctpool/internal/observability"
	"github.com/acctpool/acctpool/internal/store"
)

const shutdownTimeout = 5 * time.Second

// apiServerConfig bundles the inputs for building the JSON API server.
type apiServerConfig struct {
	addr     string
	accounts *account.Service
	gate     *auth.Gate
	metrics  *observability.Metrics
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account pool service",
		Long: `Start the account pool service: the JSON API for registration,
login and account leasing, plus the metrics/health endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd, autoMigrate, nil)
		},
	}

	config.Flags(cmd.Flags())
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "run pending database migrations on startup")

	return cmd
}

// runServe starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command, autoMigrate bool, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, url string) (Pool, error) {
			return store.Connect(ctx, url)
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (AutoMigrator, error) {
			return store.NewMigrator(url)
		}
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(c apiServerConfig) (APIServer, error) {
			return httpapi.NewServer(c.addr, c.accounts, c.gate, c.metrics, slog.Default())
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	logging.SetDefault("acctpool", version, cfg.LogFormat)

	slog.Info("starting account pool service",
		"listen_addr", cfg.ListenAddr,
		"log_format", cfg.LogFormat,
	)

	// Database connection failure here is fatal: the service has no
	// degraded mode without its account store.
	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	if autoMigrate {
		if err := runAutoMigration(cfg.DatabaseURL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	repo := accountpg.NewAccountRepository(pool)
	hasher := auth.NewArgon2idHasher()

	codec, err := auth.NewTokenCodec([]byte(cfg.TokenSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}
	gate, err := auth.NewGateWithLogger(repo, hasher, codec, slog.Default())
	if err != nil {
		return err
	}
	accounts, err := account.NewServiceWithLogger(repo, hasher, slog.Default())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func(ctx context.Context) bool {
			return pool.Ping(ctx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer, err := deps.APIServerFactory(apiServerConfig{
		addr:     cfg.ListenAddr,
		accounts: accounts,
		gate:     gate,
		metrics:  metrics,
	})
	if err != nil {
		stopServers(nil, obsServer)
		return err
	}

	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopServers(nil, obsServer)
		return oops.Code("API_START_FAILED").With("addr", cfg.ListenAddr).Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Account pool service started")
	slog.Info("service ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")
	stopServers(apiServer, obsServer)
	slog.Info("shutdown complete")
	return nil
}

// runAutoMigration applies pending migrations before the service accepts
// traffic.
func runAutoMigration(databaseURL string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}

	slog.Info("database migrations applied")
	return nil
}

// monitorServerErrors cancels the run context when a server reports a
// fatal error on its error channel.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string) {
	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

// stopServers shuts down whichever servers are running, tolerating nils.
func stopServers(api APIServer, obs ObservabilityServer) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if api != nil {
		if err := api.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping API server", "error", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}
}
