// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/acctpool/acctpool/internal/store"
)

// migrateConfig holds configuration for the migrate subcommands.
type migrateConfig struct {
	databaseURL string
}

// resolveDatabaseURL prefers the flag, falling back to DATABASE_URL.
func (cfg *migrateConfig) resolveDatabaseURL() (string, error) {
	url := cfg.databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return "", oops.Code("CONFIG_INVALID").
			Errorf("database URL is required (--database-url flag or DATABASE_URL environment variable)")
	}
	return url, nil
}

// NewMigrateCmd creates the migrate subcommand tree.
func NewMigrateCmd() *cobra.Command {
	cfg := &migrateConfig{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect schema migrations for the accounts database.`,
	}

	cmd.PersistentFlags().StringVar(&cfg.databaseURL, "database-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cfg, func(m *store.Migrator) error {
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").Wrap(err)
				}
				cmd.Println("Migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cfg, func(m *store.Migrator) error {
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").Wrap(err)
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cfg, func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return oops.Code("MIGRATION_FAILED").Wrap(err)
				}
				if version == 0 && !dirty {
					cmd.Println("No migrations applied")
					return nil
				}
				if dirty {
					cmd.Printf("Version %d (dirty)\n", version)
				} else {
					cmd.Printf("Version %d\n", version)
				}
				return nil
			})
		},
	})

	return cmd
}

// withMigrator runs fn against a migrator and always closes it.
func withMigrator(cfg *migrateConfig, fn func(*store.Migrator) error) error {
	url, err := cfg.resolveDatabaseURL()
	if err != nil {
		return err
	}

	migrator, err := store.NewMigrator(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}
	defer func() { _ = migrator.Close() }()

	return fn(migrator)
}
