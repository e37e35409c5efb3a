// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the acctpool CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acctpool",
		Short: "Acctpool - shared test account pool service",
		Long: `Acctpool manages a pool of user accounts for end-to-end test runs.
It registers accounts, issues bearer tokens, and hands out exclusive
leases so concurrent test runners never share an account.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
