// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateConfig_ResolveDatabaseURL(t *testing.T) {
	t.Run("flag wins over environment", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env/accounts")
		cfg := &migrateConfig{databaseURL: "postgres://flag/accounts"}

		url, err := cfg.resolveDatabaseURL()
		require.NoError(t, err)
		assert.Equal(t, "postgres://flag/accounts", url)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env/accounts")
		cfg := &migrateConfig{}

		url, err := cfg.resolveDatabaseURL()
		require.NoError(t, err)
		assert.Equal(t, "postgres://env/accounts", url)
	})

	t.Run("neither set", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		cfg := &migrateConfig{}

		_, err := cfg.resolveDatabaseURL()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})
}

func TestMigrateCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"migrate", "--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"up", "down", "version"} {
		assert.Contains(t, output, sub, "migrate help missing %q subcommand", sub)
	}
	assert.Contains(t, output, "--database-url")
}

func TestMigrateCommand_NoDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "up"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
