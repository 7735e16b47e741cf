// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommand_Help(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"migrate", "--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "--config", "Migrate missing --config flag")
	for _, sub := range []string{"up", "down", "steps", "force", "status"} {
		assert.Contains(t, output, sub, "Migrate help missing %q action", sub)
	}
}

func TestMigrateCommand_Properties(t *testing.T) {
	cmd := NewMigrateCmd()

	assert.Equal(t, "migrate", cmd.Use)
	assert.Contains(t, cmd.Short, "migration", "Short description should mention migrations")
}

func TestMigrateUp_RequiresDatabaseURL(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "up"})

	err := cmd.Execute()
	require.Error(t, err, "migrate up without database.url must fail")
	assert.Contains(t, err.Error(), "database url")
}

func TestMigrateSteps_RejectsNonInteger(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "steps", "abc", "--database.url", "postgres://localhost/db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer")
}

func TestMigrateSteps_RequiresArgument(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "steps"})

	require.Error(t, cmd.Execute())
}

func TestMigrateForce_RejectsNonInteger(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "force", "latest", "--database.url", "postgres://localhost/db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer")
}
