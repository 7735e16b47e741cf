// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fatecmeets/fatecmeets/internal/config"
	"github.com/fatecmeets/fatecmeets/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with its actions.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long:  `Apply, roll back and inspect the embedded SQL migrations.`,
	}

	cmd.PersistentFlags().String("config", defaultConfigFile, "config file path")
	cmd.PersistentFlags().String("database.url", "", "PostgreSQL connection URL")

	cmd.AddCommand(
		newMigrateUpCmd(),
		newMigrateDownCmd(),
		newMigrateStepsCmd(),
		newMigrateForceCmd(),
		newMigrateStatusCmd(),
	)

	return cmd
}

// openMigrator loads config from the command's flags and opens a migrator.
func openMigrator(cmd *cobra.Command) (*store.Migrator, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags(), cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	return store.NewMigrator(cfg.Database.URL)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer migrator.Close()

			if err := migrator.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer migrator.Close()

			if err := migrator.Down(); err != nil {
				return err
			}
			cmd.Println("Migrations rolled back")
			return nil
		},
	}
}

func newMigrateStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps <n>",
		Short: "Apply n migrations (negative rolls back)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_ARGUMENT").
					With("argument", args[0]).
					Errorf("steps takes an integer")
			}

			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer migrator.Close()

			if err := migrator.Steps(n); err != nil {
				return err
			}
			cmd.Printf("Applied %d step(s)\n", n)
			return nil
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag. Use
after manually repairing a failed migration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_ARGUMENT").
					With("argument", args[0]).
					Errorf("force takes an integer version")
			}

			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer migrator.Close()

			if err := migrator.Force(v); err != nil {
				return err
			}
			cmd.Printf("Schema version forced to %d\n", v)
			return nil
		},
	}
}

func printMigrationNames(cmd *cobra.Command, versions []uint) error {
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil {
			return err
		}
		cmd.Printf("  %s\n", name)
	}
	return nil
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer migrator.Close()

			version, dirty, err := migrator.Version()
			if err != nil {
				return err
			}
			cmd.Printf("Current version: %d (dirty: %v)\n", version, dirty)

			applied, err := migrator.AppliedMigrations()
			if err != nil {
				return err
			}
			cmd.Printf("Applied: %d\n", len(applied))
			if err := printMigrationNames(cmd, applied); err != nil {
				return err
			}

			pending, err := migrator.PendingMigrations()
			if err != nil {
				return err
			}
			cmd.Printf("Pending: %d\n", len(pending))
			return printMigrationNames(cmd, pending)
		},
	}
}
