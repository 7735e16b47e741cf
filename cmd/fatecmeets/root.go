// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package main

import (
	"github.com/spf13/cobra"
)

// defaultConfigFile is consulted when --config is not given. A missing
// default file is fine; a missing explicit one is an error.
const defaultConfigFile = "fatecmeets.yaml"

// NewRootCmd creates the root command for the fatecmeets CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fatecmeets",
		Short: "FatecMeets - account and session token engine",
		Long: `FatecMeets runs the account registration, login challenge and
session token services backed by PostgreSQL, with one-time codes
delivered over SMTP.`,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
