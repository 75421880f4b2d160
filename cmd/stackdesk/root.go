// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the StackDesk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackdesk",
		Short: "StackDesk - internal helpdesk and asset tracking",
		Long: `StackDesk is the internal helpdesk and asset tracking service.
This binary serves the HTTP API and provides database maintenance commands.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}
