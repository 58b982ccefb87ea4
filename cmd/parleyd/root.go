// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/parleyd/parleyd/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the parleyd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parleyd",
		Short: "parleyd - a multi-client line-oriented chat server",
		Long: `parleyd is a TCP chat server. Clients connect with any line-oriented
client (telnet, nc), authenticate against a flat-file credential store,
and exchange direct or broadcast messages.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "config file path")

	cmd.AddCommand(newServeCmd())

	return cmd
}
