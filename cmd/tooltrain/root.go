package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the tooltrain CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tooltrain",
		Short: "Tooltrain - a streaming plugin host",
		Long: `Tooltrain hosts plugins behind reactive value, list and tree
resources. Discrete plugins run once per invocation; streaming plugins
keep their outputs live until the run is torn down.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewPluginsCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
