// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tooltrain/tooltrain/internal/plugin"
	"github.com/tooltrain/tooltrain/internal/xdg"
)

// NewPluginsCmd creates the plugins subcommand.
func NewPluginsCmd() *cobra.Command {
	var pluginsDir string

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List plugins discovered in the plugins directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager := plugin.NewManager(pluginsDir)
			discovered, err := manager.Discover(cmd.Context())
			if err != nil {
				return err
			}

			if len(discovered) == 0 {
				cmd.Println("no plugins found in " + pluginsDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()
			if _, err := w.Write([]byte("NAME\tVERSION\tRUNTIME\tMODE\n")); err != nil {
				return err
			}
			for _, dp := range discovered {
				m := dp.Manifest
				line := m.Name + "\t" + m.Version + "\t" + string(m.Runtime) + "\t" + string(m.Mode) + "\n"
				if _, err := w.Write([]byte(line)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pluginsDir, "plugins-dir", xdg.PluginsDir(), "plugin installation directory")
	return cmd
}
