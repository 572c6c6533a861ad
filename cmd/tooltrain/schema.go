// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tooltrain/tooltrain/internal/plugin"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the plugin manifest JSON Schema",
		Long: `Print the JSON Schema that plugin.yaml manifests are validated
against. With --output, write it to a file instead of stdout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := plugin.GenerateSchema()
			if err != nil {
				return fmt.Errorf("generating schema: %w", err)
			}

			if outPath == "" {
				cmd.Println(string(data))
				return nil
			}

			if dir := filepath.Dir(outPath); dir != "." {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return fmt.Errorf("creating directory: %w", err)
				}
			}
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				return fmt.Errorf("writing schema: %w", err)
			}
			cmd.Printf("Generated %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write schema to file instead of stdout")
	return cmd
}
