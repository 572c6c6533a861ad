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

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plugin.yaml>...",
		Short: "Validate plugin manifest files without starting the host",
		Long: `Validates plugin.yaml manifests against the JSON Schema and the
manifest rules. Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch manifest errors early:
  tooltrain validate plugins/*/plugin.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failures int
			for _, path := range args {
				if err := validateManifestFile(path); err != nil {
					cmd.PrintErrf("%s: %v\n", path, plugin.FormatSchemaError(err))
					failures++
					continue
				}
				cmd.Printf("%s: ok\n", path)
			}
			if failures > 0 {
				return fmt.Errorf("validation failed: %d of %d manifests invalid", failures, len(args))
			}
			return nil
		},
	}
}

func validateManifestFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := plugin.ValidateSchema(data); err != nil {
		return err
	}
	_, err = plugin.ParseManifest(data)
	return err
}
