// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package plugin

import (
	"context"

	"github.com/tooltrain/tooltrain/internal/engine"
)

// Host manages a specific plugin runtime.
type Host interface {
	// Load initializes a plugin from its manifest.
	Load(ctx context.Context, manifest *Manifest, dir string) error

	// Unload tears down a plugin.
	Unload(ctx context.Context, name string) error

	// Discrete returns the named plugin as a one-shot runner.
	Discrete(name string) (engine.DiscretePlugin, bool)

	// Plugins returns names of all loaded plugins.
	Plugins() []string

	// Close shuts down the host and all plugins.
	Close(ctx context.Context) error
}
