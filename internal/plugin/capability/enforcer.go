// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

// Package capability gates plugin access to host resources.
//
// Grants are '.'-separated patterns compiled with gobwas/glob: '*' covers
// one segment, '**' any number of them. "fs.read.*" grants "fs.read.dir"
// but not "fs.read.dir.hidden"; "fs.**" grants every fs capability.
package capability

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Error is returned when a plugin invokes a gated helper without the
// matching grant.
type Error struct {
	Plugin     string
	Capability string
}

func (e *Error) Error() string {
	return fmt.Sprintf("plugin %q lacks capability %q", e.Plugin, e.Capability)
}

type grant struct {
	pattern string
	matcher glob.Glob
}

// grantSet is the compiled grants of one plugin.
type grantSet []grant

func (gs grantSet) allows(capability string) bool {
	for _, g := range gs {
		if g.matcher.Match(capability) {
			return true
		}
	}
	return false
}

func (gs grantSet) patterns() []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.pattern
	}
	return out
}

func compileGrants(patterns []string) (grantSet, error) {
	gs := make(grantSet, 0, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			return nil, oops.In("capability").With("index", i).
				New("empty capability pattern")
		}
		m, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, oops.In("capability").With("pattern", pattern).
				Wrapf(err, "invalid capability pattern")
		}
		gs = append(gs, grant{pattern: pattern, matcher: m})
	}
	return gs, nil
}

// Enforcer answers capability checks for loaded plugins. Unknown plugins
// and unknown capabilities are denied. Safe for concurrent use; the zero
// value works.
type Enforcer struct {
	mu      sync.RWMutex
	plugins map[string]grantSet
}

// NewEnforcer creates an enforcer with no grants installed.
func NewEnforcer() *Enforcer {
	return &Enforcer{plugins: make(map[string]grantSet)}
}

// SetGrants replaces the plugin's grants with the given patterns. All
// patterns are compiled before anything is installed, so a bad pattern
// leaves the plugin's previous grants untouched.
func (e *Enforcer) SetGrants(plugin string, capabilities []string) error {
	if plugin == "" {
		return oops.In("capability").New("plugin name cannot be empty")
	}
	gs, err := compileGrants(capabilities)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plugins == nil {
		e.plugins = make(map[string]grantSet)
	}
	e.plugins[plugin] = gs
	return nil
}

// IsRegistered reports whether SetGrants has been called for the plugin,
// distinguishing an unloaded plugin from one with no matching grant.
func (e *Enforcer) IsRegistered(plugin string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.plugins[plugin]
	return ok
}

// RemoveGrants drops every grant for the plugin. Unknown plugins are a
// no-op.
func (e *Enforcer) RemoveGrants(plugin string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.plugins, plugin)
}

// GetGrants returns the plugin's grant patterns, nil when it has none
// registered.
func (e *Enforcer) GetGrants(plugin string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	gs, ok := e.plugins[plugin]
	if !ok {
		return nil
	}
	return gs.patterns()
}

// ListPlugins returns the names of every plugin with registered grants,
// in no particular order.
func (e *Enforcer) ListPlugins() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.plugins))
	for name := range e.plugins {
		names = append(names, name)
	}
	return names
}

// Check reports whether the plugin holds a grant matching the capability.
// Empty capabilities and unregistered plugins are denied.
func (e *Enforcer) Check(plugin, capability string) bool {
	if capability == "" {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.plugins[plugin].allows(capability)
}

// Require returns a *Error when the plugin lacks the capability, nil when
// it is granted. Helpers gating filesystem or network access call this
// before doing work on a plugin's behalf.
func (e *Enforcer) Require(plugin, capability string) error {
	if e.Check(plugin, capability) {
		return nil
	}
	return &Error{Plugin: plugin, Capability: capability}
}
