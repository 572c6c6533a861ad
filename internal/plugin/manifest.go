// Package plugin provides plugin discovery, manifests and lifecycle
// control.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Runtime identifies how a plugin executes.
type Runtime string

// Runtimes supported by the system.
const (
	RuntimeLua     Runtime = "lua"
	RuntimeBuiltin Runtime = "builtin"
)

// Mode identifies a plugin's execution mode.
type Mode string

const (
	// ModeDiscrete plugins run once per invocation and return outputs.
	ModeDiscrete Mode = "discrete"
	// ModeStreaming plugins run against live reactive resources.
	ModeStreaming Mode = "streaming"
)

// Manifest represents a plugin.yaml file.
type Manifest struct {
	Name        string  `yaml:"name" json:"name"`
	Version     string  `yaml:"version" json:"version"`
	Runtime     Runtime `yaml:"runtime" json:"runtime"`
	Mode        Mode    `yaml:"mode" json:"mode"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	// PerformsStateChange marks plugins whose runs have external side
	// effects; the host never re-runs them automatically.
	PerformsStateChange bool       `yaml:"performs-state-change,omitempty" json:"performs-state-change,omitempty"`
	Capabilities        []string   `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	LuaPlugin           *LuaConfig `yaml:"lua-plugin,omitempty" json:"lua-plugin,omitempty"`
}

// LuaConfig holds Lua-specific configuration.
type LuaConfig struct {
	Entry string `yaml:"entry" json:"entry"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with a lowercase letter,
// followed by lowercase letters, digits, or hyphens. Cannot end with a
// hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not a valid semantic version: %w", m.Version, err)
	}

	switch m.Mode {
	case ModeDiscrete, ModeStreaming:
	default:
		return fmt.Errorf("mode must be 'discrete' or 'streaming', got %q", m.Mode)
	}

	switch m.Runtime {
	case RuntimeLua:
		if m.Mode != ModeDiscrete {
			return fmt.Errorf("lua plugins only support discrete mode, got %q", m.Mode)
		}
		if m.LuaPlugin == nil {
			return fmt.Errorf("lua-plugin is required when runtime is lua")
		}
		if m.LuaPlugin.Entry == "" {
			return fmt.Errorf("lua-plugin.entry is required")
		}
	case RuntimeBuiltin:
	default:
		return fmt.Errorf("runtime must be 'lua' or 'builtin', got %q", m.Runtime)
	}

	return nil
}

// SemVersion returns the parsed plugin version. Validate must have
// succeeded.
func (m *Manifest) SemVersion() *semver.Version {
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		panic(fmt.Sprintf("manifest version %q not validated: %v", m.Version, err))
	}
	return v
}
