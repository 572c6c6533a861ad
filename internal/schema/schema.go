// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

// Package schema describes what a plugin accepts and produces. A Schema is
// answerable without running the plugin, so hosts can render argument
// forms up front.
package schema

import (
	"errors"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/tooltrain/tooltrain/internal/datatype"
)

// ErrSealed is returned by Register once the registry has been sealed.
var ErrSealed = errors.New("schema: registry sealed")

// ArgumentSpec describes one input slot of a plugin.
type ArgumentSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// DataType is a data-type expression, e.g. "string" or
	// "list<struct File<name: string, is_dir: boolean>>".
	DataType string `json:"data_type" yaml:"data_type"`
	// SupportsUpdates marks arguments the plugin re-reads while running.
	// Hosts may rebind non-updatable arguments only before start.
	SupportsUpdates bool `json:"supports_updates,omitempty" yaml:"supports_updates,omitempty"`
}

// OutputSpec describes one output a discrete run produces.
type OutputSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	DataType    string `json:"data_type" yaml:"data_type"`
}

// Schema is a plugin's public contract.
type Schema struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Arguments   []ArgumentSpec `json:"arguments" yaml:"arguments"`
	// Outputs declares the resources a streaming plugin publishes.
	// Discrete plugins leave it empty; their outputs are self-describing.
	Outputs []OutputSpec `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	// PerformsStateChange marks plugins whose runs have external side
	// effects. Hosts must not re-run such plugins automatically.
	PerformsStateChange bool `json:"performs_state_change,omitempty" yaml:"performs_state_change,omitempty"`
}

// Validate checks the schema for a non-empty name, unique argument names,
// and parseable data-type expressions.
func (s *Schema) Validate() error {
	errb := oops.In("schema").With("schema", s.Name)
	if s.Name == "" {
		return errb.New("schema name must not be empty")
	}
	seen := make(map[string]struct{}, len(s.Arguments))
	for _, arg := range s.Arguments {
		if arg.Name == "" {
			return errb.New("argument name must not be empty")
		}
		if _, dup := seen[arg.Name]; dup {
			return errb.With("argument", arg.Name).
				New("schema contains duplicate argument name")
		}
		seen[arg.Name] = struct{}{}
		if _, err := datatype.Parse(arg.DataType); err != nil {
			return errb.With("argument", arg.Name).
				Wrapf(err, "invalid data type %q", arg.DataType)
		}
	}
	seenOut := make(map[string]struct{}, len(s.Outputs))
	for _, out := range s.Outputs {
		if out.Name == "" {
			return errb.New("output name must not be empty")
		}
		if _, dup := seenOut[out.Name]; dup {
			return errb.With("output", out.Name).
				New("schema contains duplicate output name")
		}
		seenOut[out.Name] = struct{}{}
		if _, err := datatype.Parse(out.DataType); err != nil {
			return errb.With("output", out.Name).
				Wrapf(err, "invalid data type %q", out.DataType)
		}
	}
	return nil
}

// Argument returns the named argument spec.
func (s *Schema) Argument(name string) (ArgumentSpec, bool) {
	for _, arg := range s.Arguments {
		if arg.Name == name {
			return arg, true
		}
	}
	return ArgumentSpec{}, false
}

// Registry collects plugin schemas during registration. Once every plugin
// is loaded the host seals it; later registration attempts fail with
// ErrSealed.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
	sealed  bool
}

// NewRegistry creates an empty open registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Register validates and stores a schema. Duplicate schema names are
// rejected.
func (r *Registry) Register(s Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	if _, dup := r.schemas[s.Name]; dup {
		return oops.In("schema").With("schema", s.Name).
			New("schema already registered")
	}
	r.schemas[s.Name] = s
	return nil
}

// Seal freezes the registry. Idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Get returns the named schema.
func (r *Registry) Get(name string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns all registered schema names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
