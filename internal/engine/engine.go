// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

// Package engine dispatches plugin runs. Discrete plugins run once per
// invocation and return their outputs; streaming plugins run inside an
// Instance whose reactive resources outlive the run call until the host
// closes the instance.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/tooltrain/tooltrain/internal/schema"
)

// Output is one result of a discrete run.
type Output struct {
	Name        string
	Description string
	DataType    string
	Value       []byte
}

// Plugin is the contract every plugin satisfies: its schema must be
// answerable without running it.
type Plugin interface {
	Schema(ctx context.Context) (schema.Schema, error)
}

// DiscretePlugin runs once per invocation: raw argument values in,
// outputs out. A failed run produces no outputs.
type DiscretePlugin interface {
	Plugin
	Run(ctx context.Context, args [][]byte) ([]Output, error)
}

// StreamingPlugin runs against a RunContext of live resources. The
// returned string is the plugin's final status message.
type StreamingPlugin interface {
	Plugin
	Run(ctx context.Context, rc *RunContext) (string, error)
}

// Engine owns the schema registry and dispatches runs. Failed runs are
// reported, never retried.
type Engine struct {
	registry *schema.Registry
	log      *slog.Logger
}

// New creates an engine. logger may be nil.
func New(registry *schema.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, log: logger}
}

// Registry returns the engine's schema registry.
func (e *Engine) Registry() *schema.Registry { return e.registry }

// Register fetches the plugin's schema and records it in the registry.
func (e *Engine) Register(ctx context.Context, p Plugin) (schema.Schema, error) {
	sch, err := p.Schema(ctx)
	if err != nil {
		return schema.Schema{}, oops.In("engine").Wrapf(err, "fetching plugin schema")
	}
	if err := e.registry.Register(sch); err != nil {
		return schema.Schema{}, err
	}
	e.log.Info("plugin registered",
		"plugin", sch.Name,
		"arguments", len(sch.Arguments),
		"performs_state_change", sch.PerformsStateChange)
	return sch, nil
}

// RunDiscrete executes a one-shot run. The argument slice is positional,
// matching the schema's argument order. On error the output slice is
// always nil, whatever the plugin returned alongside its error.
func (e *Engine) RunDiscrete(ctx context.Context, p DiscretePlugin, args [][]byte) ([]Output, error) {
	sch, err := p.Schema(ctx)
	if err != nil {
		return nil, oops.In("engine").Wrapf(err, "fetching plugin schema")
	}
	if err := sch.Validate(); err != nil {
		return nil, err
	}
	if len(args) != len(sch.Arguments) {
		return nil, oops.In("engine").With("plugin", sch.Name).
			With("want", len(sch.Arguments)).With("got", len(args)).
			New("argument count mismatch")
	}

	start := time.Now()
	outputs, err := p.Run(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		runsTotal.WithLabelValues(sch.Name, modeDiscrete, statusError).Inc()
		runDuration.WithLabelValues(sch.Name, modeDiscrete).Observe(elapsed.Seconds())
		e.log.Error("discrete run failed",
			"plugin", sch.Name, "duration", elapsed, "error", err)
		return nil, oops.In("engine").With("plugin", sch.Name).
			Wrapf(err, "discrete run failed")
	}
	runsTotal.WithLabelValues(sch.Name, modeDiscrete, statusSuccess).Inc()
	runDuration.WithLabelValues(sch.Name, modeDiscrete).Observe(elapsed.Seconds())
	e.log.Debug("discrete run finished",
		"plugin", sch.Name, "outputs", len(outputs), "duration", elapsed)
	return outputs, nil
}
