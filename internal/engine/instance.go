// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package engine

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tooltrain/tooltrain/internal/datatype"
	"github.com/tooltrain/tooltrain/internal/host"
	"github.com/tooltrain/tooltrain/internal/schema"
)

// RunContext is what a streaming plugin runs against: the inputs bound
// from its schema arguments, plus declaration calls for the resources it
// creates while running.
type RunContext struct {
	inputs  *host.Table
	outputs *host.Table
	args    []host.Input
	byName  map[string]host.Input
}

// Arguments returns the bound inputs in schema order.
func (rc *RunContext) Arguments() []host.Input {
	return append([]host.Input(nil), rc.args...)
}

// Argument returns the input bound to the named schema argument.
func (rc *RunContext) Argument(name string) (host.Input, bool) {
	in, ok := rc.byName[name]
	return in, ok
}

// AddValueOutput, AddListOutput and AddTreeOutput declare resources the
// plugin publishes. They appear in the instance's output table as they
// are created.
func (rc *RunContext) AddValueOutput(name, description, dataType string, initial []byte) (*host.ValueOutput, error) {
	return rc.outputs.AddValueOutput(name, description, dataType, initial)
}

func (rc *RunContext) AddListOutput(name, description, dataType string) (*host.ListOutput, error) {
	return rc.outputs.AddListOutput(name, description, dataType)
}

func (rc *RunContext) AddTreeOutput(name, description, dataType string) (*host.TreeOutput, error) {
	return rc.outputs.AddTreeOutput(name, description, dataType)
}

// AddValueInput, AddListInput and AddTreeInput declare additional inputs
// the plugin wants the host to drive beyond its schema arguments.
func (rc *RunContext) AddValueInput(name, description, dataType string, initial []byte) (*host.ValueInput, error) {
	return rc.inputs.AddValueInput(name, description, dataType, initial)
}

func (rc *RunContext) AddListInput(name, description, dataType string) (*host.ListInput, error) {
	return rc.inputs.AddListInput(name, description, dataType)
}

func (rc *RunContext) AddTreeInput(name, description, dataType string) (*host.TreeInput, error) {
	return rc.inputs.AddTreeInput(name, description, dataType)
}

// Instance is one streaming run. Its resources stay live after the
// plugin's Run returns so the host can keep reading outputs; Close tears
// everything down.
type Instance struct {
	id      ulid.ULID
	schema  schema.Schema
	inputs  *host.Table
	outputs *host.Table

	done      chan struct{}
	result    string
	runErr    error
	closeOnce sync.Once
}

// ID returns the instance's run ID.
func (i *Instance) ID() ulid.ULID { return i.id }

// Schema returns the schema the instance was started with.
func (i *Instance) Schema() schema.Schema { return i.schema }

// Inputs returns the input resource table, host side.
func (i *Instance) Inputs() *host.Table { return i.inputs }

// Outputs returns the output resource table, host side.
func (i *Instance) Outputs() *host.Table { return i.outputs }

// Done is closed when the plugin's Run has returned.
func (i *Instance) Done() <-chan struct{} { return i.done }

// Result blocks until the run returns, then reports its status message
// or error. Resources stay live either way until Close.
func (i *Instance) Result(ctx context.Context) (string, error) {
	select {
	case <-i.done:
		return i.result, i.runErr
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close destroys every input and output resource, releasing all blocked
// pollers on both sides. Idempotent; safe while the run is still going.
func (i *Instance) Close() {
	i.closeOnce.Do(func() {
		i.inputs.DestroyAll()
		i.outputs.DestroyAll()
		instancesLive.Dec()
	})
}

// Start launches a streaming run. Each schema argument is materialized as
// an input resource: list-typed arguments become list inputs, everything
// else a value input, seeded from initial by argument name. Unknown names
// in initial are rejected.
func (e *Engine) Start(ctx context.Context, p StreamingPlugin, initial map[string][]byte) (*Instance, error) {
	sch, err := p.Schema(ctx)
	if err != nil {
		return nil, oops.In("engine").Wrapf(err, "fetching plugin schema")
	}
	if err := sch.Validate(); err != nil {
		return nil, err
	}
	for name := range initial {
		if _, ok := sch.Argument(name); !ok {
			return nil, oops.In("engine").With("plugin", sch.Name).
				With("argument", name).New("initial value for unknown argument")
		}
	}

	inst := &Instance{
		id:      NewRunID(),
		schema:  sch,
		inputs:  host.NewTable(),
		outputs: host.NewTable(),
		done:    make(chan struct{}),
	}

	rc := &RunContext{
		inputs:  inst.inputs,
		outputs: inst.outputs,
		byName:  make(map[string]host.Input, len(sch.Arguments)),
	}
	for _, arg := range sch.Arguments {
		dt, err := datatype.Parse(arg.DataType)
		if err != nil {
			return nil, oops.In("engine").With("plugin", sch.Name).
				With("argument", arg.Name).Wrap(err)
		}
		var in host.Input
		if dt.IsList() {
			in, err = inst.inputs.AddListInput(arg.Name, arg.Description, arg.DataType)
		} else {
			in, err = inst.inputs.AddValueInput(arg.Name, arg.Description, arg.DataType, initial[arg.Name])
		}
		if err != nil {
			return nil, err
		}
		rc.args = append(rc.args, in)
		rc.byName[arg.Name] = in
	}

	instancesLive.Inc()
	go func() {
		start := time.Now()
		result, runErr := p.Run(ctx, rc)
		elapsed := time.Since(start)
		status := statusSuccess
		if runErr != nil {
			status = statusError
			inst.runErr = oops.In("engine").With("plugin", sch.Name).
				With("instance", inst.id.String()).Wrapf(runErr, "streaming run failed")
			e.log.Error("streaming run failed",
				"plugin", sch.Name, "instance", inst.id, "duration", elapsed, "error", runErr)
		} else {
			inst.result = result
			e.log.Info("streaming run finished",
				"plugin", sch.Name, "instance", inst.id, "duration", elapsed)
		}
		runsTotal.WithLabelValues(sch.Name, modeStreaming, status).Inc()
		runDuration.WithLabelValues(sch.Name, modeStreaming).Observe(elapsed.Seconds())
		close(inst.done)
	}()

	e.log.Debug("streaming run started", "plugin", sch.Name, "instance", inst.id)
	return inst, nil
}
