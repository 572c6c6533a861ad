// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/tooltrain/tooltrain/internal/host"
	"github.com/tooltrain/tooltrain/internal/schema"
	"github.com/tooltrain/tooltrain/internal/stream"
)

// Trigger keeps a discrete plugin's outputs current. It runs the plugin
// once against the watched arguments, then re-runs it whenever one of
// them changes. A failed run stays failed until the next change; there is
// no retry. Plugins whose schema declares PerformsStateChange are never
// re-run automatically: their side effects must only happen on an
// explicit invocation.
type Trigger struct {
	eng    *Engine
	plugin DiscretePlugin
	sch    schema.Schema

	mu         sync.Mutex
	latest     []Output
	runs       atomic.Uint64
	suppressed atomic.Uint64
}

// NewTrigger fetches and validates the plugin's schema.
func NewTrigger(ctx context.Context, eng *Engine, p DiscretePlugin) (*Trigger, error) {
	sch, err := p.Schema(ctx)
	if err != nil {
		return nil, oops.In("engine").Wrapf(err, "fetching plugin schema")
	}
	if err := sch.Validate(); err != nil {
		return nil, err
	}
	return &Trigger{eng: eng, plugin: p, sch: sch}, nil
}

// Runs returns how many times the plugin has been invoked.
func (t *Trigger) Runs() uint64 { return t.runs.Load() }

// Suppressed returns how many input changes were observed without a
// re-run because the schema declares a state change.
func (t *Trigger) Suppressed() uint64 { return t.suppressed.Load() }

// Latest returns the outputs of the last successful run.
func (t *Trigger) Latest() []Output {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Watch runs the plugin once, then blocks re-running it on argument
// changes until ctx is cancelled or every watched input is destroyed.
// The watched inputs must match the schema's arguments in order, and
// Watch becomes their change-queue consumer.
func (t *Trigger) Watch(ctx context.Context, args []*host.ValueInput) error {
	if len(args) != len(t.sch.Arguments) {
		return oops.In("engine").With("plugin", t.sch.Name).
			With("want", len(t.sch.Arguments)).With("got", len(args)).
			New("watched inputs do not match schema arguments")
	}

	t.invoke(ctx, args)

	// Fan the per-input change queues into one notification queue. Each
	// watcher exits when its input is destroyed or ctx ends; the
	// notification queue closes when the last one is gone.
	notify := stream.NewQueue[struct{}](0)
	var wg sync.WaitGroup
	for _, in := range args {
		wg.Add(1)
		go func(in *host.ValueInput) {
			defer wg.Done()
			for {
				if _, err := in.PollChangeBlocking(ctx); err != nil {
					return
				}
				if notify.Push(struct{}{}) != nil {
					return
				}
			}
		}(in)
	}
	go func() {
		wg.Wait()
		notify.Close()
	}()

	for {
		_, err := notify.PollBlocking(ctx)
		switch {
		case errors.Is(err, stream.ErrQueueClosed):
			return nil
		case err != nil:
			// ctx ended; the watchers unwind on their own.
			return err
		}
		if t.sch.PerformsStateChange {
			t.suppressed.Add(1)
			triggerRunsSuppressed.WithLabelValues(t.sch.Name).Inc()
			t.eng.log.Debug("auto re-run suppressed",
				"plugin", t.sch.Name, "reason", "performs_state_change")
			continue
		}
		t.invoke(ctx, args)
	}
}

func (t *Trigger) invoke(ctx context.Context, args []*host.ValueInput) {
	raw := make([][]byte, len(args))
	for i, in := range args {
		if v, present := in.Get(); present {
			raw[i] = v
		}
	}
	t.runs.Add(1)
	outputs, err := t.eng.RunDiscrete(ctx, t.plugin, raw)
	if err != nil {
		// RunDiscrete already logged it; outputs stay as they were.
		return
	}
	t.mu.Lock()
	t.latest = outputs
	t.mu.Unlock()
}
