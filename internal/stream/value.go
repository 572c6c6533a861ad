// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package stream

import (
	"errors"
	"sync"
)

// ErrDestroyed is returned by mutations on a resource that has been
// destroyed. Destroy is terminal; no further reads, writes, or polls are
// valid.
var ErrDestroyed = errors.New("stream: resource destroyed")

// ValueChange describes one evolution of a value slot. Present is false
// when the value was cleared.
type ValueChange struct {
	Value   []byte
	Present bool
}

// ValueState is the single-slot data shape: an optional opaque buffer plus
// an ordered change feed. The owning side mutates it; the other side reads
// the snapshot and consumes the change queue.
type ValueState struct {
	mu        sync.Mutex
	value     []byte
	present   bool
	destroyed bool
	changes   *Queue[ValueChange]
}

// NewValueState creates a value slot. initial may be nil for "no value
// yet"; a non-nil empty buffer counts as present.
func NewValueState(initial []byte) *ValueState {
	v := &ValueState{changes: NewQueue[ValueChange](0)}
	if initial != nil {
		v.value = initial
		v.present = true
	}
	return v
}

// Snapshot returns the current value and whether one is set. The change
// queue is attached at construction, so a consumer that reads Snapshot as
// its baseline and then drains Changes observes every later delta.
func (v *ValueState) Snapshot() ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.present
}

// Set stores a new value and emits a change.
func (v *ValueState) Set(value []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return ErrDestroyed
	}
	v.value = value
	v.present = true
	return v.changes.Push(ValueChange{Value: value, Present: true})
}

// Clear removes the value and emits a change.
func (v *ValueState) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return ErrDestroyed
	}
	v.value = nil
	v.present = false
	return v.changes.Push(ValueChange{})
}

// Changes returns the change queue. Exactly one consumer may use it.
func (v *ValueState) Changes() *Queue[ValueChange] {
	return v.changes
}

// Destroy closes the change queue, releasing any blocked consumer.
// Idempotent.
func (v *ValueState) Destroy() {
	v.mu.Lock()
	v.destroyed = true
	v.value = nil
	v.present = false
	v.mu.Unlock()
	v.changes.Close()
}

// Destroyed reports whether Destroy has been called.
func (v *ValueState) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}
