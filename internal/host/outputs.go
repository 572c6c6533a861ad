// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package host

import (
	"context"

	"github.com/tooltrain/tooltrain/internal/stream"
)

// ValueOutput is a plugin-authoritative value slot. The plugin publishes
// with Set; the host reads Get and consumes Changes.
type ValueOutput struct {
	meta  Metadata
	state *stream.ValueState
}

func (v *ValueOutput) Metadata() Metadata { return v.meta }

// Set publishes a new value. Plugin side.
func (v *ValueOutput) Set(value []byte) error { return v.state.Set(value) }

// Get returns the current value and whether one is set. Host side.
func (v *ValueOutput) Get() ([]byte, bool) { return v.state.Snapshot() }

// PollChange returns the next change without blocking. Host side; single
// consumer.
func (v *ValueOutput) PollChange() (stream.ValueChange, bool, error) {
	return v.state.Changes().Poll()
}

func (v *ValueOutput) PollChangeBlocking(ctx context.Context) (stream.ValueChange, error) {
	return v.state.Changes().PollBlocking(ctx)
}

func (v *ValueOutput) Destroy()        { v.state.Destroy() }
func (v *ValueOutput) Destroyed() bool { return v.state.Destroyed() }

// ListOutput is a plugin-authoritative paged sequence. The plugin
// publishes pages with Add and withdraws the tail with Pop; the host
// consumes changes and asks for more with RequestMore. Closing the
// request side tells the plugin no further production is wanted.
type ListOutput struct {
	meta  Metadata
	state *stream.ListState
}

func (l *ListOutput) Metadata() Metadata { return l.meta }

// Add, Pop, Clear and SetHasMoreRows mutate the sequence. Plugin side.
func (l *ListOutput) Add(item []byte) error        { return l.state.Append(item) }
func (l *ListOutput) Pop() error                   { return l.state.Pop() }
func (l *ListOutput) Clear() error                 { return l.state.Clear() }
func (l *ListOutput) SetHasMoreRows(ok bool) error { return l.state.SetHasMore(ok) }

// PollRequest returns the next host request without blocking. Plugin
// side; stream.ErrQueueClosed means the host wants no further rows.
func (l *ListOutput) PollRequest() (stream.ListRequest, bool, error) {
	return l.state.Requests().Poll()
}

func (l *ListOutput) PollRequestBlocking(ctx context.Context) (stream.ListRequest, error) {
	return l.state.Requests().PollBlocking(ctx)
}

// Get returns the published rows. Host side.
func (l *ListOutput) Get() [][]byte { return l.state.Snapshot() }

// HasMoreRows reports the plugin's last paging assertion.
func (l *ListOutput) HasMoreRows() bool { return l.state.HasMore() }

// PollChange returns the next change without blocking. Host side.
func (l *ListOutput) PollChange() (stream.ListChange, bool, error) {
	return l.state.Changes().Poll()
}

func (l *ListOutput) PollChangeBlocking(ctx context.Context) (stream.ListChange, error) {
	return l.state.Changes().PollBlocking(ctx)
}

// RequestMore asks the plugin for up to limit additional rows. Host side;
// a no-op after destruction.
func (l *ListOutput) RequestMore(limit uint32) error { return l.state.RequestMore(limit) }

// CloseRequests signals the plugin that no further rows are wanted. The
// published rows stay readable; the resource itself lives until Destroy.
func (l *ListOutput) CloseRequests() { l.state.Requests().Close() }

func (l *ListOutput) Destroy()        { l.state.Destroy() }
func (l *ListOutput) Destroyed() bool { return l.state.Destroyed() }

// TreeOutput is a plugin-authoritative forest. The plugin publishes
// levels with Add as the host asks for them via RequestChildren.
type TreeOutput struct {
	meta  Metadata
	state *stream.TreeState
}

func (t *TreeOutput) Metadata() Metadata { return t.meta }

// Add, Remove and Clear mutate the forest. Plugin side. Add requires the
// parent to be published; Remove cascades; removed IDs are never reused.
func (t *TreeOutput) Add(parent string, nodes []TreeNode) error { return t.state.Add(parent, nodes) }
func (t *TreeOutput) Remove(id string) error                    { return t.state.Remove(id) }
func (t *TreeOutput) Clear() error                              { return t.state.Clear() }

// PollRequest returns the next host request without blocking. Plugin
// side; stream.ErrQueueClosed means the host wants no further levels.
func (t *TreeOutput) PollRequest() (stream.TreeRequest, bool, error) {
	return t.state.Requests().Poll()
}

func (t *TreeOutput) PollRequestBlocking(ctx context.Context) (stream.TreeRequest, error) {
	return t.state.Requests().PollBlocking(ctx)
}

// Get returns the published nodes in pre-order. Host side.
func (t *TreeOutput) Get() []TreeNode { return t.state.Snapshot() }

// PollChange returns the next change without blocking. Host side.
func (t *TreeOutput) PollChange() (stream.TreeChange, bool, error) {
	return t.state.Changes().Poll()
}

func (t *TreeOutput) PollChangeBlocking(ctx context.Context) (stream.TreeChange, error) {
	return t.state.Changes().PollBlocking(ctx)
}

// RequestChildren asks the plugin to publish children of parent. Host
// side; a no-op after destruction.
func (t *TreeOutput) RequestChildren(parent string) error { return t.state.RequestChildren(parent) }

// CloseRequests signals the plugin that no further levels are wanted.
func (t *TreeOutput) CloseRequests() { t.state.Requests().Close() }

func (t *TreeOutput) Destroy()        { t.state.Destroy() }
func (t *TreeOutput) Destroyed() bool { return t.state.Destroyed() }
