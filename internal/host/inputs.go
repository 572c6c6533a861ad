// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package host

import (
	"context"

	"github.com/tooltrain/tooltrain/internal/stream"
)

// ValueInput is a host-authoritative value slot. The host mutates it with
// Set and Clear; the plugin reads Get as its baseline and consumes
// Changes for every later delta.
type ValueInput struct {
	meta  Metadata
	state *stream.ValueState
}

func (v *ValueInput) Metadata() Metadata { return v.meta }

// Get returns the current value and whether one is set.
func (v *ValueInput) Get() ([]byte, bool) { return v.state.Snapshot() }

// Set stores a new value. Host side.
func (v *ValueInput) Set(value []byte) error { return v.state.Set(value) }

// Clear removes the value. Host side.
func (v *ValueInput) Clear() error { return v.state.Clear() }

// PollChange returns the next change without blocking. Plugin side;
// single consumer.
func (v *ValueInput) PollChange() (stream.ValueChange, bool, error) {
	return v.state.Changes().Poll()
}

// PollChangeBlocking blocks until the next change, destruction
// (stream.ErrQueueClosed) or ctx cancellation.
func (v *ValueInput) PollChangeBlocking(ctx context.Context) (stream.ValueChange, error) {
	return v.state.Changes().PollBlocking(ctx)
}

func (v *ValueInput) Destroy()        { v.state.Destroy() }
func (v *ValueInput) Destroyed() bool { return v.state.Destroyed() }

// ListInput is a host-authoritative paged sequence. The host feeds it
// with Replace, Append and Pop; the plugin consumes changes and sends
// RequestMore when it wants another page.
type ListInput struct {
	meta  Metadata
	state *stream.ListState
}

func (l *ListInput) Metadata() Metadata { return l.meta }

// Get returns the loaded items.
func (l *ListInput) Get() [][]byte { return l.state.Snapshot() }

// HasMorePages reports the host's last paging assertion.
func (l *ListInput) HasMorePages() bool { return l.state.HasMore() }

// Replace, Append, Pop and SetHasMorePages mutate the sequence. Host
// side.
func (l *ListInput) Replace(items [][]byte) error  { return l.state.Replace(items) }
func (l *ListInput) Append(item []byte) error      { return l.state.Append(item) }
func (l *ListInput) Pop() error                    { return l.state.Pop() }
func (l *ListInput) SetHasMorePages(ok bool) error { return l.state.SetHasMore(ok) }

// PollChange returns the next change without blocking. Plugin side.
func (l *ListInput) PollChange() (stream.ListChange, bool, error) {
	return l.state.Changes().Poll()
}

func (l *ListInput) PollChangeBlocking(ctx context.Context) (stream.ListChange, error) {
	return l.state.Changes().PollBlocking(ctx)
}

// RequestMore asks the host for up to limit additional items. Plugin
// side; a no-op after destruction.
func (l *ListInput) RequestMore(limit uint32) error { return l.state.RequestMore(limit) }

// PollRequest returns the next pending plugin request without blocking.
// Host side.
func (l *ListInput) PollRequest() (stream.ListRequest, bool, error) {
	return l.state.Requests().Poll()
}

func (l *ListInput) PollRequestBlocking(ctx context.Context) (stream.ListRequest, error) {
	return l.state.Requests().PollBlocking(ctx)
}

func (l *ListInput) Destroy()        { l.state.Destroy() }
func (l *ListInput) Destroyed() bool { return l.state.Destroyed() }

// TreeInput is a host-authoritative forest. The host loads nodes with Add
// and prunes with Remove; the plugin consumes changes and asks for deeper
// levels with RequestChildren.
type TreeInput struct {
	meta  Metadata
	state *stream.TreeState
}

func (t *TreeInput) Metadata() Metadata { return t.meta }

// Get returns the loaded nodes in pre-order.
func (t *TreeInput) Get() []TreeNode { return t.state.Snapshot() }

// Replace, Add and Remove mutate the forest. Host side. Add requires the
// parent to be loaded; Remove cascades to descendants; removed IDs are
// never reused.
func (t *TreeInput) Replace(roots []TreeNode) error            { return t.state.Replace(roots) }
func (t *TreeInput) Add(parent string, nodes []TreeNode) error { return t.state.Add(parent, nodes) }
func (t *TreeInput) Remove(id string) error                    { return t.state.Remove(id) }

// PollChange returns the next change without blocking. Plugin side.
func (t *TreeInput) PollChange() (stream.TreeChange, bool, error) {
	return t.state.Changes().Poll()
}

func (t *TreeInput) PollChangeBlocking(ctx context.Context) (stream.TreeChange, error) {
	return t.state.Changes().PollBlocking(ctx)
}

// RequestChildren asks the host to load children of parent. Plugin side;
// a no-op after destruction.
func (t *TreeInput) RequestChildren(parent string) error { return t.state.RequestChildren(parent) }

// PollRequest returns the next pending plugin request without blocking.
// Host side.
func (t *TreeInput) PollRequest() (stream.TreeRequest, bool, error) {
	return t.state.Requests().Poll()
}

func (t *TreeInput) PollRequestBlocking(ctx context.Context) (stream.TreeRequest, error) {
	return t.state.Requests().PollBlocking(ctx)
}

func (t *TreeInput) Destroy()        { t.state.Destroy() }
func (t *TreeInput) Destroyed() bool { return t.state.Destroyed() }
