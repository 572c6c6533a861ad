// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package stream

import "sync"

// ListChange is the closed set of deltas a list emits. Consumers must
// switch exhaustively over ListReplace, ListAppend, ListPop and
// ListHasMore.
type ListChange interface{ isListChange() }

// ListReplace carries a full snapshot of the list.
type ListReplace struct{ Items [][]byte }

// ListAppend carries one item appended at the tail.
type ListAppend struct{ Item []byte }

// ListPop signals removal of the tail item.
type ListPop struct{}

// ListHasMore carries the producer's latest paging assertion. It reflects
// the last assertion only and may flip in either direction.
type ListHasMore struct{ HasMore bool }

func (ListReplace) isListChange() {}
func (ListAppend) isListChange()  {}
func (ListPop) isListChange()     {}
func (ListHasMore) isListChange() {}

// ListRequest is the closed set of backpressure signals flowing from the
// consumer back to the producer. Queue closure is the "no further
// production wanted" signal.
type ListRequest interface{ isListRequest() }

// ListLoadMore asks the producer for up to Limit additional items.
type ListLoadMore struct{ Limit uint32 }

func (ListLoadMore) isListRequest() {}

// ListState is the paged ordered-sequence data shape: items plus a
// has-more flag, with a change queue in the data direction and a request
// queue in the control direction.
type ListState struct {
	mu        sync.Mutex
	items     [][]byte
	hasMore   bool
	destroyed bool
	changes   *Queue[ListChange]
	requests  *Queue[ListRequest]
}

// NewListState creates an empty list.
func NewListState() *ListState {
	return &ListState{
		changes:  NewQueue[ListChange](0),
		requests: NewQueue[ListRequest](0),
	}
}

// Snapshot returns a copy of the current item sequence.
func (l *ListState) Snapshot() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.items))
	copy(out, l.items)
	return out
}

// HasMore reports the producer's last paging assertion.
func (l *ListState) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// Replace swaps the whole sequence and emits a ListReplace.
func (l *ListState) Replace(items [][]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return ErrDestroyed
	}
	l.items = append([][]byte(nil), items...)
	return l.changes.Push(ListReplace{Items: l.items})
}

// Append adds one item at the tail and emits a ListAppend.
func (l *ListState) Append(item []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return ErrDestroyed
	}
	l.items = append(l.items, item)
	return l.changes.Push(ListAppend{Item: item})
}

// Pop removes the tail item and emits a ListPop. Popping an empty list is
// a no-op, not an error: producer and consumer observe state
// asynchronously and races are expected.
func (l *ListState) Pop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return ErrDestroyed
	}
	if len(l.items) == 0 {
		return nil
	}
	l.items = l.items[:len(l.items)-1]
	return l.changes.Push(ListPop{})
}

// Clear empties the sequence and emits an empty ListReplace.
func (l *ListState) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return ErrDestroyed
	}
	l.items = nil
	return l.changes.Push(ListReplace{})
}

// SetHasMore records the producer's paging assertion and emits a
// ListHasMore.
func (l *ListState) SetHasMore(hasMore bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return ErrDestroyed
	}
	l.hasMore = hasMore
	return l.changes.Push(ListHasMore{HasMore: hasMore})
}

// RequestMore asks the producer for up to limit additional items. On a
// destroyed list this is a no-op.
func (l *ListState) RequestMore(limit uint32) error {
	l.mu.Lock()
	destroyed := l.destroyed
	l.mu.Unlock()
	if destroyed {
		return nil
	}
	if err := l.requests.Push(ListLoadMore{Limit: limit}); err != nil {
		return nil // destroyed concurrently; same no-op policy
	}
	return nil
}

// Changes returns the data-direction queue.
func (l *ListState) Changes() *Queue[ListChange] { return l.changes }

// Requests returns the control-direction queue.
func (l *ListState) Requests() *Queue[ListRequest] { return l.requests }

// Destroy closes both queues, releasing blocked consumers on either side.
// Idempotent.
func (l *ListState) Destroy() {
	l.mu.Lock()
	l.destroyed = true
	l.items = nil
	l.mu.Unlock()
	l.changes.Close()
	l.requests.Close()
}

// Destroyed reports whether Destroy has been called.
func (l *ListState) Destroyed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.destroyed
}
