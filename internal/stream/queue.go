// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

// Package stream implements the reactive data primitives exchanged across
// the host/plugin boundary: a FIFO event queue with an explicit terminal
// state, and the value/list/tree data shapes built on top of it.
package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	wqueue "github.com/Workiva/go-datastructures/queue"
)

// ErrQueueClosed is returned by queue operations once the queue has been
// closed and drained. It is the terminal "poison" result that releases
// blocked consumers.
var ErrQueueClosed = errors.New("stream: queue closed")

// DefaultCapacityHint is the initial allocation hint for a queue. It is a
// sizing hint only; queues never drop events.
const DefaultCapacityHint = 1024

// closePollInterval bounds how long a blocked poll can outlive a Close
// that raced with a concurrent drain.
const closePollInterval = 25 * time.Millisecond

// Queue is an ordered, lossless hand-off of events to exactly one
// consumer. Events from one producer are delivered strictly in push
// order, with no drops and no duplication. Pushing from multiple
// goroutines is safe; ordering across producers follows arrival.
// Concurrent consumers are a usage error and are not detected.
//
// Close is idempotent and terminal: pushes fail afterwards, but events
// already queued remain drainable. Once closed and drained, every poll
// returns ErrQueueClosed without blocking.
type Queue[T any] struct {
	q      *wqueue.Queue
	closed atomic.Bool
}

// NewQueue creates an empty open queue. hint sizes the initial backing
// array; pass 0 for DefaultCapacityHint.
func NewQueue[T any](hint int64) *Queue[T] {
	if hint <= 0 {
		hint = DefaultCapacityHint
	}
	return &Queue[T]{q: wqueue.New(hint)}
}

// Push appends an event. It fails with ErrQueueClosed once the queue is
// closed.
func (s *Queue[T]) Push(ev T) error {
	if s.closed.Load() {
		return ErrQueueClosed
	}
	if err := s.q.Put(ev); err != nil {
		return ErrQueueClosed
	}
	return nil
}

// Poll returns the oldest undelivered event without blocking. ok is false
// when nothing is pending. After the queue is closed and drained, Poll
// returns ErrQueueClosed.
func (s *Queue[T]) Poll() (T, bool, error) {
	var zero T
	if s.q.Disposed() {
		return zero, false, ErrQueueClosed
	}
	if s.q.Empty() {
		if s.closed.Load() {
			s.q.Dispose()
			return zero, false, ErrQueueClosed
		}
		return zero, false, nil
	}
	// Single-consumer contract: the queue cannot be drained between the
	// emptiness check above and this take.
	items, err := s.q.Get(1)
	if err != nil || len(items) == 0 {
		return zero, false, ErrQueueClosed
	}
	return items[0].(T), true, nil
}

// PollBlocking returns the oldest undelivered event, blocking until one is
// pushed, the queue closes (ErrQueueClosed), or ctx is done (ctx.Err()).
func (s *Queue[T]) PollBlocking(ctx context.Context) (T, error) {
	var zero T
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if s.q.Disposed() {
			return zero, ErrQueueClosed
		}
		items, err := s.q.Poll(1, closePollInterval)
		switch {
		case err == nil && len(items) > 0:
			return items[0].(T), nil
		case errors.Is(err, wqueue.ErrDisposed):
			return zero, ErrQueueClosed
		}
		// Timed out: either nothing arrived yet, or Close raced with a
		// concurrent drain and left nobody to dispose the empty queue.
		if s.closed.Load() && s.q.Empty() {
			s.q.Dispose()
			return zero, ErrQueueClosed
		}
	}
}

// Close marks the queue terminal. Idempotent. A blocked PollBlocking is
// released immediately when nothing is pending; pending events stay
// drainable and the terminal result is reported once they are consumed.
func (s *Queue[T]) Close() {
	if s.closed.Swap(true) {
		return
	}
	if s.q.Empty() {
		s.q.Dispose()
	}
}

// Closed reports whether Close has been called. Events may still be
// pending; use Poll to drain them.
func (s *Queue[T]) Closed() bool {
	return s.closed.Load()
}

// Len returns the number of undelivered events.
func (s *Queue[T]) Len() int64 {
	if s.q.Disposed() {
		return 0
	}
	return s.q.Len()
}
