// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package host

import (
	"errors"
	"sync"

	"github.com/samber/oops"

	"github.com/tooltrain/tooltrain/internal/datatype"
	"github.com/tooltrain/tooltrain/internal/stream"
)

// ErrTableClosed is returned when adding a resource to a table that has
// been torn down.
var ErrTableClosed = errors.New("host: resource table closed")

// RegistryChange is the closed set of table events. A UI consumes these
// to mirror the set of live resources.
type RegistryChange interface{ isRegistryChange() }

// ResourceAdded announces a newly created resource.
type ResourceAdded struct{ Meta Metadata }

// ResourceRemoved announces a destroyed resource by ID.
type ResourceRemoved struct{ ID uint32 }

func (ResourceAdded) isRegistryChange()   {}
func (ResourceRemoved) isRegistryChange() {}

// Table tracks the live resources of one run: the host keeps one table
// for inputs and one for outputs. IDs are minted monotonically and never
// reused, so a stale ID can never alias a newer resource.
type Table struct {
	mu        sync.Mutex
	nextID    uint32
	resources map[uint32]Resource
	order     []uint32
	changes   *stream.Queue[RegistryChange]
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		resources: make(map[uint32]Resource),
		changes:   stream.NewQueue[RegistryChange](0),
	}
}

func (t *Table) mint(name, description, dataTypeExpr string, shape Shape) (Metadata, error) {
	errb := oops.In("host").With("resource", name).With("data_type", dataTypeExpr)
	dt, err := datatype.Parse(dataTypeExpr)
	if err != nil {
		return Metadata{}, errb.Wrap(err)
	}
	if shape == ShapeList && !dt.IsList() {
		return Metadata{}, errb.New("list resources require a list data type")
	}
	id := t.nextID
	t.nextID++
	return Metadata{
		ID:          id,
		Name:        name,
		Description: description,
		DataType:    dt.String(),
		Shape:       shape,
	}, nil
}

func (t *Table) register(r Resource) error {
	meta := r.Metadata()
	t.resources[meta.ID] = r
	t.order = append(t.order, meta.ID)
	return t.changes.Push(ResourceAdded{Meta: meta})
}

// AddValueInput creates a value input. initial may be nil for "no value
// yet".
func (t *Table) AddValueInput(name, description, dataType string, initial []byte) (*ValueInput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTableClosed
	}
	meta, err := t.mint(name, description, dataType, ShapeValue)
	if err != nil {
		return nil, err
	}
	in := &ValueInput{meta: meta, state: stream.NewValueState(initial)}
	if err := t.register(in); err != nil {
		return nil, err
	}
	return in, nil
}

// AddListInput creates a list input. The data type must be a list
// expression.
func (t *Table) AddListInput(name, description, dataType string) (*ListInput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTableClosed
	}
	meta, err := t.mint(name, description, dataType, ShapeList)
	if err != nil {
		return nil, err
	}
	in := &ListInput{meta: meta, state: stream.NewListState()}
	if err := t.register(in); err != nil {
		return nil, err
	}
	return in, nil
}

// AddTreeInput creates a tree input.
func (t *Table) AddTreeInput(name, description, dataType string) (*TreeInput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTableClosed
	}
	meta, err := t.mint(name, description, dataType, ShapeTree)
	if err != nil {
		return nil, err
	}
	in := &TreeInput{meta: meta, state: stream.NewTreeState()}
	if err := t.register(in); err != nil {
		return nil, err
	}
	return in, nil
}

// AddValueOutput creates a value output, optionally seeded with an
// initial value. A nil initial starts the slot empty.
func (t *Table) AddValueOutput(name, description, dataType string, initial []byte) (*ValueOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTableClosed
	}
	meta, err := t.mint(name, description, dataType, ShapeValue)
	if err != nil {
		return nil, err
	}
	out := &ValueOutput{meta: meta, state: stream.NewValueState(initial)}
	if err := t.register(out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddListOutput creates a list output. The data type must be a list
// expression.
func (t *Table) AddListOutput(name, description, dataType string) (*ListOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTableClosed
	}
	meta, err := t.mint(name, description, dataType, ShapeList)
	if err != nil {
		return nil, err
	}
	out := &ListOutput{meta: meta, state: stream.NewListState()}
	if err := t.register(out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddTreeOutput creates a tree output.
func (t *Table) AddTreeOutput(name, description, dataType string) (*TreeOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTableClosed
	}
	meta, err := t.mint(name, description, dataType, ShapeTree)
	if err != nil {
		return nil, err
	}
	out := &TreeOutput{meta: meta, state: stream.NewTreeState()}
	if err := t.register(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the resource with the given ID.
func (t *Table) Get(id uint32) (Resource, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.resources[id]
	return r, ok
}

// Resources returns the live resources in creation order.
func (t *Table) Resources() []Resource {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Resource, 0, len(t.resources))
	for _, id := range t.order {
		if r, ok := t.resources[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.resources)
}

// Remove destroys the resource and drops it from the table. Removing an
// unknown ID is a no-op: destruction may race with removal from the
// other side.
func (t *Table) Remove(id uint32) {
	t.mu.Lock()
	r, ok := t.resources[id]
	if ok {
		delete(t.resources, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	r.Destroy()
	_ = t.changes.Push(ResourceRemoved{ID: id})
}

// Changes returns the registry-change queue. Exactly one consumer may use
// it; it closes when the table is torn down.
func (t *Table) Changes() *stream.Queue[RegistryChange] {
	return t.changes
}

// DestroyAll tears the table down: every live resource is destroyed, a
// removal is announced for each, and the change queue closes. Idempotent.
func (t *Table) DestroyAll() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	doomed := make([]Resource, 0, len(t.resources))
	for _, id := range t.order {
		if r, ok := t.resources[id]; ok {
			doomed = append(doomed, r)
		}
	}
	t.resources = make(map[uint32]Resource)
	t.mu.Unlock()

	for _, r := range doomed {
		r.Destroy()
		_ = t.changes.Push(ResourceRemoved{ID: r.Metadata().ID})
	}
	t.changes.Close()
}
