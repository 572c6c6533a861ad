// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package stream

import (
	"fmt"
	"sync"
)

// TreeNode is one node of a tree forest. ID is unique within its tree
// instance and stable across updates. HasChildren is advisory: children
// may exist upstream without being loaded yet.
type TreeNode struct {
	ID          string
	Value       []byte
	HasChildren bool
}

// TreeChange is the closed set of deltas a tree emits.
type TreeChange interface{ isTreeChange() }

// TreeReplace carries the full loaded forest, pre-order.
type TreeReplace struct{ Nodes []TreeNode }

// TreeAppend carries nodes added under Parent ("" for roots).
type TreeAppend struct {
	Parent string
	Nodes  []TreeNode
}

// TreeRemove carries the IDs of removed nodes, including cascaded
// descendants.
type TreeRemove struct{ IDs []string }

func (TreeReplace) isTreeChange() {}
func (TreeAppend) isTreeChange()  {}
func (TreeRemove) isTreeChange()  {}

// TreeRequest is the closed set of backpressure signals for a tree. Queue
// closure signals that no further production is wanted.
type TreeRequest interface{ isTreeRequest() }

// TreeLoadChildren asks the producer to load children of Parent.
type TreeLoadChildren struct{ Parent string }

func (TreeLoadChildren) isTreeRequest() {}

// TreeState is the hierarchical data shape: a forest keyed by stable node
// IDs, with a change queue in the data direction and a request queue in
// the control direction. IDs of removed nodes are never recycled within
// the instance's lifetime.
type TreeState struct {
	mu        sync.Mutex
	nodes     map[string]TreeNode
	children  map[string][]string // parent id ("" = root) -> ordered child ids
	retired   map[string]struct{}
	destroyed bool
	changes   *Queue[TreeChange]
	requests  *Queue[TreeRequest]
}

// NewTreeState creates an empty forest.
func NewTreeState() *TreeState {
	return &TreeState{
		nodes:    make(map[string]TreeNode),
		children: make(map[string][]string),
		retired:  make(map[string]struct{}),
		changes:  NewQueue[TreeChange](0),
		requests: NewQueue[TreeRequest](0),
	}
}

// Snapshot returns all currently loaded nodes in pre-order.
func (t *TreeState) Snapshot() []TreeNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subtree("")
}

func (t *TreeState) subtree(parent string) []TreeNode {
	var out []TreeNode
	for _, id := range t.children[parent] {
		out = append(out, t.nodes[id])
		out = append(out, t.subtree(id)...)
	}
	return out
}

// Add inserts nodes under parent ("" for roots) and emits a TreeAppend.
// The parent must already be loaded, node IDs must be non-empty, and IDs
// of previously removed nodes may not be reused.
func (t *TreeState) Add(parent string, nodes []TreeNode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return ErrDestroyed
	}
	if parent != "" {
		if _, ok := t.nodes[parent]; !ok {
			return fmt.Errorf("stream: cannot add children to unknown parent %q", parent)
		}
	}
	for _, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("stream: tree node id must not be empty")
		}
		if _, ok := t.nodes[n.ID]; ok {
			return fmt.Errorf("stream: duplicate tree node id %q", n.ID)
		}
		if _, ok := t.retired[n.ID]; ok {
			return fmt.Errorf("stream: tree node id %q was removed and may not be reused", n.ID)
		}
	}
	for _, n := range nodes {
		t.nodes[n.ID] = n
		t.children[parent] = append(t.children[parent], n.ID)
	}
	return t.changes.Push(TreeAppend{Parent: parent, Nodes: nodes})
}

// Remove deletes a node and all its descendants, emitting one TreeRemove
// with every removed ID. Removed IDs are retired for the lifetime of the
// instance.
func (t *TreeState) Remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return ErrDestroyed
	}
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("stream: cannot remove unknown tree node %q", id)
	}
	t.detachLocked(id)
	removed := t.removeLocked(id)
	return t.changes.Push(TreeRemove{IDs: removed})
}

// detachLocked unlinks id from its parent's child list. Only the removal
// root needs this; descendants go away wholesale with their parent's
// child list.
func (t *TreeState) detachLocked(id string) {
	for parent, ids := range t.children {
		for i, cid := range ids {
			if cid == id {
				t.children[parent] = append(ids[:i], ids[i+1:]...)
				return
			}
		}
	}
}

// removeLocked deletes id and its subtree, returning every removed ID in
// pre-order. The child list is taken out of the map before recursing so
// no iteration ever walks a list that is being rewritten.
func (t *TreeState) removeLocked(id string) []string {
	removed := []string{id}
	children := t.children[id]
	delete(t.children, id)
	delete(t.nodes, id)
	t.retired[id] = struct{}{}
	for _, child := range children {
		removed = append(removed, t.removeLocked(child)...)
	}
	return removed
}

// Replace drops the loaded forest and installs nodes as roots, emitting a
// TreeReplace. Structure below the roots is re-established by later Add
// calls driven by RequestChildren.
func (t *TreeState) Replace(nodes []TreeNode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return ErrDestroyed
	}
	t.nodes = make(map[string]TreeNode, len(nodes))
	t.children = make(map[string][]string)
	for _, n := range nodes {
		t.nodes[n.ID] = n
		t.children[""] = append(t.children[""], n.ID)
	}
	return t.changes.Push(TreeReplace{Nodes: nodes})
}

// Clear empties the forest and emits an empty TreeReplace.
func (t *TreeState) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return ErrDestroyed
	}
	t.nodes = make(map[string]TreeNode)
	t.children = make(map[string][]string)
	return t.changes.Push(TreeReplace{})
}

// RequestChildren asks the producer to load children of parent. On a
// destroyed tree this is a no-op.
func (t *TreeState) RequestChildren(parent string) error {
	t.mu.Lock()
	destroyed := t.destroyed
	t.mu.Unlock()
	if destroyed {
		return nil
	}
	if err := t.requests.Push(TreeLoadChildren{Parent: parent}); err != nil {
		return nil
	}
	return nil
}

// Changes returns the data-direction queue.
func (t *TreeState) Changes() *Queue[TreeChange] { return t.changes }

// Requests returns the control-direction queue.
func (t *TreeState) Requests() *Queue[TreeRequest] { return t.requests }

// Destroy closes both queues, releasing blocked consumers on either side.
// Idempotent.
func (t *TreeState) Destroy() {
	t.mu.Lock()
	t.destroyed = true
	t.nodes = nil
	t.children = nil
	t.mu.Unlock()
	t.changes.Close()
	t.requests.Close()
}

// Destroyed reports whether Destroy has been called.
func (t *TreeState) Destroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}
