// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

// Package host implements the reactive resources exchanged between a
// running plugin and its host: inputs the host writes and the plugin
// reads, and outputs the plugin writes and the host reads. Each resource
// pairs a snapshot with a change queue in the data direction and, for the
// paged shapes, a request queue in the control direction.
package host

import "github.com/tooltrain/tooltrain/internal/stream"

// Shape is the data shape a resource carries.
type Shape string

const (
	ShapeValue Shape = "value"
	ShapeList  Shape = "list"
	ShapeTree  Shape = "tree"
)

// Metadata identifies a resource within its table. IDs are minted
// monotonically per table and never reused.
type Metadata struct {
	ID          uint32
	Name        string
	Description string
	// DataType is the data-type expression describing the payload bytes.
	DataType string
	Shape    Shape
}

// Resource is implemented by all six resource types. Destroy is terminal
// and idempotent, closes the resource's queues, and unblocks every
// waiter; it may be called by either side of the boundary.
type Resource interface {
	Metadata() Metadata
	Destroy()
	Destroyed() bool
}

// Input is the closed set of host-writable resources handed to a
// streaming plugin. Switch over *ValueInput, *ListInput and *TreeInput.
type Input interface {
	Resource
	isInput()
}

// Output is the closed set of plugin-writable resources the host reads.
// Switch over *ValueOutput, *ListOutput and *TreeOutput.
type Output interface {
	Resource
	isOutput()
}

func (*ValueInput) isInput() {}
func (*ListInput) isInput()  {}
func (*TreeInput) isInput()  {}

func (*ValueOutput) isOutput() {}
func (*ListOutput) isOutput()  {}
func (*TreeOutput) isOutput()  {}

// TreeNode re-exports the stream node type, the currency of tree
// resources.
type TreeNode = stream.TreeNode
