// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

// Package datatype defines the data-type expression language used by
// schemas to describe argument and output payloads, and provides a parser
// built with participle. Values themselves stay opaque byte buffers; a
// DataType only tells clients how to interpret them.
package datatype

import (
	"fmt"
	"strings"
)

// Kind discriminates the data-type variants.
type Kind string

const (
	KindTrigger Kind = "trigger"
	KindBoolean Kind = "boolean"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindBytes   Kind = "bytes"
	KindColor   Kind = "color"
	KindJSON    Kind = "json"
	KindSVG     Kind = "svg"
	KindPath    Kind = "path"
	KindList    Kind = "list"
	KindEnum    Kind = "enum"
	KindStruct  Kind = "struct"
)

// Field is one named column of a struct type.
type Field struct {
	Name string
	Type *DataType
}

// DataType is a parsed data-type expression. Elem is set for lists, Name
// and Variants for enums, Name and Fields for structs.
type DataType struct {
	Kind     Kind
	Elem     *DataType
	Name     string
	Variants []string
	Fields   []Field
}

// IsList reports whether the type describes an ordered sequence, the only
// shape a list resource may carry.
func (d *DataType) IsList() bool {
	return d.Kind == KindList
}

// Variant returns the ordinal of the named enum variant. Ordinals are
// assigned by declaration order and are the wire representation of enum
// values.
func (d *DataType) Variant(name string) (uint32, bool) {
	if d.Kind != KindEnum {
		return 0, false
	}
	for i, v := range d.Variants {
		if v == name {
			return uint32(i), true
		}
	}
	return 0, false
}

// String renders the canonical form of the expression. Parsing the result
// yields an equal DataType.
func (d *DataType) String() string {
	switch d.Kind {
	case KindList:
		return fmt.Sprintf("list<%s>", d.Elem)
	case KindEnum:
		return fmt.Sprintf("enum %s<%s>", d.Name, strings.Join(d.Variants, ", "))
	case KindStruct:
		cols := make([]string, len(d.Fields))
		for i, f := range d.Fields {
			cols[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
		}
		return fmt.Sprintf("struct %s<%s>", d.Name, strings.Join(cols, ", "))
	default:
		return string(d.Kind)
	}
}

// Equal reports structural equality.
func (d *DataType) Equal(other *DataType) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Kind != other.Kind || d.Name != other.Name {
		return false
	}
	switch d.Kind {
	case KindList:
		return d.Elem.Equal(other.Elem)
	case KindEnum:
		if len(d.Variants) != len(other.Variants) {
			return false
		}
		for i, v := range d.Variants {
			if v != other.Variants[i] {
				return false
			}
		}
		return true
	case KindStruct:
		if len(d.Fields) != len(other.Fields) {
			return false
		}
		for i, f := range d.Fields {
			if f.Name != other.Fields[i].Name || !f.Type.Equal(other.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	return true
}
