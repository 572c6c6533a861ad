// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package datatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrimitives(t *testing.T) {
	for _, input := range []string{
		"trigger", "boolean", "number", "string", "bytes",
		"color", "json", "svg", "path",
	} {
		t.Run(input, func(t *testing.T) {
			dt, err := Parse(input)
			require.NoError(t, err)
			assert.Equal(t, Kind(input), dt.Kind)
			assert.Equal(t, input, dt.String())
		})
	}
}

func TestParseList(t *testing.T) {
	dt, err := Parse("list<boolean>")
	require.NoError(t, err)
	assert.Equal(t, KindList, dt.Kind)
	require.NotNil(t, dt.Elem)
	assert.Equal(t, KindBoolean, dt.Elem.Kind)
	assert.Equal(t, "list<boolean>", dt.String())
	assert.True(t, dt.IsList())
}

func TestParseNestedList(t *testing.T) {
	dt, err := Parse("list<list<string>>")
	require.NoError(t, err)
	assert.Equal(t, "list<list<string>>", dt.String())
}

func TestParseEnum(t *testing.T) {
	dt, err := Parse("enum Number<ONE, TWO>")
	require.NoError(t, err)
	assert.Equal(t, KindEnum, dt.Kind)
	assert.Equal(t, "Number", dt.Name)
	assert.Equal(t, []string{"ONE", "TWO"}, dt.Variants)
	assert.Equal(t, "enum Number<ONE, TWO>", dt.String())

	ord, ok := dt.Variant("TWO")
	require.True(t, ok)
	assert.Equal(t, uint32(1), ord)
	_, ok = dt.Variant("THREE")
	assert.False(t, ok)
}

func TestParseStruct(t *testing.T) {
	dt, err := Parse("struct File<name: string, is_dir: boolean, size: number>")
	require.NoError(t, err)
	assert.Equal(t, KindStruct, dt.Kind)
	assert.Equal(t, "File", dt.Name)
	require.Len(t, dt.Fields, 3)
	assert.Equal(t, "name", dt.Fields[0].Name)
	assert.Equal(t, KindString, dt.Fields[0].Type.Kind)
	assert.Equal(t, "struct File<name: string, is_dir: boolean, size: number>", dt.String())
}

func TestParseListOfStruct(t *testing.T) {
	dt, err := Parse("list<struct Row<id: number, label: string>>")
	require.NoError(t, err)
	assert.True(t, dt.IsList())
	assert.Equal(t, KindStruct, dt.Elem.Kind)
	assert.Equal(t, "list<struct Row<id: number, label: string>>", dt.String())
}

func TestParseRoundTrip(t *testing.T) {
	for _, input := range []string{
		"trigger",
		"list<number>",
		"enum Color<RED, GREEN, BLUE>",
		"struct Pt<x: number, y: number>",
		"list<enum State<ON, OFF>>",
	} {
		dt, err := Parse(input)
		require.NoError(t, err)
		again, err := Parse(dt.String())
		require.NoError(t, err)
		assert.True(t, dt.Equal(again), "round-trip mismatch for %q", input)
	}
}

func TestParseRejectsTriggerElement(t *testing.T) {
	// trigger marks a unit-valued slot; it is not a payload type.
	_, err := Parse("list<trigger>")
	assert.Error(t, err)
	_, err = Parse("struct S<a: trigger>")
	assert.Error(t, err)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse("enum E<A, A>")
	assert.Error(t, err)
	_, err = Parse("struct S<a: number, a: string>")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "list<", "quux", "enum <A>", "list<>"} {
		_, err := Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestEqual(t *testing.T) {
	a := MustParse("list<string>")
	b := MustParse("list<string>")
	c := MustParse("list<number>")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
