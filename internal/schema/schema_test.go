// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSchema() Schema {
	return Schema{
		Name:        "lsdir",
		Description: "Lists a directory",
		Arguments: []ArgumentSpec{
			{Name: "path", Description: "Directory to list", DataType: "path", SupportsUpdates: true},
			{Name: "hidden", DataType: "boolean"},
		},
	}
}

func TestSchemaValidate(t *testing.T) {
	s := validSchema()
	require.NoError(t, s.Validate())

	arg, ok := s.Argument("path")
	require.True(t, ok)
	assert.True(t, arg.SupportsUpdates)
	_, ok = s.Argument("nope")
	assert.False(t, ok)
}

func TestSchemaValidateRejectsDuplicateArguments(t *testing.T) {
	s := validSchema()
	s.Arguments = append(s.Arguments, ArgumentSpec{Name: "path", DataType: "string"})
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate argument")
}

func TestSchemaValidateRejectsBadDataType(t *testing.T) {
	s := validSchema()
	s.Arguments[0].DataType = "list<"
	assert.Error(t, s.Validate())
}

func TestSchemaValidateRejectsEmptyNames(t *testing.T) {
	s := validSchema()
	s.Name = ""
	assert.Error(t, s.Validate())

	s = validSchema()
	s.Arguments[0].Name = ""
	assert.Error(t, s.Validate())
}

func TestSchemaValidateOutputs(t *testing.T) {
	s := validSchema()
	s.Outputs = []OutputSpec{
		{Name: "files", Description: "Directory entries", DataType: "list<string>"},
	}
	require.NoError(t, s.Validate())

	s.Outputs = append(s.Outputs, OutputSpec{Name: "files", DataType: "string"})
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate output")

	s.Outputs = []OutputSpec{{Name: "", DataType: "string"}}
	assert.Error(t, s.Validate())

	s.Outputs = []OutputSpec{{Name: "files", DataType: "list<"}}
	assert.Error(t, s.Validate())
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validSchema()))
	require.NoError(t, r.Register(Schema{Name: "other"}))

	got, ok := r.Get("lsdir")
	require.True(t, ok)
	assert.Equal(t, "Lists a directory", got.Description)
	assert.Equal(t, []string{"lsdir", "other"}, r.Names())
}

func TestRegistryRejectsDuplicateSchema(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validSchema()))
	err := r.Register(validSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistrySeal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validSchema()))
	r.Seal()
	r.Seal() // idempotent
	assert.True(t, r.Sealed())

	err := r.Register(Schema{Name: "late"})
	assert.ErrorIs(t, err, ErrSealed)

	// Reads keep working after sealing.
	_, ok := r.Get("lsdir")
	assert.True(t, ok)
}
