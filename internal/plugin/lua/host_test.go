// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package lua_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plugins "github.com/tooltrain/tooltrain/internal/plugin"
	pluginlua "github.com/tooltrain/tooltrain/internal/plugin/lua"
)

const greeterScript = `
function get_schema()
	return {
		name = "greeter",
		description = "greets a subject",
		arguments = {
			{ name = "subject", description = "who to greet", data_type = "string" },
		},
	}
end

function run(args)
	return {
		{ name = "greeting", data_type = "string", value = "hello " .. args.subject },
	}
end
`

func writePlugin(t *testing.T, name, script string) (*plugins.Manifest, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.lua"), []byte(script), 0o600))
	return &plugins.Manifest{
		Name:      name,
		Version:   "1.0.0",
		Runtime:   plugins.RuntimeLua,
		Mode:      plugins.ModeDiscrete,
		LuaPlugin: &plugins.LuaConfig{Entry: "main.lua"},
	}, dir
}

func TestHostLoadAndRun(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	manifest, dir := writePlugin(t, "greeter", greeterScript)
	require.NoError(t, host.Load(ctx, manifest, dir))
	assert.Equal(t, []string{"greeter"}, host.Plugins())

	p, ok := host.Discrete("greeter")
	require.True(t, ok)

	sch, err := p.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, "greeter", sch.Name)
	require.Len(t, sch.Arguments, 1)
	assert.Equal(t, "subject", sch.Arguments[0].Name)
	assert.Equal(t, "string", sch.Arguments[0].DataType)

	outputs, err := p.Run(ctx, [][]byte{[]byte("world")})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "greeting", outputs[0].Name)
	assert.Equal(t, []byte("hello world"), outputs[0].Value)
}

func TestHostLoadRejectsSyntaxError(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	manifest, dir := writePlugin(t, "broken", `function get_schema( BROKEN`)
	err := host.Load(ctx, manifest, dir)
	require.Error(t, err)
	assert.Empty(t, host.Plugins())
}

func TestHostLoadRequiresEntryFunctions(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	manifest, dir := writePlugin(t, "incomplete", `function get_schema() return {} end`)
	err := host.Load(ctx, manifest, dir)
	require.Error(t, err)
	assert.ErrorContains(t, err, "run()")
}

func TestHostLoadMissingEntryFile(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	manifest := &plugins.Manifest{
		Name:      "ghost",
		Version:   "1.0.0",
		Runtime:   plugins.RuntimeLua,
		Mode:      plugins.ModeDiscrete,
		LuaPlugin: &plugins.LuaConfig{Entry: "nope.lua"},
	}
	err := host.Load(ctx, manifest, t.TempDir())
	require.Error(t, err)
}

func TestHostUnload(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	manifest, dir := writePlugin(t, "greeter", greeterScript)
	require.NoError(t, host.Load(ctx, manifest, dir))
	require.NoError(t, host.Unload(ctx, "greeter"))
	assert.Empty(t, host.Plugins())

	_, ok := host.Discrete("greeter")
	assert.False(t, ok)

	assert.Error(t, host.Unload(ctx, "greeter"))
}

func TestHostRunArgumentCountMismatch(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	manifest, dir := writePlugin(t, "greeter", greeterScript)
	require.NoError(t, host.Load(ctx, manifest, dir))

	p, _ := host.Discrete("greeter")
	_, err := p.Run(ctx, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "argument count mismatch")
}

func TestHostRunPropagatesLuaError(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	script := `
function get_schema()
	return { name = "crasher", arguments = {} }
end
function run(args)
	error("deliberate failure")
end
`
	manifest, dir := writePlugin(t, "crasher", script)
	require.NoError(t, host.Load(ctx, manifest, dir))

	p, _ := host.Discrete("crasher")
	_, err := p.Run(ctx, [][]byte{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "deliberate failure")
}

func TestHostRunSkipsInvalidOutputs(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	script := `
function get_schema()
	return { name = "mixed", arguments = {} }
end
function run(args)
	return {
		{ name = "good", value = "1" },
		{ value = "no name" },
		"not a table",
		{ name = "also-good", value = "2" },
	}
end
`
	manifest, dir := writePlugin(t, "mixed", script)
	require.NoError(t, host.Load(ctx, manifest, dir))

	p, _ := host.Discrete("mixed")
	outputs, err := p.Run(ctx, [][]byte{})
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "good", outputs[0].Name)
	assert.Equal(t, "also-good", outputs[1].Name)
}

func TestHostSchemaFallsBackToManifest(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	defer func() { _ = host.Close(ctx) }()

	script := `
function get_schema()
	return { arguments = {} }
end
function run(args)
	return {}
end
`
	manifest, dir := writePlugin(t, "anon", script)
	manifest.Description = "description from manifest"
	require.NoError(t, host.Load(ctx, manifest, dir))

	p, _ := host.Discrete("anon")
	sch, err := p.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, "anon", sch.Name)
	assert.Equal(t, "description from manifest", sch.Description)
}

func TestHostClosedRejectsLoad(t *testing.T) {
	ctx := context.Background()
	host := pluginlua.NewHost()
	require.NoError(t, host.Close(ctx))

	manifest, dir := writePlugin(t, "late", greeterScript)
	err := host.Load(ctx, manifest, dir)
	require.Error(t, err)
	assert.ErrorContains(t, err, "closed")
}
