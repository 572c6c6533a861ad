// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package lua

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/tooltrain/tooltrain/internal/engine"
	plugins "github.com/tooltrain/tooltrain/internal/plugin"
	"github.com/tooltrain/tooltrain/internal/schema"
)

// Compile-time interface check.
var _ plugins.Host = (*Host)(nil)

// luaPlugin holds loaded Lua code for a plugin.
type luaPlugin struct {
	manifest *plugins.Manifest
	code     string
}

// Host manages Lua plugins. A Lua plugin is a script that defines two
// globals: get_schema(), returning the plugin's argument schema, and
// run(args), receiving argument values keyed by name and returning the
// run's outputs. Each call executes in a fresh sandboxed state.
type Host struct {
	factory *StateFactory
	plugins map[string]*luaPlugin
	mu      sync.RWMutex
	closed  bool
}

// NewHost creates a Lua plugin host.
func NewHost() *Host {
	return &Host{
		factory: NewStateFactory(),
		plugins: make(map[string]*luaPlugin),
	}
}

// Load reads and validates a Lua plugin: the entry script must run
// cleanly and define both get_schema and run.
func (h *Host) Load(ctx context.Context, manifest *plugins.Manifest, dir string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	errb := oops.In("lua").With("plugin", manifest.Name).With("operation", "load")
	if h.closed {
		return errb.New("host is closed")
	}

	entryPath := filepath.Join(dir, manifest.LuaPlugin.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return errb.With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	L, err := h.factory.NewState(ctx)
	if err != nil {
		return errb.Hint("failed to create validation state").Wrap(err)
	}
	defer L.Close()

	if err := L.DoString(string(code)); err != nil {
		return errb.With("entry", manifest.LuaPlugin.Entry).Hint("syntax error").Wrap(err)
	}
	for _, fn := range []string{"get_schema", "run"} {
		if L.GetGlobal(fn).Type() != lua.LTFunction {
			return errb.With("entry", manifest.LuaPlugin.Entry).
				Errorf("plugin does not define %s()", fn)
		}
	}

	h.plugins[manifest.Name] = &luaPlugin{
		manifest: manifest,
		code:     string(code),
	}

	return nil
}

// Unload removes a plugin.
func (h *Host) Unload(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.plugins[name]; !ok {
		return oops.In("lua").With("plugin", name).With("operation", "unload").New("plugin not loaded")
	}
	delete(h.plugins, name)
	return nil
}

// Discrete returns the named plugin as a one-shot runner.
func (h *Host) Discrete(name string) (engine.DiscretePlugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.plugins[name]; !ok {
		return nil, false
	}
	return &discretePlugin{host: h, name: name}, true
}

// Plugins returns names of loaded plugins.
func (h *Host) Plugins() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.plugins))
	for name := range h.plugins {
		names = append(names, name)
	}
	return names
}

// Close shuts down the host.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.plugins = nil
	return nil
}

func (h *Host) code(name string) (*luaPlugin, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.plugins[name]
	if !ok {
		return nil, oops.In("lua").With("plugin", name).New("plugin not loaded")
	}
	return p, nil
}

// discretePlugin adapts a loaded script to the engine's one-shot
// contract. Every call runs in a fresh state, so a crashed run cannot
// poison the next one.
type discretePlugin struct {
	host *Host
	name string
}

func (p *discretePlugin) Schema(ctx context.Context) (schema.Schema, error) {
	lp, err := p.host.code(p.name)
	if err != nil {
		return schema.Schema{}, err
	}
	L, err := p.host.newLoadedState(ctx, p.name, lp.code)
	if err != nil {
		return schema.Schema{}, err
	}
	defer L.Close()

	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("get_schema"),
		NRet:    1,
		Protect: true,
	}); err != nil {
		return schema.Schema{}, oops.In("lua").With("plugin", p.name).With("operation", "get_schema").Wrap(err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	table, ok := ret.(*lua.LTable)
	if !ok {
		return schema.Schema{}, oops.In("lua").With("plugin", p.name).
			Errorf("get_schema() returned %s, want table", ret.Type())
	}

	sch := parseSchemaTable(table, lp.manifest)
	if err := sch.Validate(); err != nil {
		return schema.Schema{}, err
	}
	return sch, nil
}

func (p *discretePlugin) Run(ctx context.Context, args [][]byte) ([]engine.Output, error) {
	sch, err := p.Schema(ctx)
	if err != nil {
		return nil, err
	}
	if len(args) != len(sch.Arguments) {
		return nil, oops.In("lua").With("plugin", p.name).
			With("want", len(sch.Arguments)).With("got", len(args)).
			New("argument count mismatch")
	}

	lp, err := p.host.code(p.name)
	if err != nil {
		return nil, err
	}
	L, err := p.host.newLoadedState(ctx, p.name, lp.code)
	if err != nil {
		return nil, err
	}
	defer L.Close()

	// run(args) sees argument values keyed by schema argument name.
	argTable := L.NewTable()
	for i, spec := range sch.Arguments {
		if args[i] != nil {
			argTable.RawSetString(spec.Name, lua.LString(args[i]))
		}
	}

	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("run"),
		NRet:    1,
		Protect: true,
	}, argTable); err != nil {
		return nil, oops.In("lua").With("plugin", p.name).With("operation", "run").Wrap(err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	outputs, validationErrs := parseOutputs(ret)
	if len(validationErrs) > 0 {
		slog.Warn("plugin output validation errors",
			"plugin", p.name,
			"error_count", len(validationErrs),
			"errors", validationErrs)
	}
	return outputs, nil
}

// newLoadedState creates a fresh sandboxed state with the plugin's code
// already executed.
func (h *Host) newLoadedState(ctx context.Context, name, code string) (*lua.LState, error) {
	L, err := h.factory.NewState(ctx)
	if err != nil {
		return nil, oops.In("lua").With("plugin", name).Hint("failed to create state").Wrap(err)
	}
	L.SetContext(ctx)
	if err := L.DoString(code); err != nil {
		L.Close()
		return nil, oops.In("lua").With("plugin", name).Hint("failed to load code").Wrap(err)
	}
	return L, nil
}

// parseSchemaTable maps a get_schema() result onto a schema. Missing
// name and description fall back to the manifest.
func parseSchemaTable(t *lua.LTable, manifest *plugins.Manifest) schema.Schema {
	sch := schema.Schema{
		Name:                stringField(t, "name", manifest.Name),
		Description:         stringField(t, "description", manifest.Description),
		PerformsStateChange: boolField(t, "performs_state_change", manifest.PerformsStateChange),
	}

	argsVal := t.RawGetString("arguments")
	argsTable, ok := argsVal.(*lua.LTable)
	if !ok {
		return sch
	}
	argsTable.ForEach(func(_, v lua.LValue) {
		at, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		sch.Arguments = append(sch.Arguments, schema.ArgumentSpec{
			Name:            stringField(at, "name", ""),
			Description:     stringField(at, "description", ""),
			DataType:        stringField(at, "data_type", ""),
			SupportsUpdates: boolField(at, "supports_updates", false),
		})
	})
	return sch
}

func parseOutputs(ret lua.LValue) (outputs []engine.Output, validationErrs []string) {
	if ret.Type() == lua.LTNil {
		return nil, nil
	}

	table, ok := ret.(*lua.LTable)
	if !ok {
		return nil, []string{"returned non-table value: " + ret.Type().String()}
	}

	index := 0
	table.ForEach(func(_, v lua.LValue) {
		index++

		outTable, ok := v.(*lua.LTable)
		if !ok {
			validationErrs = append(validationErrs,
				fmt.Sprintf("entry[%d]: expected table, got %s", index, v.Type().String()))
			return
		}

		name := stringField(outTable, "name", "")
		if name == "" {
			validationErrs = append(validationErrs,
				fmt.Sprintf("entry[%d]: missing required 'name' field", index))
			return
		}
		value := outTable.RawGetString("value")
		if value.Type() == lua.LTNil {
			validationErrs = append(validationErrs,
				fmt.Sprintf("entry[%d]: missing required 'value' field (name=%s)", index, name))
			return
		}

		outputs = append(outputs, engine.Output{
			Name:        name,
			Description: stringField(outTable, "description", ""),
			DataType:    stringField(outTable, "data_type", "string"),
			Value:       []byte(value.String()),
		})
	})

	return outputs, validationErrs
}

func stringField(t *lua.LTable, key, fallback string) string {
	v := t.RawGetString(key)
	if v.Type() != lua.LTString {
		return fallback
	}
	return v.String()
}

func boolField(t *lua.LTable, key string, fallback bool) bool {
	v := t.RawGetString(key)
	if v.Type() != lua.LTBool {
		return fallback
	}
	return v == lua.LTrue
}
