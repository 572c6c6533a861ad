// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package lua_test

import (
	"context"
	"testing"

	pluginlua "github.com/tooltrain/tooltrain/internal/plugin/lua"
)

func TestStateFactoryLoadsSafeLibraries(t *testing.T) {
	factory := pluginlua.NewStateFactory()
	L, err := factory.NewState(context.Background())
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer L.Close()

	for _, lib := range []string{"table", "string", "math"} {
		if L.GetGlobal(lib).Type().String() == "nil" {
			t.Errorf("library %q not loaded", lib)
		}
	}
}

func TestStateFactoryBlocksUnsafeGlobals(t *testing.T) {
	factory := pluginlua.NewStateFactory()
	L, err := factory.NewState(context.Background())
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer L.Close()

	// os, io, debug and package reach outside the sandbox, as do the
	// file-loading base functions.
	blocked := []string{"os", "io", "debug", "package", "dofile", "loadfile", "loadstring", "load"}
	for _, name := range blocked {
		if L.GetGlobal(name).Type().String() != "nil" {
			t.Errorf("%q should not be visible in the sandbox", name)
		}
	}
}

func TestStateFactoryExecutesLua(t *testing.T) {
	factory := pluginlua.NewStateFactory()
	L, err := factory.NewState(context.Background())
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer L.Close()

	script := `
		t = {3, 1, 2}
		table.sort(t)
		result = string.upper("x") .. tostring(t[1]) .. tostring(math.abs(-4))
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := L.GetGlobal("result").String(); got != "X14" {
		t.Errorf("result = %q, want %q", got, "X14")
	}
}

func TestStateFactoryStatesAreIndependent(t *testing.T) {
	factory := pluginlua.NewStateFactory()

	L1, err := factory.NewState(context.Background())
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer L1.Close()

	L2, err := factory.NewState(context.Background())
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer L2.Close()

	if err := L1.DoString(`foo = "bar"`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if L2.GetGlobal("foo").Type().String() != "nil" {
		t.Error("global set in one state leaked into another")
	}
}
