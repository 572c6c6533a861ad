// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

//go:build integration

package integration

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tooltrain/tooltrain/internal/engine"
	"github.com/tooltrain/tooltrain/internal/host"
	"github.com/tooltrain/tooltrain/internal/plugin"
	"github.com/tooltrain/tooltrain/internal/plugin/capability"
	pluginlua "github.com/tooltrain/tooltrain/internal/plugin/lua"
	"github.com/tooltrain/tooltrain/internal/schema"
	"github.com/tooltrain/tooltrain/plugins/lsdir"
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

const greeterManifest = `
name: greeter
version: 1.0.0
description: greets a subject
runtime: lua
mode: discrete
lua-plugin:
  entry: main.lua
`

const lsdirManifest = `
name: lsdir
version: 1.0.0
description: List files in a directory
runtime: builtin
mode: streaming
capabilities:
  - fs.read.dir
`

var _ = Describe("Plugin host", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		manager  *plugin.Manager
		luaHost  *pluginlua.Host
		enforcer *capability.Enforcer
		eng      *engine.Engine
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)

		pluginsDir := GinkgoT().TempDir()

		greeterDir := filepath.Join(pluginsDir, "greeter")
		Expect(os.MkdirAll(greeterDir, 0o700)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(greeterDir, "plugin.yaml"), []byte(greeterManifest), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(greeterDir, "main.lua"), []byte(greeterScript), 0o600)).To(Succeed())

		lsdirDir := filepath.Join(pluginsDir, "lsdir")
		Expect(os.MkdirAll(lsdirDir, 0o700)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(lsdirDir, "plugin.yaml"), []byte(lsdirManifest), 0o600)).To(Succeed())

		enforcer = capability.NewEnforcer()
		luaHost = pluginlua.NewHost()
		eng = engine.New(schema.NewRegistry(), slog.Default())
		manager = plugin.NewManager(pluginsDir,
			plugin.WithLuaHost(luaHost),
			plugin.WithEnforcer(enforcer),
			plugin.WithEngine(eng),
			plugin.WithBuiltin(lsdir.Name, lsdir.New(lsdir.WithEnforcer(enforcer))),
		)

		Expect(manager.LoadAll(ctx)).To(Succeed())
	})

	AfterEach(func() {
		Expect(manager.Close(ctx)).To(Succeed())
		cancel()
	})

	It("loads every discovered plugin and seals the registry", func() {
		Expect(manager.ListPlugins()).To(Equal([]string{"greeter", "lsdir"}))
		Expect(eng.Registry().Sealed()).To(BeTrue())

		sch, ok := eng.Registry().Get("lsdir")
		Expect(ok).To(BeTrue())
		Expect(sch.Outputs).To(HaveLen(1))
	})

	It("runs a discovered Lua plugin discretely", func() {
		p, ok := luaHost.Discrete("greeter")
		Expect(ok).To(BeTrue())

		outputs, err := eng.RunDiscrete(ctx, p, [][]byte{[]byte("world")})
		Expect(err).NotTo(HaveOccurred())
		Expect(outputs).To(HaveLen(1))
		Expect(outputs[0].Name).To(Equal("greeting"))
		Expect(string(outputs[0].Value)).To(Equal("hello world"))
	})

	Describe("streaming the lsdir builtin", func() {
		var (
			listDir string
			inst    *engine.Instance
		)

		BeforeEach(func() {
			listDir = GinkgoT().TempDir()
			for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
				Expect(os.WriteFile(filepath.Join(listDir, name), []byte("x"), 0o600)).To(Succeed())
			}

			var err error
			inst, err = eng.Start(ctx, lsdir.New(lsdir.WithEnforcer(enforcer), lsdir.WithPageSize(2)),
				map[string][]byte{"directory": []byte(listDir)})
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			inst.Close()
			_, err := inst.Result(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		filesOutput := func() *host.ListOutput {
			var out *host.ListOutput
			Eventually(func() bool {
				for _, r := range inst.Outputs().Resources() {
					if lo, ok := r.(*host.ListOutput); ok {
						out = lo
						return true
					}
				}
				return false
			}).Should(BeTrue())
			return out
		}

		names := func(out *host.ListOutput) []string {
			rows := out.Get()
			got := make([]string, 0, len(rows))
			for _, row := range rows {
				var e lsdir.Entry
				Expect(cbor.Unmarshal(row, &e)).To(Succeed())
				got = append(got, e.Name)
			}
			return got
		}

		It("publishes pages of entries on demand", func() {
			out := filesOutput()

			Eventually(func() []string { return names(out) }).Should(Equal([]string{"a.txt", "b.txt"}))
			Expect(out.HasMoreRows()).To(BeTrue())

			Expect(out.RequestMore(0)).To(Succeed())
			Eventually(func() []string { return names(out) }).Should(Equal([]string{"a.txt", "b.txt", "c.txt"}))
			Eventually(out.HasMoreRows).Should(BeFalse())
		})

		It("reloads when the directory argument changes", func() {
			out := filesOutput()
			Eventually(func() []string { return names(out) }).ShouldNot(BeEmpty())

			other := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(other, "only.txt"), []byte("x"), 0o600)).To(Succeed())

			in, ok := inst.Inputs().Resources()[0].(*host.ValueInput)
			Expect(ok).To(BeTrue())
			Expect(in.Set([]byte(other))).To(Succeed())

			Eventually(func() []string { return names(out) }).Should(Equal([]string{"only.txt"}))
		})
	})

	It("denies streaming runs without the required grant", func() {
		bare := capability.NewEnforcer()
		inst, err := eng.Start(ctx, lsdir.New(lsdir.WithEnforcer(bare)),
			map[string][]byte{"directory": []byte(GinkgoT().TempDir())})
		Expect(err).NotTo(HaveOccurred())
		defer inst.Close()

		_, err = inst.Result(ctx)
		var capErr *capability.Error
		Expect(errors.As(err, &capErr)).To(BeTrue())
		Expect(capErr.Capability).To(Equal("fs.read.dir"))
	})
})
