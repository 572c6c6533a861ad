// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/tooltrain/tooltrain/internal/engine"
	"github.com/tooltrain/tooltrain/internal/logging"
	"github.com/tooltrain/tooltrain/internal/observability"
	"github.com/tooltrain/tooltrain/internal/plugin"
	"github.com/tooltrain/tooltrain/internal/plugin/capability"
	pluginlua "github.com/tooltrain/tooltrain/internal/plugin/lua"
	"github.com/tooltrain/tooltrain/internal/schema"
	"github.com/tooltrain/tooltrain/internal/xdg"
	"github.com/tooltrain/tooltrain/pkg/errutil"
	"github.com/tooltrain/tooltrain/plugins/lsdir"
)

// runConfig holds configuration for the run command.
type runConfig struct {
	pluginsDir  string
	metricsAddr string
	logFormat   string
	logLevel    string
}

// Validate checks that the configuration is valid.
func (cfg *runConfig) Validate() error {
	if cfg.pluginsDir == "" {
		return fmt.Errorf("plugins-dir is required")
	}
	if cfg.logFormat != "json" && cfg.logFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.logFormat)
	}
	return nil
}

const (
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultLogFormat   = "json"
	defaultLogLevel    = "info"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the plugin host",
		Long: `Start the plugin host: discover plugins in the plugins directory,
load them, and serve metrics and health endpoints until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("plugins-dir", xdg.PluginsDir(), "plugin installation directory")
	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	return cmd
}

// loadRunConfig merges the optional YAML config file with command-line
// flags. Flags set explicitly win over the file; flag defaults fill the
// rest.
func loadRunConfig(cmd *cobra.Command) (*runConfig, error) {
	k := koanf.New(".")

	path := configFile
	if path == "" {
		candidate := xdg.ConfigDir() + "/config.yaml"
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
		return nil, fmt.Errorf("loading flags: %w", err)
	}

	cfg := &runConfig{
		pluginsDir:  k.String("plugins-dir"),
		metricsAddr: k.String("metrics-addr"),
		logFormat:   k.String("log-format"),
		logLevel:    k.String("log-level"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runHost starts the plugin host and blocks until SIGINT/SIGTERM.
func runHost(ctx context.Context, cfg *runConfig) error {
	logging.SetDefault("tooltrain", version, cfg.logFormat, logging.ParseLevel(cfg.logLevel))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enforcer := capability.NewEnforcer()
	luaHost := pluginlua.NewHost()
	registry := schema.NewRegistry()
	eng := engine.New(registry, slog.Default())

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.metricsAddr != "" {
		obsServer = observability.NewServer(cfg.metricsAddr, registry.Sealed)
		metrics = obsServer.Metrics()
	}

	manager := plugin.NewManager(cfg.pluginsDir,
		plugin.WithLuaHost(luaHost),
		plugin.WithEnforcer(enforcer),
		plugin.WithEngine(eng),
		plugin.WithMetrics(metrics),
		plugin.WithBuiltin(lsdir.Name, lsdir.New(
			lsdir.WithEnforcer(enforcer),
			lsdir.WithMetrics(metrics),
		)),
	)

	if err := manager.LoadAll(ctx); err != nil {
		return fmt.Errorf("loading plugins: %w", err)
	}
	slog.Info("plugin host ready",
		"plugins", manager.ListPlugins(),
		"plugins_dir", cfg.pluginsDir)

	var obsErrCh <-chan error
	if obsServer != nil {
		errCh, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("starting observability server: %w", err)
		}
		obsErrCh = errCh
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-obsErrCh:
		if err != nil {
			errutil.LogError(slog.Default(), "observability server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Error("failed to stop observability server", "error", err)
		}
	}
	if err := manager.Close(shutdownCtx); err != nil {
		return fmt.Errorf("closing plugin manager: %w", err)
	}
	return nil
}
