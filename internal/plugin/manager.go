package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tooltrain/tooltrain/internal/engine"
	"github.com/tooltrain/tooltrain/internal/observability"
	"github.com/tooltrain/tooltrain/internal/plugin/capability"
	"github.com/tooltrain/tooltrain/pkg/errutil"
)

// Manager discovers plugins and manages their lifecycle.
type Manager struct {
	pluginsDir string
	luaHost    Host
	enforcer   *capability.Enforcer
	engine     *engine.Engine
	metrics    *observability.Metrics
	builtins   map[string]engine.Plugin
	loaded     map[string]*DiscoveredPlugin
	mu         sync.RWMutex
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLuaHost sets the Lua host for the manager.
func WithLuaHost(h Host) ManagerOption {
	return func(m *Manager) {
		m.luaHost = h
	}
}

// WithEnforcer sets the capability enforcer. Grants from each manifest
// are installed before the plugin loads and removed when it unloads.
func WithEnforcer(e *capability.Enforcer) ManagerOption {
	return func(m *Manager) {
		m.enforcer = e
	}
}

// WithEngine sets the engine whose schema registry loaded plugins are
// registered into.
func WithEngine(e *engine.Engine) ManagerOption {
	return func(m *Manager) {
		m.engine = e
	}
}

// WithMetrics records plugin load attempts on the given host metrics.
func WithMetrics(m *observability.Metrics) ManagerOption {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithBuiltin registers an in-process plugin implementation for manifests
// with runtime "builtin".
func WithBuiltin(name string, p engine.Plugin) ManagerOption {
	return func(m *Manager) {
		m.builtins[name] = p
	}
}

// NewManager creates a plugin manager.
func NewManager(pluginsDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		pluginsDir: pluginsDir,
		builtins:   make(map[string]engine.Plugin),
		loaded:     make(map[string]*DiscoveredPlugin),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DiscoveredPlugin contains a manifest and its directory.
type DiscoveredPlugin struct {
	Manifest *Manifest
	Dir      string
}

// Discover finds all valid plugins in the plugins directory.
// Invalid plugins are logged and skipped.
func (m *Manager) Discover(_ context.Context) ([]*DiscoveredPlugin, error) {
	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No plugins directory
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	var plugins []*DiscoveredPlugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(m.pluginsDir, entry.Name())
		manifestPath := filepath.Join(pluginDir, "plugin.yaml")

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			slog.Warn("skipping plugin without manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		plugins = append(plugins, &DiscoveredPlugin{
			Manifest: manifest,
			Dir:      pluginDir,
		})
	}

	return plugins, nil
}

// LoadAll discovers and loads all plugins, then seals the engine's schema
// registry. Individual plugin failures are logged as warnings but don't
// fail the entire load, so the host starts even when some plugins have
// issues. Callers who need strict loading should use Discover +
// loadPlugin individually with error checking.
func (m *Manager) LoadAll(ctx context.Context) error {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	for _, dp := range discovered {
		if err := m.loadPlugin(ctx, dp); err != nil {
			m.metrics.RecordPluginLoad(string(dp.Manifest.Runtime), "error")
			errutil.LogError(slog.Default().With("plugin", dp.Manifest.Name),
				"failed to load plugin", err)
			continue
		}
		m.metrics.RecordPluginLoad(string(dp.Manifest.Runtime), "ok")
	}

	if m.engine != nil {
		m.engine.Registry().Seal()
	}
	return nil
}

// loadPlugin loads a single discovered plugin. It returns nil for
// unsupported configurations so one missing runtime doesn't take the
// whole host down; the warning logs provide visibility.
func (m *Manager) loadPlugin(ctx context.Context, dp *DiscoveredPlugin) error {
	if m.enforcer != nil {
		if err := m.enforcer.SetGrants(dp.Manifest.Name, dp.Manifest.Capabilities); err != nil {
			return fmt.Errorf("set grants for %s: %w", dp.Manifest.Name, err)
		}
	}

	var registrable engine.Plugin
	switch dp.Manifest.Runtime {
	case RuntimeLua:
		if m.luaHost == nil {
			slog.Warn("no Lua host configured, skipping Lua plugin",
				"plugin", dp.Manifest.Name)
			return nil
		}
		if err := m.luaHost.Load(ctx, dp.Manifest, dp.Dir); err != nil {
			return fmt.Errorf("load plugin %s: %w", dp.Manifest.Name, err)
		}
		if p, ok := m.luaHost.Discrete(dp.Manifest.Name); ok {
			registrable = p
		}
	case RuntimeBuiltin:
		p, ok := m.builtins[dp.Manifest.Name]
		if !ok {
			slog.Warn("no builtin implementation registered, skipping",
				"plugin", dp.Manifest.Name)
			return nil
		}
		registrable = p
	default:
		// Unknown runtimes should be rejected by Manifest.Validate.
		slog.Warn("unknown plugin runtime, skipping",
			"plugin", dp.Manifest.Name,
			"runtime", dp.Manifest.Runtime)
		return nil
	}

	if m.engine != nil && registrable != nil {
		if _, err := m.engine.Register(ctx, registrable); err != nil {
			return fmt.Errorf("register schema for %s: %w", dp.Manifest.Name, err)
		}
	}

	m.mu.Lock()
	m.loaded[dp.Manifest.Name] = dp
	m.mu.Unlock()

	slog.Info("loaded plugin",
		"plugin", dp.Manifest.Name,
		"runtime", dp.Manifest.Runtime,
		"mode", dp.Manifest.Mode,
		"version", dp.Manifest.Version)

	return nil
}

// Unload removes a loaded plugin and its capability grants.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	dp, ok := m.loaded[name]
	if ok {
		delete(m.loaded, name)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("plugin %s not loaded", name)
	}

	if m.enforcer != nil {
		m.enforcer.RemoveGrants(name)
	}
	if dp.Manifest.Runtime == RuntimeLua && m.luaHost != nil {
		return m.luaHost.Unload(ctx, name)
	}
	return nil
}

// Loaded returns the discovered plugin record for a loaded plugin.
func (m *Manager) Loaded(name string) (*DiscoveredPlugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dp, ok := m.loaded[name]
	return dp, ok
}

// ListPlugins returns names of all loaded plugins.
func (m *Manager) ListPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}

	// Sort for deterministic output
	sort.Strings(names)
	return names
}

// Close shuts down the manager and all loaded plugins.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Clear loaded map first to ensure consistent state even if close fails.
	m.loaded = make(map[string]*DiscoveredPlugin)

	if m.luaHost != nil {
		if err := m.luaHost.Close(ctx); err != nil {
			return fmt.Errorf("close lua host: %w", err)
		}
	}

	return nil
}
