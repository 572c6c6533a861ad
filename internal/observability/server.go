// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

// Package observability serves Prometheus metrics and health probes for
// the plugin host.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/tooltrain/tooltrain/internal/engine"
)

// ReadinessChecker reports whether the host is ready to serve.
type ReadinessChecker func() bool

// Metrics holds the host counters. The manager records plugin loads,
// streaming plugins record the requests they service and the output
// writes they lose. Every recording method is nil-safe so callers run
// unchanged with metrics disabled.
type Metrics struct {
	PluginLoadsTotal    *prometheus.CounterVec
	RequestsTotal       *prometheus.CounterVec
	OutputWriteFailures *prometheus.CounterVec
}

// NewMetrics builds the host counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PluginLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tooltrain_plugin_loads_total",
				Help: "Total number of plugin load attempts by runtime and status",
			},
			[]string{"runtime", "status"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tooltrain_requests_total",
				Help: "Total number of host requests by type and status",
			},
			[]string{"type", "status"},
		),
		OutputWriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tooltrain_output_write_failures_total",
				Help: "Total number of plugin output write failures by plugin",
			},
			[]string{"plugin"},
		),
	}
	reg.MustRegister(m.PluginLoadsTotal, m.RequestsTotal, m.OutputWriteFailures)
	return m
}

// RecordPluginLoad counts one plugin load attempt.
func (m *Metrics) RecordPluginLoad(runtime, status string) {
	if m == nil {
		return
	}
	m.PluginLoadsTotal.WithLabelValues(runtime, status).Inc()
}

// RecordRequest counts one serviced host request, such as a list
// load-more.
func (m *Metrics) RecordRequest(kind, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(kind, status).Inc()
}

// RecordOutputWriteFailure counts a failed write to a plugin output.
func (m *Metrics) RecordOutputWriteFailure(plugin string) {
	if m == nil {
		return
	}
	m.OutputWriteFailures.WithLabelValues(plugin).Inc()
}

// Server exposes /metrics and Kubernetes-style health probes on its own
// registry, so tests and embedders never collide on the global one.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer builds a server listening on addr ("host:port", ":9100" for
// all interfaces). A nil readiness checker means always ready.
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(registry)
	engine.RegisterMetrics(registry)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  metrics,
		isReady:  readinessChecker,
	}
}

// Metrics returns the host counters registered with this server.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)
	return mux
}

// Start binds the listener and serves in the background. Serve errors
// after startup arrive on the returned channel; it closes on graceful
// shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.In("observability").New("server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.In("observability").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop shuts the server down gracefully. Stopping a server that never
// started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.In("observability").Wrapf(err, "shutting down server")
		}
	}
	slog.Info("observability server stopped")
	return nil
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, "ok\n")
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if s.isReady == nil || s.isReady() {
		writeProbe(w, http.StatusOK, "ok\n")
		return
	}
	writeProbe(w, http.StatusServiceUnavailable, "not ready\n")
}

func writeProbe(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // probe clients may disconnect mid-write
	w.Write([]byte(body))
}
