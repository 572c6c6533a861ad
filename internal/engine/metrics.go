// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values for run metrics.
const (
	modeDiscrete  = "discrete"
	modeStreaming = "streaming"

	statusSuccess = "success"
	statusError   = "error"
)

// runsTotal counts plugin runs by mode and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var runsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tooltrain_plugin_runs_total",
		Help: "Total number of plugin runs",
	},
	[]string{"plugin", "mode", "status"},
)

// runDuration is the histogram of run durations. For streaming runs this
// measures the plugin's Run call, not the lifetime of its resources.
var runDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tooltrain_plugin_run_duration_seconds",
		Help:    "Plugin run duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"plugin", "mode"},
)

// instancesLive gauges streaming instances that have started and not yet
// been closed.
var instancesLive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "tooltrain_streaming_instances_live",
		Help: "Streaming instances started and not yet closed",
	},
)

// triggerRunsSuppressed counts discrete re-runs skipped because the
// schema declares a state change.
var triggerRunsSuppressed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tooltrain_trigger_runs_suppressed_total",
		Help: "Automatic re-runs suppressed for state-changing plugins",
	},
	[]string{"plugin"},
)

// RegisterMetrics registers engine metrics with the given Prometheus
// registry. Panics if registration fails (following prometheus
// convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(runsTotal)
	reg.MustRegister(runDuration)
	reg.MustRegister(instancesLive)
	reg.MustRegister(triggerRunsSuppressed)
}
