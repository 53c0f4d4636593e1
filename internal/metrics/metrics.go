// Package metrics exposes workflow observability instruments and the
// debug HTTP server that serves them. The Recorder interface is what the
// coordinator calls; the Prometheus-backed Collector and the Noop
// recorder both satisfy it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gafferworks/gaffer/internal/clock"
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
)

// namespace prefixes every instrument name.
const namespace = "gaffer"

// Recorder collects workflow observations. Implementations must be safe
// for concurrent use.
type Recorder interface {
	// TransitionApplied is called after each committed transition.
	TransitionApplied(record domain.TransitionRecord)

	// RecoveryAttempted is called after each recovery strategy execution.
	RecoveryAttempted(strategy constants.StrategyKind, success bool)

	// WorkflowFinished is called when a workflow reaches a terminal state.
	WorkflowFinished(outcome constants.WorkflowStatus)
}

// Noop is a no-op Recorder for when metrics collection is not needed.
type Noop struct{}

// Ensure Noop implements Recorder.
var _ Recorder = (*Noop)(nil)

// TransitionApplied implements Recorder.
func (Noop) TransitionApplied(domain.TransitionRecord) {}

// RecoveryAttempted implements Recorder.
func (Noop) RecoveryAttempted(constants.StrategyKind, bool) {}

// WorkflowFinished implements Recorder.
func (Noop) WorkflowFinished(constants.WorkflowStatus) {}

// trackedStatuses enumerates every status the workflow_state gauge
// reports, so the inactive series read 0 instead of going absent.
//
//nolint:gochecknoglobals // fixed status set shared by every collector
var trackedStatuses = []constants.WorkflowStatus{
	constants.StatusNone,
	constants.StatusUnassigned,
	constants.StatusAssigned,
	constants.StatusInProgress,
	constants.StatusBlocked,
	constants.StatusReadyForReview,
	constants.StatusUnderReview,
	constants.StatusChangesRequested,
	constants.StatusApproved,
	constants.StatusMergeConflict,
	constants.StatusCIFailure,
	constants.StatusMerged,
	constants.StatusAbandoned,
}

// Collector is the Prometheus-backed Recorder. Instruments live in a
// collector-owned registry, never the global default one.
type Collector struct {
	registry *prometheus.Registry
	clk      clock.Clock
	started  time.Time

	transitions      *prometheus.CounterVec
	recoveryAttempts *prometheus.CounterVec
	workflowState    *prometheus.GaugeVec
	completed        *prometheus.CounterVec
}

// Ensure Collector implements Recorder.
var _ Recorder = (*Collector)(nil)

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithCollectorClock replaces the clock behind the uptime gauge.
func WithCollectorClock(c clock.Clock) CollectorOption {
	return func(col *Collector) {
		col.clk = c
	}
}

// NewCollector builds a Collector with a fresh registry and all
// instruments registered.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		clk:      clock.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.started = c.clk.Now()

	c.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Workflow transitions committed, by event and resulting status.",
	}, []string{"event", "to_status"})

	c.recoveryAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recovery_attempts_total",
		Help:      "Recovery strategy executions, by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	c.workflowState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workflow_state",
		Help:      "Workflow state indicator: 1 for the current status, 0 otherwise.",
	}, []string{"status"})

	c.completed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflows_completed_total",
		Help:      "Workflows that reached a terminal state, by outcome.",
	}, []string{"outcome"})

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the collector was created.",
	}, func() float64 {
		return c.clk.Now().Sub(c.started).Seconds()
	})

	c.registry.MustRegister(c.transitions, c.recoveryAttempts, c.workflowState, c.completed, uptime)
	return c
}

// TransitionApplied implements Recorder.
func (c *Collector) TransitionApplied(record domain.TransitionRecord) {
	c.transitions.WithLabelValues(record.Event, string(record.ToStatus)).Inc()
	c.setState(record.ToStatus)
}

// RecoveryAttempted implements Recorder.
func (c *Collector) RecoveryAttempted(strategy constants.StrategyKind, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.recoveryAttempts.WithLabelValues(string(strategy), outcome).Inc()
}

// WorkflowFinished implements Recorder.
func (c *Collector) WorkflowFinished(outcome constants.WorkflowStatus) {
	c.completed.WithLabelValues(string(outcome)).Inc()
}

// Registry returns the collector's registry for custom exporters.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the /metrics handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// setState marks one status active on the workflow_state gauge and all
// others inactive.
func (c *Collector) setState(active constants.WorkflowStatus) {
	for _, status := range trackedStatuses {
		value := 0.0
		if status == active {
			value = 1.0
		}
		c.workflowState.WithLabelValues(string(status)).Set(value)
	}
}
