package metrics_test

import (
	"maps"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/clock"
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
	"github.com/gafferworks/gaffer/internal/metrics"
)

// gatherValue reads one instrument value from the registry, failing the
// test when no series matches the name and label set.
func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			got := make(map[string]string, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				got[pair.GetName()] = pair.GetValue()
			}
			if !maps.Equal(got, labels) {
				continue
			}
			if counter := metric.GetCounter(); counter != nil {
				return counter.GetValue()
			}
			if gauge := metric.GetGauge(); gauge != nil {
				return gauge.GetValue()
			}
		}
	}

	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func transitionTo(event string, to constants.WorkflowStatus) domain.TransitionRecord {
	return domain.TransitionRecord{
		ToStatus:  to,
		Event:     event,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  25 * time.Millisecond,
	}
}

func TestCollector_UptimeFollowsClock(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	collector := metrics.NewCollector(metrics.WithCollectorClock(clk))

	assert.InDelta(t, 0, gatherValue(t, collector.Registry(), "gaffer_uptime_seconds", map[string]string{}), 0.001)

	clk.Advance(90 * time.Second)
	assert.InDelta(t, 90, gatherValue(t, collector.Registry(), "gaffer_uptime_seconds", map[string]string{}), 0.001)
}

func TestCollector_TransitionApplied(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()

	collector.TransitionApplied(transitionTo("assign_agent", constants.StatusAssigned))
	collector.TransitionApplied(transitionTo("start_work", constants.StatusInProgress))
	collector.TransitionApplied(transitionTo("make_progress", constants.StatusInProgress))

	reg := collector.Registry()
	assert.InDelta(t, 1, gatherValue(t, reg, "gaffer_transitions_total",
		map[string]string{"event": "assign_agent", "to_status": "assigned"}), 0.001)
	assert.InDelta(t, 1, gatherValue(t, reg, "gaffer_transitions_total",
		map[string]string{"event": "start_work", "to_status": "in_progress"}), 0.001)
	assert.InDelta(t, 1, gatherValue(t, reg, "gaffer_transitions_total",
		map[string]string{"event": "make_progress", "to_status": "in_progress"}), 0.001)

	// The gauge tracks only the latest status.
	assert.InDelta(t, 1, gatherValue(t, reg, "gaffer_workflow_state",
		map[string]string{"status": "in_progress"}), 0.001)
	assert.InDelta(t, 0, gatherValue(t, reg, "gaffer_workflow_state",
		map[string]string{"status": "assigned"}), 0.001)
	assert.InDelta(t, 0, gatherValue(t, reg, "gaffer_workflow_state",
		map[string]string{"status": "merged"}), 0.001)
}

func TestCollector_RecoveryAttempted(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()

	collector.RecoveryAttempted(constants.StrategyRetry, true)
	collector.RecoveryAttempted(constants.StrategyRetry, true)
	collector.RecoveryAttempted(constants.StrategyRetry, false)
	collector.RecoveryAttempted(constants.StrategyEscalate, false)

	reg := collector.Registry()
	assert.InDelta(t, 2, gatherValue(t, reg, "gaffer_recovery_attempts_total",
		map[string]string{"strategy": "retry_with_backoff", "outcome": "success"}), 0.001)
	assert.InDelta(t, 1, gatherValue(t, reg, "gaffer_recovery_attempts_total",
		map[string]string{"strategy": "retry_with_backoff", "outcome": "failure"}), 0.001)
	assert.InDelta(t, 1, gatherValue(t, reg, "gaffer_recovery_attempts_total",
		map[string]string{"strategy": "escalate", "outcome": "failure"}), 0.001)
}

func TestCollector_WorkflowFinished(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()

	collector.WorkflowFinished(constants.StatusMerged)
	collector.WorkflowFinished(constants.StatusMerged)
	collector.WorkflowFinished(constants.StatusAbandoned)

	reg := collector.Registry()
	assert.InDelta(t, 2, gatherValue(t, reg, "gaffer_workflows_completed_total",
		map[string]string{"outcome": "merged"}), 0.001)
	assert.InDelta(t, 1, gatherValue(t, reg, "gaffer_workflows_completed_total",
		map[string]string{"outcome": "abandoned"}), 0.001)
}

func TestNoop_AcceptsAllObservations(t *testing.T) {
	t.Parallel()

	var recorder metrics.Recorder = metrics.Noop{}

	recorder.TransitionApplied(transitionTo("assign_agent", constants.StatusAssigned))
	recorder.RecoveryAttempted(constants.StrategyAutomatedFix, true)
	recorder.WorkflowFinished(constants.StatusAbandoned)
}
