package coordinator

import "context"

// LifecycleReport summarizes one recovery sweep over workflow-adjacent
// resources.
type LifecycleReport struct {
	// Checked counts resources the sweep examined.
	Checked int `json:"checked"`

	// Repaired counts resources the sweep had to fix or remove.
	Repaired int `json:"repaired"`

	// Details describes each repair, one entry per repaired resource.
	Details []string `json:"details,omitempty"`
}

// LifecycleRecoverer repairs resources a crashed or interrupted run can
// leave behind: stale working branches, leftover labels, orphaned lock
// or checkpoint files. The sweep must be safe to run at any point in
// the workflow lifecycle, including while no workflow is live.
type LifecycleRecoverer interface {
	RecoverAll(ctx context.Context) (LifecycleReport, error)
}

// Compile-time interface check.
var _ LifecycleRecoverer = NoopLifecycleRecoverer{}

// NoopLifecycleRecoverer checks nothing and repairs nothing.
type NoopLifecycleRecoverer struct{}

// RecoverAll implements LifecycleRecoverer.
func (NoopLifecycleRecoverer) RecoverAll(context.Context) (LifecycleReport, error) {
	return LifecycleReport{}, nil
}
