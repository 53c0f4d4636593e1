package coordinator

import (
	"context"
	"sync"

	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
)

// WorkObservation is what one work pass produced. A non-nil Blocker
// outranks Done: blocked work stops even if the agent also believed it
// was finishing.
type WorkObservation struct {
	// Commits counts commits created during this pass.
	Commits int `json:"commits"`

	// FilesChanged counts files touched during this pass.
	FilesChanged int `json:"files_changed"`

	// Blocker is the obstacle that stopped the pass, nil when none.
	Blocker domain.Blocker `json:"-"`

	// Done indicates the work item is complete and ready for review.
	Done bool `json:"done"`
}

// Agent performs the development work the scheduler coordinates. The
// coordinator calls Work repeatedly while an issue is in progress and
// Address once per round of blocking review feedback.
//
// Implementations must honor context cancellation: a canceled context
// ends the pass, not the workflow.
type Agent interface {
	// Work performs one pass on the issue and reports what happened.
	// The progress argument is the accumulated state of the work so
	// far, letting the agent pick up where the last pass stopped.
	Work(ctx context.Context, issue domain.Issue, progress domain.WorkProgress) (WorkObservation, error)

	// Address revises the work to satisfy the given review feedback.
	Address(ctx context.Context, issue domain.Issue, feedback []domain.ReviewFeedback) error
}

// Compile-time interface check.
var _ Agent = (*ScriptedAgent)(nil)

// ScriptedAgent is a deterministic Agent for tests and dry runs. Work
// observations and Address failures are scripted up front and consumed
// one entry per call; unscripted calls take benign defaults, so an
// empty ScriptedAgent completes any issue on the first pass and
// addresses any feedback without complaint.
type ScriptedAgent struct {
	mu sync.Mutex

	observations []WorkObservation
	addressErrs  []error
	addressed    [][]domain.ReviewFeedback
}

// NewScriptedAgent creates an agent that serves the given observations
// in order.
func NewScriptedAgent(observations ...WorkObservation) *ScriptedAgent {
	return &ScriptedAgent{observations: observations}
}

// ScriptWork appends observations for future Work calls.
func (a *ScriptedAgent) ScriptWork(observations ...WorkObservation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.observations = append(a.observations, observations...)
}

// ScriptAddressErr appends outcomes for future Address calls. A nil
// entry scripts a success.
func (a *ScriptedAgent) ScriptAddressErr(errs ...error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.addressErrs = append(a.addressErrs, errs...)
}

// Work returns the next scripted observation, or a completed pass when
// nothing is scripted.
func (a *ScriptedAgent) Work(ctx context.Context, _ domain.Issue, _ domain.WorkProgress) (WorkObservation, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return WorkObservation{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.observations) == 0 {
		return WorkObservation{Done: true}, nil
	}
	obs := a.observations[0]
	a.observations = a.observations[1:]
	return obs, nil
}

// Address records the feedback and returns the next scripted outcome,
// or success when nothing is scripted.
func (a *ScriptedAgent) Address(ctx context.Context, _ domain.Issue, feedback []domain.ReviewFeedback) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.addressed = append(a.addressed, feedback)
	if len(a.addressErrs) == 0 {
		return nil
	}
	err := a.addressErrs[0]
	a.addressErrs = a.addressErrs[1:]
	return err
}

// Addressed returns the feedback batches Address has received, in call
// order.
func (a *ScriptedAgent) Addressed() [][]domain.ReviewFeedback {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([][]domain.ReviewFeedback, len(a.addressed))
	copy(out, a.addressed)
	return out
}
