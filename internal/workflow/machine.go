package workflow

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gafferworks/gaffer/internal/clock"
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// timeoutEventName labels the synthetic transition recorded when the time
// box pre-empts a queued event.
const timeoutEventName = "timeout_exceeded"

// TerminalHook is invoked after a transition lands in Merged or Abandoned.
// The hook runs outside the machine lock and must not call back into the
// machine's mutating methods from the same goroutine chain.
type TerminalHook func(final State, record domain.TransitionRecord)

// Machine is the workflow state machine. It starts in the initial
// no-state, advances one event at a time through Handle, and records
// every transition in an append-only history.
//
// All methods are safe for concurrent use. Each event is processed as a
// single mutation under one lock: no caller ever observes a half-applied
// transition.
type Machine struct {
	mu sync.Mutex

	clk           clock.Clock
	maxWork       time.Duration
	resumePercent float64
	onTerminal    TerminalHook

	createdAt time.Time
	state     State
	agent     domain.AgentID
	startedAt *time.Time
	history   []domain.TransitionRecord
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces the wall clock, letting tests drive the time box
// deterministically.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) { m.clk = c }
}

// WithMaxWorkHours sets the work time box. A zero or negative value means
// the box is already spent: the next event from any live state abandons
// the workflow.
func WithMaxWorkHours(hours float64) Option {
	return func(m *Machine) { m.maxWork = time.Duration(hours * float64(time.Hour)) }
}

// WithResumeCompletion sets the completion percentage force-applied when
// blocked work resumes.
func WithResumeCompletion(percent float64) Option {
	return func(m *Machine) { m.resumePercent = percent }
}

// WithTerminalHook registers a callback fired on every transition into a
// terminal state, including timeout abandonment.
func WithTerminalHook(hook TerminalHook) Option {
	return func(m *Machine) { m.onTerminal = hook }
}

// NewMachine builds a machine in the initial no-state with an 8 hour time
// box and the default resume completion percentage.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		clk:           clock.RealClock{},
		maxWork:       time.Duration(constants.DefaultMaxWorkHours * float64(time.Hour)),
		resumePercent: constants.DefaultResumeCompletionPercent,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.createdAt = m.clk.Now()
	return m
}

// Handle applies a single event.
//
// Before any event-specific logic runs, the time box is checked: if work
// has exceeded the configured maximum and the machine is in a live state,
// the event is discarded and the machine transitions to Abandoned with a
// timeout reason instead. This pre-empts every event, ForceAbandon
// included.
//
// Events that match no transition for the current state return
// ErrInvalidTransition and leave the machine untouched. Handle never
// panics on any state and event combination.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	began := m.clk.Now()

	if m.state != nil && !IsTerminal(m.state) && m.expiredLocked(began) {
		final := m.timeoutAbandonLocked()
		record := m.commitLocked(timeoutEventName, final, began)
		m.mu.Unlock()
		m.fireTerminal(final, record)
		return nil
	}

	next, err := m.nextLocked(ev)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	record := m.commitLocked(ev.Name(), next, began)
	m.mu.Unlock()
	m.fireTerminal(next, record)
	return nil
}

// Current returns the current state, or nil before the first assignment
// and after a reset.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Status returns the reporting label for the current state, including
// the synthetic "none" label for the initial no-state.
func (m *Machine) Status() constants.WorkflowStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	return StatusOf(m.state)
}

// Agent returns the agent bound to the workflow, empty when none.
func (m *Machine) Agent() domain.AgentID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.agent
}

// History returns a copy of the transition records in append order.
func (m *Machine) History() []domain.TransitionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.history)
}

// TimedOut reports whether the machine is in a live state whose time box
// has been exceeded. The next Handle call on a timed-out machine abandons
// the workflow.
func (m *Machine) TimedOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state != nil && !IsTerminal(m.state) && m.expiredLocked(m.clk.Now())
}

// Snapshot is a point-in-time view of machine bookkeeping for status
// reporting. It is assembled under the machine lock and safe to retain.
type Snapshot struct {
	Status           constants.WorkflowStatus `json:"status"`
	AgentID          domain.AgentID           `json:"agent_id,omitempty"`
	StartedAt        *time.Time               `json:"started_at,omitempty"`
	Uptime           time.Duration            `json:"uptime"`
	TimeRemaining    time.Duration            `json:"time_remaining"`
	TransitionCount  int                      `json:"transition_count"`
	LastTransitionAt *time.Time               `json:"last_transition_at,omitempty"`
}

// Snapshot captures the machine's reporting view without blocking event
// processing for longer than a single lock acquisition.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clk.Now()
	snap := Snapshot{
		Status:          StatusOf(m.state),
		AgentID:         m.agent,
		Uptime:          now.Sub(m.createdAt),
		TimeRemaining:   m.remainingLocked(now),
		TransitionCount: len(m.history),
	}
	if m.startedAt != nil {
		started := *m.startedAt
		snap.StartedAt = &started
	}
	if n := len(m.history); n > 0 {
		last := m.history[n-1].Timestamp
		snap.LastTransitionAt = &last
	}
	return snap
}

// expiredLocked reports whether the time box is spent. A non-positive box
// is spent from the start; otherwise work must have begun and run past
// the limit.
func (m *Machine) expiredLocked(now time.Time) bool {
	if m.maxWork <= 0 {
		return true
	}
	if m.startedAt == nil {
		return false
	}
	return now.Sub(*m.startedAt) > m.maxWork
}

// remainingLocked returns the unspent portion of the time box, never
// negative. Before work starts the full box remains.
func (m *Machine) remainingLocked(now time.Time) time.Duration {
	if m.maxWork <= 0 {
		return 0
	}
	if m.startedAt == nil {
		return m.maxWork
	}
	remaining := m.maxWork - now.Sub(*m.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// timeoutAbandonLocked builds the terminal state for a spent time box.
// Every live state carries an issue; the placeholder covers the
// impossible gap so abandonment can never fail.
func (m *Machine) timeoutAbandonLocked() Abandoned {
	issue, ok := IssueOf(m.state)
	if !ok {
		issue = domain.Issue{Number: 0, Title: "unknown"}
	}
	return Abandoned{
		Issue:  issue,
		Reason: domain.TimeoutExceeded{MaxHours: m.maxWork.Hours()},
	}
}

// commitLocked appends the transition record and installs the new state
// as one step. The record lands before the state becomes visible to any
// other caller because both happen under the same lock hold.
func (m *Machine) commitLocked(eventName string, next State, began time.Time) domain.TransitionRecord {
	now := m.clk.Now()
	record := domain.TransitionRecord{
		ToStatus:  StatusOf(next),
		Event:     eventName,
		Timestamp: now,
		Duration:  now.Sub(began),
	}
	if m.state != nil {
		from := m.state.Status()
		record.FromStatus = &from
	}
	m.history = append(m.history, record)
	m.state = next
	return record
}

func (m *Machine) fireTerminal(next State, record domain.TransitionRecord) {
	if next == nil || m.onTerminal == nil || !IsTerminal(next) {
		return
	}
	m.onTerminal(next, record)
}

// invalidLocked builds the rejection for an event the current state does
// not accept.
func (m *Machine) invalidLocked(ev Event) error {
	return fmt.Errorf("%w: event %s is not valid in state %s",
		gaffererrors.ErrInvalidTransition, ev.Name(), StatusOf(m.state))
}

// nextLocked is the transition function: it maps the current state and
// the event to the next state, or rejects the pair. Identity bookkeeping
// (agent binding, work start time) is updated here, under the same lock
// hold that commits the transition.
func (m *Machine) nextLocked(ev Event) (State, error) {
	// Cross-cutting events accepted by every live state.
	if m.state != nil && !IsTerminal(m.state) {
		switch e := ev.(type) {
		case ForceAbandon:
			issue, _ := IssueOf(m.state)
			return Abandoned{Issue: issue, Reason: e.Reason}, nil
		case AutoRecover:
			return m.state, nil
		}
	}

	switch st := m.state.(type) {
	case nil:
		if e, ok := ev.(AssignAgent); ok {
			m.agent = e.Agent
			if e.WorkspaceReady {
				return Assigned{Issue: e.Issue, Agent: e.Agent, Workspace: e.Workspace}, nil
			}
			return Unassigned{Issue: e.Issue, Agent: e.Agent}, nil
		}

	case Unassigned:
		if e, ok := ev.(WorkspaceReady); ok {
			return Assigned{Issue: st.Issue, Agent: st.Agent, Workspace: e.Workspace}, nil
		}

	case Assigned:
		if _, ok := ev.(StartWork); ok {
			now := m.clk.Now()
			m.startedAt = &now
			return InProgress{Issue: st.Issue, Agent: st.Agent, Workspace: st.Workspace}, nil
		}

	case InProgress:
		switch e := ev.(type) {
		case MakeProgress:
			progress := st.Progress.Accumulate(e.Commits, e.FilesChanged)
			if m.startedAt != nil {
				elapsed := int(m.clk.Now().Sub(*m.startedAt).Minutes())
				progress = progress.WithElapsed(elapsed)
			}
			st.Progress = progress
			return st, nil
		case EncounterBlocker:
			return Blocked{
				Issue:     st.Issue,
				Agent:     st.Agent,
				Workspace: st.Workspace,
				Progress:  st.Progress,
				Blocker:   e.Blocker,
			}, nil
		case CompleteWork:
			return ReadyForReview{
				Issue:     st.Issue,
				Agent:     st.Agent,
				Workspace: st.Workspace,
				Progress:  st.Progress,
			}, nil
		}

	case Blocked:
		if _, ok := ev.(ResolveBlocker); ok {
			return InProgress{
				Issue:     st.Issue,
				Agent:     st.Agent,
				Workspace: st.Workspace,
				Progress:  st.Progress.ResumeAt(m.resumePercent),
			}, nil
		}

	case ReadyForReview:
		if e, ok := ev.(SubmitForReview); ok {
			return UnderReview{Issue: st.Issue, Agent: st.Agent, PR: e.PR}, nil
		}

	case UnderReview:
		switch e := ev.(type) {
		case ReviewReceived:
			if anyBlocking(e.Feedback) {
				return ChangesRequested{Issue: st.Issue, Agent: st.Agent, PR: st.PR, Feedback: e.Feedback}, nil
			}
			return Approved{Issue: st.Issue, Agent: st.Agent, PR: st.PR}, nil
		case ApprovalReceived:
			return Approved{Issue: st.Issue, Agent: st.Agent, PR: st.PR}, nil
		}

	case ChangesRequested:
		switch ev.(type) {
		case ChangesMade:
			return UnderReview{Issue: st.Issue, Agent: st.Agent, PR: st.PR}, nil
		case ApprovalReceived:
			return Approved{Issue: st.Issue, Agent: st.Agent, PR: st.PR}, nil
		}

	case Approved:
		switch e := ev.(type) {
		case MergeConflictDetected:
			return MergeConflict{Issue: st.Issue, Agent: st.Agent, PR: st.PR, Conflicts: e.Conflicts}, nil
		case CIFailureDetected:
			return CIFailure{Issue: st.Issue, Agent: st.Agent, PR: st.PR, Failures: e.Failures}, nil
		case MergeCompleted:
			return Merged{Issue: st.Issue, Work: e.Work}, nil
		}

	case MergeConflict:
		if _, ok := ev.(ConflictsResolved); ok {
			return Approved{Issue: st.Issue, Agent: st.Agent, PR: st.PR}, nil
		}

	case CIFailure:
		if _, ok := ev.(CIFixed); ok {
			return Approved{Issue: st.Issue, Agent: st.Agent, PR: st.PR}, nil
		}

	case Merged:
		if _, ok := ev.(Reset); ok {
			m.agent = ""
			m.startedAt = nil
			return nil, nil
		}

	case Abandoned:
		if _, ok := ev.(Reset); ok {
			m.agent = ""
			m.startedAt = nil
			return nil, nil
		}
	}

	return nil, m.invalidLocked(ev)
}

// anyBlocking reports whether any feedback entry carries requested
// changes. One blocking entry outweighs any number of approvals.
func anyBlocking(feedback []domain.ReviewFeedback) bool {
	for _, f := range feedback {
		if f.Blocking() {
			return true
		}
	}
	return false
}
