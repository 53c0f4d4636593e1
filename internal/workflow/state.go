// Package workflow implements the autonomous development workflow state
// machine: a pure transition function over a closed set of states and
// events, an append-only transition history, and a timeout check.
//
// The machine owns no I/O. Side effects live in the coordinator, which
// feeds events in and reads states out. That split keeps every transition
// deterministic and independently testable.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors,
//     internal/clock, internal/ctxutil, standard library
//   - MUST NOT import: internal/coordinator, internal/forge, internal/cli
package workflow

import (
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
)

// State is one workflow lifecycle state. It is a closed set: exactly the
// variant types in this file implement it, one struct per state.
//
// Shared fields (issue, agent, pull request) are deliberately duplicated
// per variant instead of factored into a context struct: reading a pull
// request number while merely Assigned is a compile error, not a runtime
// surprise.
type State interface {
	// Status returns the reporting label for this state.
	Status() constants.WorkflowStatus

	// isState seals the interface to this package.
	isState()
}

// Unassigned holds a selected issue whose workspace is still being
// prepared out-of-band. The chosen agent waits here until the workspace
// delivery event arrives.
type Unassigned struct {
	Issue domain.Issue
	Agent domain.AgentID
}

// Status returns the reporting label for this state.
func (Unassigned) Status() constants.WorkflowStatus { return constants.StatusUnassigned }

func (Unassigned) isState() {}

// Assigned holds an issue with a ready workspace and an agent that has
// not yet started work.
type Assigned struct {
	Issue     domain.Issue
	Agent     domain.AgentID
	Workspace domain.Workspace
}

// Status returns the reporting label for this state.
func (Assigned) Status() constants.WorkflowStatus { return constants.StatusAssigned }

func (Assigned) isState() {}

// InProgress holds actively running work and its accumulated progress.
type InProgress struct {
	Issue     domain.Issue
	Agent     domain.AgentID
	Workspace domain.Workspace
	Progress  domain.WorkProgress
}

// Status returns the reporting label for this state.
func (InProgress) Status() constants.WorkflowStatus { return constants.StatusInProgress }

func (InProgress) isState() {}

// Blocked holds work stopped by a blocker. The blocker is retained
// verbatim for the recovery engine; progress keeps its accumulated value
// for resumption.
type Blocked struct {
	Issue     domain.Issue
	Agent     domain.AgentID
	Workspace domain.Workspace
	Progress  domain.WorkProgress
	Blocker   domain.Blocker
}

// Status returns the reporting label for this state.
func (Blocked) Status() constants.WorkflowStatus { return constants.StatusBlocked }

func (Blocked) isState() {}

// ReadyForReview holds completed work awaiting pull request submission.
type ReadyForReview struct {
	Issue     domain.Issue
	Agent     domain.AgentID
	Workspace domain.Workspace
	Progress  domain.WorkProgress
}

// Status returns the reporting label for this state.
func (ReadyForReview) Status() constants.WorkflowStatus { return constants.StatusReadyForReview }

func (ReadyForReview) isState() {}

// UnderReview holds an open pull request awaiting reviewer feedback.
type UnderReview struct {
	Issue domain.Issue
	Agent domain.AgentID
	PR    domain.PullRequest
}

// Status returns the reporting label for this state.
func (UnderReview) Status() constants.WorkflowStatus { return constants.StatusUnderReview }

func (UnderReview) isState() {}

// ChangesRequested holds a pull request blocked by reviewer feedback.
// The feedback is retained so the agent can address each requested change.
type ChangesRequested struct {
	Issue    domain.Issue
	Agent    domain.AgentID
	PR       domain.PullRequest
	Feedback []domain.ReviewFeedback
}

// Status returns the reporting label for this state.
func (ChangesRequested) Status() constants.WorkflowStatus { return constants.StatusChangesRequested }

func (ChangesRequested) isState() {}

// Approved holds a pull request cleared to merge.
type Approved struct {
	Issue domain.Issue
	Agent domain.AgentID
	PR    domain.PullRequest
}

// Status returns the reporting label for this state.
func (Approved) Status() constants.WorkflowStatus { return constants.StatusApproved }

func (Approved) isState() {}

// MergeConflict holds a pull request whose merge attempt hit conflicts.
type MergeConflict struct {
	Issue     domain.Issue
	Agent     domain.AgentID
	PR        domain.PullRequest
	Conflicts []domain.Conflict
}

// Status returns the reporting label for this state.
func (MergeConflict) Status() constants.WorkflowStatus { return constants.StatusMergeConflict }

func (MergeConflict) isState() {}

// CIFailure holds a pull request whose merge attempt was rejected by
// failing CI checks.
type CIFailure struct {
	Issue    domain.Issue
	Agent    domain.AgentID
	PR       domain.PullRequest
	Failures []domain.CheckFailure
}

// Status returns the reporting label for this state.
func (CIFailure) Status() constants.WorkflowStatus { return constants.StatusCIFailure }

func (CIFailure) isState() {}

// Merged is the successful terminal state. Only Reset is valid from here.
type Merged struct {
	Issue domain.Issue
	Work  domain.CompletedWork
}

// Status returns the reporting label for this state.
func (Merged) Status() constants.WorkflowStatus { return constants.StatusMerged }

func (Merged) isState() {}

// Abandoned is the unsuccessful terminal state. Only Reset is valid from here.
type Abandoned struct {
	Issue  domain.Issue
	Reason domain.AbandonReason
}

// Status returns the reporting label for this state.
func (Abandoned) Status() constants.WorkflowStatus { return constants.StatusAbandoned }

func (Abandoned) isState() {}

// Compile-time checks that every variant implements State.
var (
	_ State = Unassigned{}
	_ State = Assigned{}
	_ State = InProgress{}
	_ State = Blocked{}
	_ State = ReadyForReview{}
	_ State = UnderReview{}
	_ State = ChangesRequested{}
	_ State = Approved{}
	_ State = MergeConflict{}
	_ State = CIFailure{}
	_ State = Merged{}
	_ State = Abandoned{}
)

// StatusOf returns the reporting label for s, mapping the initial
// no-state (nil) to StatusNone.
func StatusOf(s State) constants.WorkflowStatus {
	if s == nil {
		return constants.StatusNone
	}
	return s.Status()
}

// IsTerminal reports whether s is one of the two terminal states.
// Terminal states accept only Reset.
func IsTerminal(s State) bool {
	switch s.(type) {
	case Merged, Abandoned:
		return true
	default:
		return false
	}
}

// IssueOf extracts the issue snapshot carried by s. Every state carries
// one; ok is false only for a nil state.
func IssueOf(s State) (domain.Issue, bool) {
	switch st := s.(type) {
	case Unassigned:
		return st.Issue, true
	case Assigned:
		return st.Issue, true
	case InProgress:
		return st.Issue, true
	case Blocked:
		return st.Issue, true
	case ReadyForReview:
		return st.Issue, true
	case UnderReview:
		return st.Issue, true
	case ChangesRequested:
		return st.Issue, true
	case Approved:
		return st.Issue, true
	case MergeConflict:
		return st.Issue, true
	case CIFailure:
		return st.Issue, true
	case Merged:
		return st.Issue, true
	case Abandoned:
		return st.Issue, true
	default:
		return domain.Issue{}, false
	}
}
