package workflow

import (
	"github.com/gafferworks/gaffer/internal/domain"
)

// Event is one workflow input. Like State it is a closed set: exactly the
// variant types in this file implement it. Events carry all data the
// transition needs, so the machine never reaches out to collaborators.
type Event interface {
	// Name returns the snake_case label recorded in transition history.
	Name() string

	// isEvent seals the interface to this package.
	isEvent()
}

// AssignAgent starts a workflow from the initial no-state. When
// WorkspaceReady is false the machine parks in Unassigned until the
// out-of-band workspace preparation delivers a WorkspaceReady event.
type AssignAgent struct {
	Issue          domain.Issue
	Agent          domain.AgentID
	Workspace      domain.Workspace
	WorkspaceReady bool
}

// Name returns the snake_case label recorded in transition history.
func (AssignAgent) Name() string { return "assign_agent" }

func (AssignAgent) isEvent() {}

// WorkspaceReady delivers a prepared workspace to an Unassigned workflow.
type WorkspaceReady struct {
	Workspace domain.Workspace
}

// Name returns the snake_case label recorded in transition history.
func (WorkspaceReady) Name() string { return "workspace_ready" }

func (WorkspaceReady) isEvent() {}

// StartWork begins active work on an assigned issue and starts the
// workflow time box.
type StartWork struct{}

// Name returns the snake_case label recorded in transition history.
func (StartWork) Name() string { return "start_work" }

func (StartWork) isEvent() {}

// MakeProgress reports incremental work. Counters accumulate; completion
// percentage is untouched.
type MakeProgress struct {
	Commits      int
	FilesChanged int
}

// Name returns the snake_case label recorded in transition history.
func (MakeProgress) Name() string { return "make_progress" }

func (MakeProgress) isEvent() {}

// EncounterBlocker stops active work. The blocker travels into the
// Blocked state verbatim so the recovery engine can classify it.
type EncounterBlocker struct {
	Blocker domain.Blocker
}

// Name returns the snake_case label recorded in transition history.
func (EncounterBlocker) Name() string { return "encounter_blocker" }

func (EncounterBlocker) isEvent() {}

// ResolveBlocker resumes blocked work. Completion percentage is force-set
// to the configured resume value; all other counters survive.
type ResolveBlocker struct{}

// Name returns the snake_case label recorded in transition history.
func (ResolveBlocker) Name() string { return "resolve_blocker" }

func (ResolveBlocker) isEvent() {}

// CompleteWork declares active work done and ready for a pull request.
type CompleteWork struct{}

// Name returns the snake_case label recorded in transition history.
func (CompleteWork) Name() string { return "complete_work" }

func (CompleteWork) isEvent() {}

// SubmitForReview records the opened pull request.
type SubmitForReview struct {
	PR domain.PullRequest
}

// Name returns the snake_case label recorded in transition history.
func (SubmitForReview) Name() string { return "submit_for_review" }

func (SubmitForReview) isEvent() {}

// ReviewReceived delivers reviewer feedback. One blocking entry outweighs
// any number of approvals.
type ReviewReceived struct {
	Feedback []domain.ReviewFeedback
}

// Name returns the snake_case label recorded in transition history.
func (ReviewReceived) Name() string { return "review_received" }

func (ReviewReceived) isEvent() {}

// ChangesMade sends a revised pull request back for another review pass.
type ChangesMade struct{}

// Name returns the snake_case label recorded in transition history.
func (ChangesMade) Name() string { return "changes_made" }

func (ChangesMade) isEvent() {}

// ApprovalReceived approves a pull request without a fresh feedback
// payload, typically after requested changes were addressed.
type ApprovalReceived struct{}

// Name returns the snake_case label recorded in transition history.
func (ApprovalReceived) Name() string { return "approval_received" }

func (ApprovalReceived) isEvent() {}

// MergeConflictDetected reports that the merge attempt hit conflicts.
type MergeConflictDetected struct {
	Conflicts []domain.Conflict
}

// Name returns the snake_case label recorded in transition history.
func (MergeConflictDetected) Name() string { return "merge_conflict_detected" }

func (MergeConflictDetected) isEvent() {}

// CIFailureDetected reports that required CI checks rejected the merge.
type CIFailureDetected struct {
	Failures []domain.CheckFailure
}

// Name returns the snake_case label recorded in transition history.
func (CIFailureDetected) Name() string { return "ci_failure_detected" }

func (CIFailureDetected) isEvent() {}

// ConflictsResolved returns a conflicted pull request to Approved for a
// fresh merge attempt. There is no shortcut straight to Merged.
type ConflictsResolved struct{}

// Name returns the snake_case label recorded in transition history.
func (ConflictsResolved) Name() string { return "conflicts_resolved" }

func (ConflictsResolved) isEvent() {}

// CIFixed returns a CI-failed pull request to Approved for a fresh merge
// attempt.
type CIFixed struct{}

// Name returns the snake_case label recorded in transition history.
func (CIFixed) Name() string { return "ci_fixed" }

func (CIFixed) isEvent() {}

// MergeCompleted finishes the workflow with a completed-work summary.
type MergeCompleted struct {
	Work domain.CompletedWork
}

// Name returns the snake_case label recorded in transition history.
func (MergeCompleted) Name() string { return "merge_completed" }

func (MergeCompleted) isEvent() {}

// ForceAbandon terminates any live workflow with the given reason.
type ForceAbandon struct {
	Reason domain.AbandonReason
}

// Name returns the snake_case label recorded in transition history.
func (ForceAbandon) Name() string { return "force_abandon" }

func (ForceAbandon) isEvent() {}

// AutoRecover records an on-demand lifecycle recovery sweep. The machine
// stays in its current state; the sweep itself runs in the coordinator.
type AutoRecover struct{}

// Name returns the snake_case label recorded in transition history.
func (AutoRecover) Name() string { return "auto_recover" }

func (AutoRecover) isEvent() {}

// Reset clears a terminal workflow back to the initial no-state so a new
// issue can be picked up. Invalid from any live state.
type Reset struct{}

// Name returns the snake_case label recorded in transition history.
func (Reset) Name() string { return "reset" }

func (Reset) isEvent() {}

// Compile-time checks that every variant implements Event.
var (
	_ Event = AssignAgent{}
	_ Event = WorkspaceReady{}
	_ Event = StartWork{}
	_ Event = MakeProgress{}
	_ Event = EncounterBlocker{}
	_ Event = ResolveBlocker{}
	_ Event = CompleteWork{}
	_ Event = SubmitForReview{}
	_ Event = ReviewReceived{}
	_ Event = ChangesMade{}
	_ Event = ApprovalReceived{}
	_ Event = MergeConflictDetected{}
	_ Event = CIFailureDetected{}
	_ Event = ConflictsResolved{}
	_ Event = CIFixed{}
	_ Event = MergeCompleted{}
	_ Event = ForceAbandon{}
	_ Event = AutoRecover{}
	_ Event = Reset{}
)
