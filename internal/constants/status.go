package constants

// WorkflowStatus labels the state of a workflow instance in the Gaffer state
// machine. Status values use snake_case for JSON serialization compatibility.
type WorkflowStatus string

// Workflow status constants define the valid states a workflow can be in.
// These follow the lifecycle state machine:
//
//	(none) → Unassigned, Assigned
//	Unassigned → Assigned
//	Assigned → InProgress
//	InProgress → Blocked, ReadyForReview, InProgress
//	Blocked → InProgress
//	ReadyForReview → UnderReview
//	UnderReview → ChangesRequested, Approved
//	ChangesRequested → UnderReview
//	Approved → MergeConflict, CIFailure, Merged
//	MergeConflict → Approved
//	CIFailure → Approved
//	any live state → Abandoned
//	Merged, Abandoned → (none) via reset
const (
	// StatusUnassigned indicates an issue is selected but the workspace is
	// not yet ready, so no agent is working.
	StatusUnassigned WorkflowStatus = "unassigned"

	// StatusAssigned indicates an agent holds the issue with a prepared
	// workspace but has not started work.
	StatusAssigned WorkflowStatus = "assigned"

	// StatusInProgress indicates the agent is actively working the issue.
	StatusInProgress WorkflowStatus = "in_progress"

	// StatusBlocked indicates forward progress is stopped by a classified
	// blocker awaiting recovery.
	StatusBlocked WorkflowStatus = "blocked"

	// StatusReadyForReview indicates work is complete and a pull request is
	// about to be submitted.
	StatusReadyForReview WorkflowStatus = "ready_for_review"

	// StatusUnderReview indicates a pull request is open and awaiting
	// reviewer feedback.
	StatusUnderReview WorkflowStatus = "under_review"

	// StatusChangesRequested indicates at least one reviewer requested
	// changes. The agent must address them before re-review.
	StatusChangesRequested WorkflowStatus = "changes_requested"

	// StatusApproved indicates the pull request is approved and eligible
	// to merge.
	StatusApproved WorkflowStatus = "approved"

	// StatusMergeConflict indicates the merge attempt hit conflicts that
	// must be resolved before returning to Approved.
	StatusMergeConflict WorkflowStatus = "merge_conflict"

	// StatusCIFailure indicates the merge attempt was rejected by failing
	// CI checks that must be fixed before returning to Approved.
	StatusCIFailure WorkflowStatus = "ci_failure"

	// StatusMerged indicates the pull request merged successfully.
	// Terminal: only a reset is valid from here.
	StatusMerged WorkflowStatus = "merged"

	// StatusAbandoned indicates the workflow gave up on the issue.
	// Terminal: only a reset is valid from here.
	StatusAbandoned WorkflowStatus = "abandoned"

	// StatusNone labels the initial no-state before assignment and after a
	// reset. It is a reporting label only, never a live machine state.
	StatusNone WorkflowStatus = "none"
)

// String returns the string representation of the WorkflowStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s WorkflowStatus) String() string {
	return string(s)
}

// Priority represents the urgency of an issue at assignment time.
// Values use snake_case for JSON serialization compatibility.
type Priority string

// Priority constants order issues for assignment.
const (
	// PriorityLow marks work that can wait behind everything else.
	PriorityLow Priority = "low"

	// PriorityMedium is the default priority for unlabeled issues.
	PriorityMedium Priority = "medium"

	// PriorityHigh marks work that should pre-empt medium and low issues.
	PriorityHigh Priority = "high"

	// PriorityCritical marks work that must be picked up immediately.
	PriorityCritical Priority = "critical"
)

// String returns the string representation of the Priority.
func (p Priority) String() string {
	return string(p)
}

// Rank returns the ordering weight for assignment: higher ranks are
// picked first. Unknown values rank as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 1
	}
}
