package constants

// StrategyKind labels the recovery strategy families the classifier can
// select. Values use snake_case for JSON serialization compatibility.
type StrategyKind string

// Strategy kind constants define the closed set of remediation families.
const (
	// StrategyRetry retries the failed operation with exponential backoff.
	StrategyRetry StrategyKind = "retry_with_backoff"

	// StrategyAutomatedFix dispatches an automated fix of a specific kind.
	StrategyAutomatedFix StrategyKind = "automated_fix"

	// StrategyFallback switches to a simpler approach instead of fixing the
	// original failure.
	StrategyFallback StrategyKind = "fallback"

	// StrategyEscalate records the failure for a human. Escalation is
	// defined as "not resolved autonomously" and always reports failure.
	StrategyEscalate StrategyKind = "escalate"

	// StrategyAbandonAndReset abandons the current work item and resets the
	// workspace.
	StrategyAbandonAndReset StrategyKind = "abandon_and_reset"
)

// String returns the string representation of the StrategyKind.
func (s StrategyKind) String() string {
	return string(s)
}

// FixKind labels the automated fix dispatched by an AutomatedFix strategy.
type FixKind string

// Fix kind constants define the automated remediations Gaffer can attempt.
const (
	// FixMergeConflictResolution resolves merge conflicts in place.
	FixMergeConflictResolution FixKind = "merge_conflict_resolution"

	// FixTestFailure repairs failing tests.
	FixTestFailure FixKind = "test_failure_fix"

	// FixBuildError repairs compilation or build pipeline breakage.
	FixBuildError FixKind = "build_error_fix"

	// FixDependencyUpdate refreshes or pins dependencies.
	FixDependencyUpdate FixKind = "dependency_update"

	// FixCodeFormatting applies formatter and lint autofixes.
	FixCodeFormatting FixKind = "code_formatting"

	// FixConfigurationAdjustment repairs workspace or tool configuration.
	FixConfigurationAdjustment FixKind = "configuration_adjustment"
)

// String returns the string representation of the FixKind.
func (f FixKind) String() string {
	return string(f)
}

// FallbackKind labels the simpler approach chosen by a Fallback strategy.
type FallbackKind string

// Fallback kind constants.
const (
	// FallbackSimplifiedSolution retries the work with a reduced, simpler
	// implementation plan.
	FallbackSimplifiedSolution FallbackKind = "simplified_solution"
)

// String returns the string representation of the FallbackKind.
func (f FallbackKind) String() string {
	return string(f)
}

// Severity grades escalations and automated-fix confidence for reporting.
type Severity string

// Severity constants from least to most urgent.
const (
	// SeverityLow marks failures safe to leave for routine triage.
	SeverityLow Severity = "low"

	// SeverityMedium marks failures worth a look within the working day.
	SeverityMedium Severity = "medium"

	// SeverityHigh marks failures that block progress on the work item.
	SeverityHigh Severity = "high"

	// SeverityCritical marks failures that endanger the workspace itself.
	SeverityCritical Severity = "critical"
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	return string(s)
}

// FailureCategory labels the closed set of error kinds the recovery engine
// classifies. Values use snake_case for JSON serialization compatibility.
type FailureCategory string

// Failure category constants define the classifier's input domain.
const (
	// FailureGitOperation covers git command failures (push, pull, fetch,
	// merge, rebase).
	FailureGitOperation FailureCategory = "git_operation"

	// FailureAPI covers host API errors carrying an HTTP status code.
	FailureAPI FailureCategory = "api_error"

	// FailureMergeConflict covers conflicting files discovered at merge time.
	FailureMergeConflict FailureCategory = "merge_conflict"

	// FailureCI covers CI pipeline job failures.
	FailureCI FailureCategory = "ci_failure"

	// FailureTest covers failing test cases observed during work.
	FailureTest FailureCategory = "test_failure"

	// FailureBuild covers build pipeline breakage observed during work.
	FailureBuild FailureCategory = "build_failure"

	// FailureWorkspaceCorruption covers damaged or inconsistent workspace
	// files.
	FailureWorkspaceCorruption FailureCategory = "workspace_corruption"

	// FailureStateInconsistency covers divergence between recorded and
	// observed workflow bookkeeping.
	FailureStateInconsistency FailureCategory = "state_inconsistency"
)

// String returns the string representation of the FailureCategory.
func (f FailureCategory) String() string {
	return string(f)
}
