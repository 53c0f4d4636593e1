// Package errors provides centralized error handling for Gaffer.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrInvalidTransition indicates an event was delivered to a workflow
	// state that does not accept it. The machine state is left unchanged.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrWorkflowNotStarted indicates an operation that requires a live
	// workflow was invoked while the machine holds no state.
	ErrWorkflowNotStarted = errors.New("workflow not started")

	// ErrWorkflowFinished indicates an operation was invoked after the
	// workflow reached a terminal state.
	ErrWorkflowFinished = errors.New("workflow already finished")

	// ErrMaxRetriesExceeded indicates the maximum retry attempts have been reached.
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")

	// ErrEscalated indicates a failure was escalated to a human rather than
	// resolved autonomously.
	ErrEscalated = errors.New("escalated to human")

	// ErrFixFailed indicates an automated fix attempt did not resolve the failure.
	ErrFixFailed = errors.New("automated fix failed")

	// ErrForgeOperation indicates a host API operation (issue fetch, branch
	// creation, PR submission, merge, labeling) failed.
	ErrForgeOperation = errors.New("forge operation failed")

	// ErrForgeRateLimited indicates the host API rate limit was exceeded.
	ErrForgeRateLimited = errors.New("forge rate limited")

	// ErrForgeAuthFailed indicates host authentication failed.
	ErrForgeAuthFailed = errors.New("forge authentication failed")

	// ErrNoAssignment indicates no issue is currently available for assignment.
	ErrNoAssignment = errors.New("no assignment available")

	// ErrIssueNotFound indicates the requested issue does not exist on the host.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrPRNotFound indicates the requested pull request was not found.
	ErrPRNotFound = errors.New("pull request not found")

	// ErrBranchExists indicates the branch already exists.
	ErrBranchExists = errors.New("branch already exists")

	// ErrMergeBlocked indicates the pull request cannot merge in its current
	// state (conflicts or failing checks).
	ErrMergeBlocked = errors.New("merge blocked")

	// ErrSlotsExhausted indicates all worker slots are occupied.
	ErrSlotsExhausted = errors.New("no worker slots available")

	// ErrSlotNotHeld indicates a release was attempted for a slot the agent
	// does not hold.
	ErrSlotNotHeld = errors.New("slot not held by agent")

	// ErrCoordinatorStopped indicates the coordination loop has already exited.
	ErrCoordinatorStopped = errors.New("coordinator stopped")

	// ErrRunLockHeld indicates another scheduler process holds the run lock.
	ErrRunLockHeld = errors.New("run lock held")

	// ErrAuditClosed indicates a write was attempted on a closed audit sink.
	ErrAuditClosed = errors.New("audit sink closed")

	// ErrFeedbackMalformed indicates a review feedback document could not be parsed.
	ErrFeedbackMalformed = errors.New("malformed review feedback")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigNotFound indicates that the configuration file was not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalidWorkflow indicates an invalid workflow configuration value.
	ErrConfigInvalidWorkflow = errors.New("invalid workflow configuration")

	// ErrConfigInvalidForge indicates an invalid forge configuration value.
	ErrConfigInvalidForge = errors.New("invalid forge configuration")

	// ErrConfigInvalidRecovery indicates an invalid recovery configuration value.
	ErrConfigInvalidRecovery = errors.New("invalid recovery configuration")

	// ErrConfigInvalidReview indicates an invalid review configuration value.
	ErrConfigInvalidReview = errors.New("invalid review configuration")

	// ErrConfigInvalidMetrics indicates an invalid metrics configuration value.
	ErrConfigInvalidMetrics = errors.New("invalid metrics configuration")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrInvalidDuration indicates that a duration format is invalid.
	ErrInvalidDuration = errors.New("invalid duration format")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrJSONErrorOutput indicates that an error has already been output as JSON.
	// This ensures a non-zero exit code while preventing duplicate error messages.
	// Commands should silence cobra's error printing when this is returned.
	ErrJSONErrorOutput = errors.New("error output as JSON")

	// ErrWatchIntervalTooShort indicates that the watch interval is below minimum.
	ErrWatchIntervalTooShort = errors.New("watch interval too short")

	// ErrWatchModeJSONUnsupported indicates that watch mode does not support JSON output.
	ErrWatchModeJSONUnsupported = errors.New("watch mode does not support JSON output")

	// ErrConflictingFlags indicates that mutually exclusive flags were specified.
	ErrConflictingFlags = errors.New("conflicting flags specified")

	// ErrInvalidArgument indicates that an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCommandNotConfigured indicates that a mock command was not configured in tests.
	ErrCommandNotConfigured = errors.New("command not configured")

	// ErrCommandFailed indicates that a command execution failed.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandTimeout indicates a command exceeded its timeout duration.
	ErrCommandTimeout = errors.New("command timeout exceeded")
)
