package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries is the pre-built mapping of sentinel errors to their user-facing messages.
// This single source of truth ensures UserMessage and Actionable stay in sync.
// Using a slice (not a map) because errors.Is() requires proper error chain traversal.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Workflow
	// ===================
	{
		err: ErrInvalidTransition,
		info: ErrorInfo{
			Message: "The workflow cannot accept this event in its current state.",
			Action:  "Run 'gaffer status' to see the current workflow state.",
		},
	},
	{
		err: ErrWorkflowNotStarted,
		info: ErrorInfo{
			Message: "No workflow is running.",
			Action:  "Start one with 'gaffer run'.",
		},
	},
	{
		err: ErrWorkflowFinished,
		info: ErrorInfo{
			Message: "The workflow already reached a terminal state.",
			Action:  "Run 'gaffer status' for the outcome, or start a new workflow.",
		},
	},

	// ===================
	// Recovery
	// ===================
	{
		err: ErrMaxRetriesExceeded,
		info: ErrorInfo{
			Message: "Maximum retry attempts reached.",
			Action:  "Review the recovery report and resolve the underlying failure.",
		},
	},
	{
		err: ErrEscalated,
		info: ErrorInfo{
			Message: "The failure was escalated for human attention.",
			Action:  "Check the escalation record in the logs and resolve it manually.",
		},
	},
	{
		err: ErrFixFailed,
		info: ErrorInfo{
			Message: "An automated fix did not resolve the failure.",
			Action:  "Inspect the workspace and fix the issue manually.",
		},
	},

	// ===================
	// Forge Operations
	// ===================
	{
		err: ErrForgeOperation,
		info: ErrorInfo{
			Message: "A host operation failed. Check your authentication and permissions.",
			Action:  "Verify GH_TOKEN is set and has required repository permissions.",
		},
	},
	{
		err: ErrForgeAuthFailed,
		info: ErrorInfo{
			Message: "Host authentication failed.",
			Action:  "Run 'gh auth login' or set GH_TOKEN environment variable.",
		},
	},
	{
		err: ErrForgeRateLimited,
		info: ErrorInfo{
			Message: "Host API rate limit exceeded.",
			Action:  "Wait a few minutes and try again, or use authenticated requests.",
		},
	},
	{
		err: ErrNoAssignment,
		info: ErrorInfo{
			Message: "No issue is available for assignment.",
			Action:  "Label an issue for autonomous work or wait for the next poll.",
		},
	},
	{
		err: ErrIssueNotFound,
		info: ErrorInfo{
			Message: "The specified issue was not found.",
			Action:  "Verify the issue number and repository.",
		},
	},
	{
		err: ErrPRNotFound,
		info: ErrorInfo{
			Message: "The specified pull request was not found.",
			Action:  "Verify the PR number and repository.",
		},
	},
	{
		err: ErrBranchExists,
		info: ErrorInfo{
			Message: "A branch with this name already exists.",
			Action:  "Choose a different branch name or delete the existing branch first.",
		},
	},
	{
		err: ErrMergeBlocked,
		info: ErrorInfo{
			Message: "The pull request cannot merge in its current state.",
			Action:  "Resolve conflicts or failing checks, then retry the merge.",
		},
	},

	// ===================
	// Coordination
	// ===================
	{
		err: ErrSlotsExhausted,
		info: ErrorInfo{
			Message: "All worker slots are occupied.",
			Action:  "Wait for a workflow to finish or raise the slot capacity in config.",
		},
	},
	{
		err: ErrSlotNotHeld,
		info: ErrorInfo{
			Message: "The agent does not hold the slot it tried to release.",
			Action:  "Run 'gaffer status' to inspect slot assignments.",
		},
	},
	{
		err: ErrCoordinatorStopped,
		info: ErrorInfo{
			Message: "The coordination loop has already stopped.",
			Action:  "Start a new workflow with 'gaffer run'.",
		},
	},
	{
		err: ErrRunLockHeld,
		info: ErrorInfo{
			Message: "Another scheduler process holds the run lock.",
			Action:  "Wait for the other 'gaffer run' to finish or stop it first.",
		},
	},

	// ===================
	// Audit & Review
	// ===================
	{
		err: ErrAuditClosed,
		info: ErrorInfo{
			Message: "The audit sink is closed.",
			Action:  "",
		},
	},
	{
		err: ErrFeedbackMalformed,
		info: ErrorInfo{
			Message: "A review feedback document could not be parsed.",
			Action:  "Check the feedback file for YAML syntax errors.",
		},
	},

	// ===================
	// Configuration
	// ===================
	{
		err: ErrConfigNotFound,
		info: ErrorInfo{
			Message: "Configuration file not found.",
			Action:  "Create a .gaffer.yaml file in your project or ~/.gaffer/config.yaml.",
		},
	},
	{
		err: ErrConfigNil,
		info: ErrorInfo{
			Message: "Configuration is not loaded.",
			Action:  "Ensure the configuration file exists and is valid YAML.",
		},
	},
	{
		err: ErrConfigInvalidWorkflow,
		info: ErrorInfo{
			Message: "Invalid workflow configuration.",
			Action:  "Check the 'workflow' section of your config for invalid values.",
		},
	},
	{
		err: ErrConfigInvalidForge,
		info: ErrorInfo{
			Message: "Invalid forge configuration.",
			Action:  "Check the 'forge' section of your config for invalid values.",
		},
	},
	{
		err: ErrConfigInvalidRecovery,
		info: ErrorInfo{
			Message: "Invalid recovery configuration.",
			Action:  "Check the 'recovery' section of your config for invalid values.",
		},
	},
	{
		err: ErrConfigInvalidReview,
		info: ErrorInfo{
			Message: "Invalid review configuration.",
			Action:  "Check the 'review' section of your config for invalid values.",
		},
	},
	{
		err: ErrConfigInvalidMetrics,
		info: ErrorInfo{
			Message: "Invalid metrics configuration.",
			Action:  "Check the 'metrics' section of your config for invalid values.",
		},
	},
	{
		err: ErrInvalidDuration,
		info: ErrorInfo{
			Message: "Invalid duration format.",
			Action:  "Use formats like '30s', '5m', '1h' for durations.",
		},
	},
	{
		err: ErrValueOutOfRange,
		info: ErrorInfo{
			Message: "Value is outside the allowed range.",
			Action:  "Check the documentation for valid value ranges.",
		},
	},
	{
		err: ErrEmptyValue,
		info: ErrorInfo{
			Message: "A required value was not provided.",
			Action:  "Provide the required value and try again.",
		},
	},

	// ===================
	// CLI
	// ===================
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "An invalid output format was specified.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrWatchIntervalTooShort,
		info: ErrorInfo{
			Message: "The watch interval is too short.",
			Action:  "Use an interval of at least one second.",
		},
	},
	{
		err: ErrWatchModeJSONUnsupported,
		info: ErrorInfo{
			Message: "Watch mode does not support JSON output.",
			Action:  "Use 'gaffer status --output json' for one-shot JSON.",
		},
	},
	{
		err: ErrConflictingFlags,
		info: ErrorInfo{
			Message: "The specified flags cannot be used together.",
			Action:  "Check the command help for valid flag combinations.",
		},
	},
	{
		err: ErrInvalidArgument,
		info: ErrorInfo{
			Message: "An invalid argument was provided.",
			Action:  "Check the command help for valid arguments.",
		},
	},
	{
		err: ErrCommandTimeout,
		info: ErrorInfo{
			Message: "Command execution timed out.",
			Action:  "Increase the timeout or check if the command is stuck.",
		},
	},
}

// errorInfoMap provides O(1) lookup for direct sentinel error matches.
// Built once from errorInfoEntries during package initialization.
//
//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup performance
var errorInfoMap = buildErrorInfoMap()

// buildErrorInfoMap creates a map from the errorInfoEntries slice.
// This is called once during package init for O(1) direct lookups.
func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// It first tries O(1) direct map lookup for unwrapped sentinel errors,
// then falls back to errors.Is() traversal for wrapped errors.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	// Fast path: O(1) lookup for direct sentinel errors
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	// Slow path: errors.Is() for wrapped errors
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// This function maps sentinel errors to helpful, actionable messages
// that are suitable for display to end users.
//
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that are not recoverable or have no clear action, the action
// string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
