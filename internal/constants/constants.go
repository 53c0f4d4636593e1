// Package constants provides centralized constant values used throughout Gaffer.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// File names used by Gaffer for state persistence.
const (
	// CheckpointFileName is the name of the JSON file that stores the workflow
	// checkpoint within the Gaffer home directory.
	CheckpointFileName = "checkpoint.json"

	// AuditDBFileName is the name of the SQLite database that stores the
	// append-only transition audit trail.
	AuditDBFileName = "audit.db"

	// AbandonRequestFileName is the name of the JSON file an operator drops
	// into the Gaffer home directory to request abandonment of the running
	// workflow. The coordination loop consumes and deletes it.
	AbandonRequestFileName = "abandon.json"

	// RunLockFileName is the name of the lock file that guards against two
	// scheduler processes sharing one Gaffer home. The lock is advisory and
	// released by the operating system when the holder exits.
	RunLockFileName = "run.lock"
)

// Directory names and paths used by Gaffer for organizing data.
const (
	// GafferHome is the hidden directory name where Gaffer stores all its data.
	// This directory is created in the user's home directory.
	GafferHome = ".gaffer"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// ReviewDropDir is the directory name watched for review feedback files
	// when the file-based review source is configured.
	ReviewDropDir = "reviews"
)

// Timeout and interval configurations for the coordination loop.
const (
	// DefaultMaxWorkHours is the default time box for a single workflow
	// instance. Once elapsed work time exceeds it, the next event is
	// pre-empted by an unconditional transition to Abandoned.
	DefaultMaxWorkHours = 8.0

	// DefaultStatusInterval is the default interval at which the status task
	// snapshots and emits the workflow status report.
	DefaultStatusInterval = 30 * time.Second

	// DefaultIdlePollInterval is the default sleep between assignment polls
	// when no work is available.
	DefaultIdlePollInterval = 15 * time.Second

	// DefaultReviewPollInterval is the default sleep between feedback polls
	// while a pull request is under review.
	DefaultReviewPollInterval = 10 * time.Second

	// DefaultEscalationRetryInterval is the default wait after an escalated
	// recovery before the failed action is attempted again.
	DefaultEscalationRetryInterval = 30 * time.Second
)

// Workflow policy defaults.
const (
	// DefaultResumeCompletionPercent is the completion percentage assigned to
	// work that resumes after a resolved blocker. Resuming is modeled as
	// strictly forward progress, never a reset to zero.
	DefaultResumeCompletionPercent = 50.0

	// DefaultSlotCapacity is the default number of concurrent worker slots
	// tracked per process.
	DefaultSlotCapacity = 4
)

// Code host defaults.
const (
	// DefaultAgentID identifies the agent when no identity is configured.
	DefaultAgentID = "gaffer-agent"

	// DefaultAssignmentLabel marks issues the scheduler may pick up. The
	// label is added while an issue is being worked and removed when its
	// workflow reaches a terminal state.
	DefaultAssignmentLabel = "gaffer"

	// DefaultBaseBranch is the branch working branches fork from and pull
	// requests merge into when no other base is configured.
	DefaultBaseBranch = "main"

	// WorkingLabel marks an issue a scheduler instance is actively working.
	// Assignment polls skip issues that carry it; it is removed when the
	// workflow reaches a terminal state.
	WorkingLabel = "gaffer:working"

	// DefaultMergeMethod is the merge method for landed pull requests.
	DefaultMergeMethod = "squash"
)

// Forge kinds accepted by the forge.kind configuration key.
const (
	// ForgeKindSim selects the in-memory simulated forge.
	ForgeKindSim = "sim"

	// ForgeKindGH selects the forge backed by the GitHub CLI.
	ForgeKindGH = "gh"
)

// Review sources accepted by the review.source configuration key.
const (
	// ReviewSourceForge polls pull request reviews from the forge.
	ReviewSourceForge = "forge"

	// ReviewSourceFile reads review verdicts from JSON files in a drop
	// directory.
	ReviewSourceFile = "file"
)

// Observability defaults.
const (
	// DefaultMetricsAddr is the loopback listen address for the Prometheus
	// and pprof debug server.
	DefaultMetricsAddr = "127.0.0.1:9464"
)

// Schema version constants for data migration support.
const (
	// CheckpointSchemaVersion is the current version of the checkpoint JSON
	// schema. This enables forward-compatible schema migrations.
	CheckpointSchemaVersion = "1.0"
)
