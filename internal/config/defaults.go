package config

import (
	"github.com/gafferworks/gaffer/internal/constants"
)

// DefaultConfig returns a new Config with default values. These defaults are
// the base layer that config files, environment variables, and CLI flags
// override.
//
// The defaults produce a working setup out of the box: a simulated forge,
// no audit trail, and no metrics listener.
func DefaultConfig() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			// MaxWorkHours: the time box after which a run is abandoned.
			MaxWorkHours: constants.DefaultMaxWorkHours,

			// ResumeCompletionPercent: progress at or above this survives
			// a blocker recovery without restarting the work phase.
			ResumeCompletionPercent: constants.DefaultResumeCompletionPercent,

			// StatusInterval: how often the loop logs a status report.
			StatusInterval: constants.DefaultStatusInterval,

			// IdlePollInterval: backlog poll cadence when no work is live.
			IdlePollInterval: constants.DefaultIdlePollInterval,

			// SlotCapacity: concurrent workflow slots the tracker hands out.
			SlotCapacity: constants.DefaultSlotCapacity,

			// AgentID: identity recorded on assignments and checkpoints.
			AgentID: constants.DefaultAgentID,
		},
		Forge: ForgeConfig{
			// Kind: "sim" runs against the in-memory forge, so a fresh
			// install works without credentials. Set "gh" for GitHub.
			Kind: constants.ForgeKindSim,

			// BaseBranch: projects using a different trunk override this.
			BaseBranch: constants.DefaultBaseBranch,

			// AssignmentLabel: issues carrying this label are eligible
			// for pickup.
			AssignmentLabel: constants.DefaultAssignmentLabel,

			// MergeMethod: passed to the forge when merging a PR.
			MergeMethod: constants.DefaultMergeMethod,

			// WorkDir: where forge CLI commands run.
			WorkDir: ".",
		},
		Recovery: RecoveryConfig{
			// EscalationRetryInterval: wait between re-checks while an
			// escalated failure holds the workflow.
			EscalationRetryInterval: constants.DefaultEscalationRetryInterval,
		},
		Review: ReviewConfig{
			// Source: "forge" polls PR reviews; "file" watches a drop
			// directory instead.
			Source: constants.ReviewSourceForge,

			// PollInterval: review poll cadence while a PR is open.
			PollInterval: constants.DefaultReviewPollInterval,

			// DropDir: empty means the reviews directory under the
			// Gaffer home.
			DropDir: "",
		},
		Audit: AuditConfig{
			// Enabled: the audit trail is opt-in.
			Enabled: false,

			// Path: empty means audit.db under the Gaffer home.
			Path: "",
		},
		Metrics: MetricsConfig{
			// Enabled: the metrics listener is opt-in.
			Enabled: false,

			// Addr: loopback only unless overridden.
			Addr: constants.DefaultMetricsAddr,
		},
	}
}
