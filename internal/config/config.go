// Package config provides configuration management for Gaffer with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (GAFFER_* prefix)
//  3. Project config (.gaffer.yaml in the working directory)
//  4. Global config (~/.gaffer/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for Gaffer.
// It contains all configuration sections for the application.
type Config struct {
	// Workflow contains settings for the workflow state machine and the
	// coordination loop that drives it.
	Workflow WorkflowConfig `yaml:"workflow" mapstructure:"workflow"`

	// Forge contains settings for the code host (issues, branches, PRs).
	Forge ForgeConfig `yaml:"forge" mapstructure:"forge"`

	// Recovery contains settings for the error recovery engine.
	Recovery RecoveryConfig `yaml:"recovery" mapstructure:"recovery"`

	// Review contains settings for review feedback collection.
	Review ReviewConfig `yaml:"review" mapstructure:"review"`

	// Audit contains settings for the SQLite transition audit trail.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// Metrics contains settings for the Prometheus debug server.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// WorkflowConfig contains settings for the workflow state machine and the
// coordination loop.
type WorkflowConfig struct {
	// MaxWorkHours is the time box for a single workflow. Once elapsed
	// work time exceeds it, the next event abandons the workflow with a
	// timeout reason.
	// Default: 8
	MaxWorkHours float64 `yaml:"max_work_hours" mapstructure:"max_work_hours"`

	// ResumeCompletionPercent is the completion percentage work resumes
	// at after a resolved blocker. Resuming is strictly forward progress.
	// Default: 50, Valid range: above 0, up to 100
	ResumeCompletionPercent float64 `yaml:"resume_completion_percent" mapstructure:"resume_completion_percent"`

	// StatusInterval is how often the status task snapshots and reports.
	// Default: 30s
	StatusInterval time.Duration `yaml:"status_interval" mapstructure:"status_interval"`

	// IdlePollInterval is the sleep between assignment polls when the
	// backlog is empty.
	// Default: 15s
	IdlePollInterval time.Duration `yaml:"idle_poll_interval" mapstructure:"idle_poll_interval"`

	// SlotCapacity is the number of concurrent worker slots tracked per
	// process.
	// Default: 4
	SlotCapacity int `yaml:"slot_capacity" mapstructure:"slot_capacity"`

	// AgentID identifies the agent in workflow state, checkpoints, and
	// the audit trail.
	// Default: "gaffer-agent"
	AgentID string `yaml:"agent_id" mapstructure:"agent_id"`
}

// ForgeConfig contains settings for the code host.
type ForgeConfig struct {
	// Kind selects the host implementation: "gh" shells out to the
	// GitHub CLI, "sim" runs the deterministic in-memory host.
	// Default: "sim"
	Kind string `yaml:"kind" mapstructure:"kind"`

	// BaseBranch is the branch working branches fork from and pull
	// requests merge into.
	// Default: "main"
	BaseBranch string `yaml:"base_branch" mapstructure:"base_branch"`

	// AssignmentLabel marks issues the scheduler may pick up.
	// Default: "gaffer"
	AssignmentLabel string `yaml:"assignment_label" mapstructure:"assignment_label"`

	// MergeMethod is the merge method for landed pull requests.
	// Valid values: "squash", "merge", "rebase"
	// Default: "squash"
	MergeMethod string `yaml:"merge_method" mapstructure:"merge_method"`

	// WorkDir is the repository directory host commands run in.
	// Default: "."
	WorkDir string `yaml:"work_dir" mapstructure:"work_dir"`
}

// RecoveryConfig contains settings for the error recovery engine.
type RecoveryConfig struct {
	// EscalationRetryInterval is the wait after an escalated recovery
	// before the failed action is attempted again.
	// Default: 30s
	EscalationRetryInterval time.Duration `yaml:"escalation_retry_interval" mapstructure:"escalation_retry_interval"`
}

// ReviewConfig contains settings for review feedback collection.
type ReviewConfig struct {
	// Source selects where feedback comes from: "forge" polls the host,
	// "file" watches a drop directory for feedback documents.
	// Default: "forge"
	Source string `yaml:"source" mapstructure:"source"`

	// PollInterval is the sleep between feedback polls while a pull
	// request is under review.
	// Default: 10s, Valid range: 1 second to 10 minutes
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// DropDir is the directory the file source watches. Empty means the
	// reviews directory under the Gaffer home.
	DropDir string `yaml:"drop_dir,omitempty" mapstructure:"drop_dir"`
}

// AuditConfig contains settings for the SQLite transition audit trail.
type AuditConfig struct {
	// Enabled turns on persistence of transition records.
	// Default: false
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the audit database file. Empty means audit.db under the
	// Gaffer home.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// MetricsConfig contains settings for the Prometheus debug server.
type MetricsConfig struct {
	// Enabled starts the debug server exposing /metrics and /debug/pprof.
	// Default: false
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Addr is the listen address for the debug server.
	// Default: "127.0.0.1:9464"
	Addr string `yaml:"addr" mapstructure:"addr"`
}
