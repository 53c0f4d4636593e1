package config

import (
	"time"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - Workflow max work hours must be positive
//   - Workflow resume completion percent must be above 0 and at most 100
//   - Workflow status and idle poll intervals must be positive
//   - Workflow slot capacity must be at least 1
//   - Forge kind must be a known kind and merge method a known method
//   - Recovery escalation retry interval must be positive
//   - Review source must be a known source
//   - Review poll interval must be between 1 second and 10 minutes
//   - Metrics address must not be empty when metrics are enabled
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	// Validate Workflow config
	if err := validateWorkflowConfig(&cfg.Workflow); err != nil {
		return err
	}

	// Validate Forge config
	if err := validateForgeConfig(&cfg.Forge); err != nil {
		return err
	}

	// Validate Recovery config
	if err := validateRecoveryConfig(&cfg.Recovery); err != nil {
		return err
	}

	// Validate Review config
	if err := validateReviewConfig(&cfg.Review); err != nil {
		return err
	}

	// Validate Metrics config
	if err := validateMetricsConfig(&cfg.Metrics); err != nil {
		return err
	}

	return nil
}

// validateWorkflowConfig checks workflow-specific configuration values.
func validateWorkflowConfig(cfg *WorkflowConfig) error {
	if cfg.MaxWorkHours <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidWorkflow,
			"workflow.max_work_hours must be positive, got %v", cfg.MaxWorkHours)
	}

	if cfg.ResumeCompletionPercent <= 0 || cfg.ResumeCompletionPercent > 100 {
		return errors.Wrapf(errors.ErrConfigInvalidWorkflow,
			"workflow.resume_completion_percent must be above 0 and at most 100, got %v",
			cfg.ResumeCompletionPercent)
	}

	if cfg.StatusInterval <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidWorkflow,
			"workflow.status_interval must be positive, got %s", cfg.StatusInterval)
	}

	if cfg.IdlePollInterval <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidWorkflow,
			"workflow.idle_poll_interval must be positive, got %s", cfg.IdlePollInterval)
	}

	if cfg.SlotCapacity < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidWorkflow,
			"workflow.slot_capacity must be at least 1, got %d", cfg.SlotCapacity)
	}

	if cfg.AgentID == "" {
		return errors.Wrap(errors.ErrConfigInvalidWorkflow,
			"workflow.agent_id must not be empty")
	}

	return nil
}

// validateForgeConfig checks forge-specific configuration values.
func validateForgeConfig(cfg *ForgeConfig) error {
	switch cfg.Kind {
	case constants.ForgeKindSim, constants.ForgeKindGH:
	default:
		return errors.Wrapf(errors.ErrConfigInvalidForge,
			"forge.kind must be %q or %q, got %q",
			constants.ForgeKindSim, constants.ForgeKindGH, cfg.Kind)
	}

	if cfg.BaseBranch == "" {
		return errors.Wrap(errors.ErrConfigInvalidForge,
			"forge.base_branch must not be empty")
	}

	if cfg.AssignmentLabel == "" {
		return errors.Wrap(errors.ErrConfigInvalidForge,
			"forge.assignment_label must not be empty")
	}

	switch cfg.MergeMethod {
	case "squash", "merge", "rebase":
	default:
		return errors.Wrapf(errors.ErrConfigInvalidForge,
			"forge.merge_method must be squash, merge, or rebase, got %q", cfg.MergeMethod)
	}

	if cfg.WorkDir == "" {
		return errors.Wrap(errors.ErrConfigInvalidForge,
			"forge.work_dir must not be empty")
	}

	return nil
}

// validateRecoveryConfig checks recovery-specific configuration values.
func validateRecoveryConfig(cfg *RecoveryConfig) error {
	if cfg.EscalationRetryInterval <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidRecovery,
			"recovery.escalation_retry_interval must be positive, got %s",
			cfg.EscalationRetryInterval)
	}

	return nil
}

// validateReviewConfig checks review-specific configuration values.
func validateReviewConfig(cfg *ReviewConfig) error {
	switch cfg.Source {
	case constants.ReviewSourceForge, constants.ReviewSourceFile:
	default:
		return errors.Wrapf(errors.ErrConfigInvalidReview,
			"review.source must be %q or %q, got %q",
			constants.ReviewSourceForge, constants.ReviewSourceFile, cfg.Source)
	}

	minPollInterval := 1 * time.Second
	maxPollInterval := 10 * time.Minute
	if cfg.PollInterval < minPollInterval || cfg.PollInterval > maxPollInterval {
		return errors.Wrapf(errors.ErrConfigInvalidReview,
			"review.poll_interval must be between %s and %s, got %s",
			minPollInterval, maxPollInterval, cfg.PollInterval)
	}

	return nil
}

// validateMetricsConfig checks metrics-specific configuration values.
func validateMetricsConfig(cfg *MetricsConfig) error {
	if cfg.Enabled && cfg.Addr == "" {
		return errors.Wrap(errors.ErrConfigInvalidMetrics,
			"metrics.addr must not be empty when metrics are enabled")
	}

	return nil
}
