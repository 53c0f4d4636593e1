package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gafferworks/gaffer/internal/constants"
)

func TestDefaultConfig_ReturnsValidConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg, "DefaultConfig should not return nil")

	// Verify Workflow defaults
	assert.InDelta(t, constants.DefaultMaxWorkHours, cfg.Workflow.MaxWorkHours, 0.001, "default max work hours")
	assert.InDelta(t, constants.DefaultResumeCompletionPercent, cfg.Workflow.ResumeCompletionPercent, 0.001, "default resume completion percent")
	assert.Equal(t, constants.DefaultStatusInterval, cfg.Workflow.StatusInterval, "default status interval")
	assert.Equal(t, constants.DefaultIdlePollInterval, cfg.Workflow.IdlePollInterval, "default idle poll interval")
	assert.Equal(t, constants.DefaultSlotCapacity, cfg.Workflow.SlotCapacity, "default slot capacity")
	assert.Equal(t, constants.DefaultAgentID, cfg.Workflow.AgentID, "default agent id")

	// Verify Forge defaults
	assert.Equal(t, constants.ForgeKindSim, cfg.Forge.Kind, "default forge kind")
	assert.Equal(t, constants.DefaultBaseBranch, cfg.Forge.BaseBranch, "default base branch")
	assert.Equal(t, constants.DefaultAssignmentLabel, cfg.Forge.AssignmentLabel, "default assignment label")
	assert.Equal(t, constants.DefaultMergeMethod, cfg.Forge.MergeMethod, "default merge method")
	assert.Equal(t, ".", cfg.Forge.WorkDir, "default work dir")

	// Verify Recovery defaults
	assert.Equal(t, constants.DefaultEscalationRetryInterval, cfg.Recovery.EscalationRetryInterval, "default escalation retry interval")

	// Verify Review defaults
	assert.Equal(t, constants.ReviewSourceForge, cfg.Review.Source, "default review source")
	assert.Equal(t, constants.DefaultReviewPollInterval, cfg.Review.PollInterval, "default review poll interval")
	assert.Empty(t, cfg.Review.DropDir, "drop dir defaults to empty and resolves under the Gaffer home")

	// Verify Audit defaults
	assert.False(t, cfg.Audit.Enabled, "audit should be disabled by default")
	assert.Empty(t, cfg.Audit.Path, "audit path defaults to empty and resolves under the Gaffer home")

	// Verify Metrics defaults
	assert.False(t, cfg.Metrics.Enabled, "metrics should be disabled by default")
	assert.Equal(t, constants.DefaultMetricsAddr, cfg.Metrics.Addr, "default metrics addr")

	// Validate the default config passes validation
	err := Validate(cfg)
	assert.NoError(t, err, "default config should pass validation")
}

func TestConfig_YAMLKeyNames(t *testing.T) {
	// The config show command dumps the resolved Config with yaml.Marshal,
	// so the YAML tags must produce the same snake_case keys the loader
	// reads from config files.
	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err, "should marshal to YAML")

	out := string(data)
	keys := []string{
		"workflow:",
		"max_work_hours:",
		"resume_completion_percent:",
		"status_interval:",
		"idle_poll_interval:",
		"slot_capacity:",
		"agent_id:",
		"forge:",
		"kind:",
		"base_branch:",
		"assignment_label:",
		"merge_method:",
		"work_dir:",
		"recovery:",
		"escalation_retry_interval:",
		"review:",
		"source:",
		"poll_interval:",
		"audit:",
		"enabled:",
		"metrics:",
		"addr:",
	}
	for _, key := range keys {
		assert.Contains(t, out, key, "marshaled config should contain key %q", key)
	}
}
