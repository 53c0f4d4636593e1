package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/errors"
)

// newViperInstance creates a new Viper instance with standard Gaffer
// configuration. This includes the environment variable prefix (GAFFER_),
// key replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GAFFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not
// found error. This helps consolidate the common pattern of checking for
// missing config files.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (GAFFER_* prefix)
//  2. Project config (.gaffer.yaml in the current directory)
//  3. Global config (~/.gaffer/config.yaml)
//  4. Built-in defaults
//
// For CLI flag overrides, use LoadWithOverrides instead.
//
// The function returns an error only for actual configuration problems,
// not for missing config files (which are expected in many scenarios).
//
// The context parameter carries the logger; config file reads are fast local
// I/O and are not subject to cancellation.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	// Load global config first (lower precedence)
	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}

	// Load project config (higher precedence, merges over global)
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	// Log loaded configuration for debugging
	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("forge.kind", cfg.Forge.Kind).
		Dur("workflow.status_interval", cfg.Workflow.StatusInterval).
		Dur("review.poll_interval", cfg.Review.PollInterval).
		Msg("configuration loaded and unmarshaled")

	// Validate the configuration
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

// loadGlobalConfig attempts to load the global config file (~/.gaffer/config.yaml).
// Returns nil if the file doesn't exist or home directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, ok := getGlobalConfigPathIfExists()
	if !ok {
		// Global config doesn't exist or home dir unavailable, skip silently
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// getGlobalConfigPathIfExists returns the global config path if it exists.
// Returns empty string and false if the home directory cannot be determined
// or the config file does not exist.
func getGlobalConfigPathIfExists() (string, bool) {
	globalConfigPath, err := GlobalConfigPath()
	if err != nil {
		return "", false
	}

	if _, err := os.Stat(globalConfigPath); err != nil {
		return "", false
	}

	return globalConfigPath, true
}

// loadProjectConfig attempts to load the project config file (.gaffer.yaml).
// Returns nil if the file doesn't exist.
func loadProjectConfig(v *viper.Viper) error {
	projectConfigPath := ProjectConfigPath()
	if !fileExists(projectConfigPath) {
		// Project config doesn't exist, skip silently
		return nil
	}

	v.SetConfigFile(projectConfigPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// The overrides parameter contains values from CLI flags which have the
// highest precedence in the configuration hierarchy.
//
// Only non-zero values in overrides are applied. Zero values are ignored
// to allow partial overrides.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	// Load base configuration first
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}

	// Apply overrides if provided
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	// Re-validate after applying overrides
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}

	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths for testing.
// This function allows precise control over which config files are loaded.
//
// projectConfigPath is the path to project-level config (higher priority).
// globalConfigPath is the path to global config (lower priority).
// Either path can be empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	// Load global config first (lower precedence)
	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	// Load project config (higher precedence, merges over global)
	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// LoadFromWorkDir loads configuration treating workDir as the project root.
// Config is loaded in order (highest precedence first):
//  1. Environment variables (GAFFER_* prefix)
//  2. Project config (workDir/.gaffer.yaml)
//  3. Global config (~/.gaffer/config.yaml)
//  4. Built-in defaults
//
// The run command uses this when its working directory flag points away from
// the current directory, so the target repository's own .gaffer.yaml wins.
func LoadFromWorkDir(_ context.Context, workDir string) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}

	projectConfigPath := filepath.Join(workDir, constants.ProjectConfigName)
	if fileExists(projectConfigPath) {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults configures all default values on the Viper instance.
// These defaults match the values from DefaultConfig().
// IMPORTANT: Keys must match the YAML tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	// Workflow defaults
	v.SetDefault("workflow.max_work_hours", constants.DefaultMaxWorkHours)
	v.SetDefault("workflow.resume_completion_percent", constants.DefaultResumeCompletionPercent)
	v.SetDefault("workflow.status_interval", constants.DefaultStatusInterval)
	v.SetDefault("workflow.idle_poll_interval", constants.DefaultIdlePollInterval)
	v.SetDefault("workflow.slot_capacity", constants.DefaultSlotCapacity)
	v.SetDefault("workflow.agent_id", constants.DefaultAgentID)

	// Forge defaults
	v.SetDefault("forge.kind", constants.ForgeKindSim)
	v.SetDefault("forge.base_branch", constants.DefaultBaseBranch)
	v.SetDefault("forge.assignment_label", constants.DefaultAssignmentLabel)
	v.SetDefault("forge.merge_method", constants.DefaultMergeMethod)
	v.SetDefault("forge.work_dir", ".")

	// Recovery defaults
	v.SetDefault("recovery.escalation_retry_interval", constants.DefaultEscalationRetryInterval)

	// Review defaults
	v.SetDefault("review.source", constants.ReviewSourceForge)
	v.SetDefault("review.poll_interval", constants.DefaultReviewPollInterval)
	v.SetDefault("review.drop_dir", "")

	// Audit defaults
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", constants.DefaultMetricsAddr)
}

// applyOverrides merges non-zero override values into the config.
// Only non-zero values are applied to allow partial overrides.
//
// IMPORTANT: Boolean fields (Audit.Enabled, Metrics.Enabled) cannot be
// overridden to false using this function because Go's zero value for bool
// is false, making it impossible to distinguish "explicitly set to false"
// from "not set". CLI implementations should handle boolean flags separately:
//
//	// Example CLI handling for bool flags:
//	if cmd.Flags().Changed("audit") {
//	    cfg.Audit.Enabled = auditFlag  // Use flag value directly
//	}
func applyOverrides(cfg, overrides *Config) {
	applyWorkflowOverrides(cfg, overrides)
	applyForgeOverrides(cfg, overrides)

	// Recovery overrides
	if overrides.Recovery.EscalationRetryInterval != 0 {
		cfg.Recovery.EscalationRetryInterval = overrides.Recovery.EscalationRetryInterval
	}

	// Review overrides
	if overrides.Review.Source != "" {
		cfg.Review.Source = overrides.Review.Source
	}
	if overrides.Review.PollInterval != 0 {
		cfg.Review.PollInterval = overrides.Review.PollInterval
	}
	if overrides.Review.DropDir != "" {
		cfg.Review.DropDir = overrides.Review.DropDir
	}

	// Audit overrides (Enabled is a bool - see caveat above)
	if overrides.Audit.Path != "" {
		cfg.Audit.Path = overrides.Audit.Path
	}

	// Metrics overrides (Enabled is a bool - see caveat above)
	if overrides.Metrics.Addr != "" {
		cfg.Metrics.Addr = overrides.Metrics.Addr
	}
}

// applyWorkflowOverrides applies workflow-related overrides to the config.
// This is extracted from applyOverrides to reduce cognitive complexity.
func applyWorkflowOverrides(cfg, overrides *Config) {
	if overrides.Workflow.MaxWorkHours != 0 {
		cfg.Workflow.MaxWorkHours = overrides.Workflow.MaxWorkHours
	}
	if overrides.Workflow.ResumeCompletionPercent != 0 {
		cfg.Workflow.ResumeCompletionPercent = overrides.Workflow.ResumeCompletionPercent
	}
	if overrides.Workflow.StatusInterval != 0 {
		cfg.Workflow.StatusInterval = overrides.Workflow.StatusInterval
	}
	if overrides.Workflow.IdlePollInterval != 0 {
		cfg.Workflow.IdlePollInterval = overrides.Workflow.IdlePollInterval
	}
	if overrides.Workflow.SlotCapacity != 0 {
		cfg.Workflow.SlotCapacity = overrides.Workflow.SlotCapacity
	}
	if overrides.Workflow.AgentID != "" {
		cfg.Workflow.AgentID = overrides.Workflow.AgentID
	}
}

// applyForgeOverrides applies forge-related overrides to the config.
// This is extracted from applyOverrides to reduce cognitive complexity.
func applyForgeOverrides(cfg, overrides *Config) {
	if overrides.Forge.Kind != "" {
		cfg.Forge.Kind = overrides.Forge.Kind
	}
	if overrides.Forge.BaseBranch != "" {
		cfg.Forge.BaseBranch = overrides.Forge.BaseBranch
	}
	if overrides.Forge.AssignmentLabel != "" {
		cfg.Forge.AssignmentLabel = overrides.Forge.AssignmentLabel
	}
	if overrides.Forge.MergeMethod != "" {
		cfg.Forge.MergeMethod = overrides.Forge.MergeMethod
	}
	if overrides.Forge.WorkDir != "" {
		cfg.Forge.WorkDir = overrides.Forge.WorkDir
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
