package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gafferworks/gaffer/internal/config"
	"github.com/gafferworks/gaffer/internal/tui"
)

// AddConfigCommand adds the config command group to the root command.
func AddConfigCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect gaffer configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	root.AddCommand(cmd)
}

// configShowOptions contains all options for the config show command.
type configShowOptions struct {
	defaults bool
	workDir  string
}

// newConfigShowCmd creates the config show command.
func newConfigShowCmd() *cobra.Command {
	var opts configShowOptions

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Long: `Show the configuration a run would use after layering defaults, the
global config file, the project config file, and GAFFER_ environment
variables.

Examples:
  gaffer config show
  gaffer config show --defaults      # built-in defaults only
  gaffer config show --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.defaults, "defaults", false,
		"show built-in defaults instead of the resolved configuration")
	cmd.Flags().StringVarP(&opts.workDir, "workdir", "C", "",
		"repository directory whose project config applies")

	return cmd
}

// runConfigShow executes the config show command.
func runConfigShow(ctx context.Context, cmd *cobra.Command, w io.Writer, opts configShowOptions) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outputFormat := cmd.Flag("output").Value.String()

	tui.CheckNoColor()
	out := tui.NewOutput(w, outputFormat)

	var cfg *config.Config
	if opts.defaults {
		cfg = config.DefaultConfig()
	} else {
		var err error
		if opts.workDir != "" {
			cfg, err = config.LoadFromWorkDir(ctx, opts.workDir)
		} else {
			cfg, err = config.Load(ctx)
		}
		if err != nil {
			out.Error(err)
			return err
		}
	}

	if outputFormat == OutputJSON {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	return nil
}

// configPaths is the JSON document of the config path command.
type configPaths struct {
	GlobalConfig  string `json:"global_config"`
	ProjectConfig string `json:"project_config"`
	Logs          string `json:"logs"`
	Checkpoint    string `json:"checkpoint"`
	Audit         string `json:"audit"`
	ReviewDrop    string `json:"review_drop"`
	RunLock       string `json:"run_lock"`
}

// newConfigPathCmd creates the config path command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where gaffer reads and writes its files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigPath(cmd.Context(), cmd, cmd.OutOrStdout())
		},
	}
}

// runConfigPath executes the config path command.
func runConfigPath(ctx context.Context, cmd *cobra.Command, w io.Writer) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outputFormat := cmd.Flag("output").Value.String()

	tui.CheckNoColor()
	out := tui.NewOutput(w, outputFormat)

	paths, err := resolvePaths()
	if err != nil {
		out.Error(err)
		return err
	}

	if outputFormat == OutputJSON {
		return out.JSON(paths)
	}

	lines := []struct{ label, value string }{
		{"Global config", paths.GlobalConfig},
		{"Project config", paths.ProjectConfig},
		{"Logs", paths.Logs},
		{"Checkpoint", paths.Checkpoint},
		{"Audit trail", paths.Audit},
		{"Review drop", paths.ReviewDrop},
		{"Run lock", paths.RunLock},
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "%-15s %s\n", line.label, line.value); err != nil {
			return fmt.Errorf("write path line: %w", err)
		}
	}
	return nil
}

// resolvePaths collects every file location under the gaffer home.
func resolvePaths() (configPaths, error) {
	var paths configPaths
	var err error

	if paths.GlobalConfig, err = config.GlobalConfigPath(); err != nil {
		return configPaths{}, err
	}
	paths.ProjectConfig = config.ProjectConfigPath()
	if paths.Logs, err = config.LogsDirPath(); err != nil {
		return configPaths{}, err
	}
	if paths.Checkpoint, err = config.CheckpointPath(); err != nil {
		return configPaths{}, err
	}
	if paths.Audit, err = config.AuditPath(); err != nil {
		return configPaths{}, err
	}
	if paths.ReviewDrop, err = config.ReviewDropPath(); err != nil {
		return configPaths{}, err
	}
	if paths.RunLock, err = config.RunLockPath(); err != nil {
		return configPaths{}, err
	}
	return paths, nil
}
