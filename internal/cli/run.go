package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gafferworks/gaffer/internal/audit"
	"github.com/gafferworks/gaffer/internal/config"
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/coordinator"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
	"github.com/gafferworks/gaffer/internal/flock"
	"github.com/gafferworks/gaffer/internal/forge"
	"github.com/gafferworks/gaffer/internal/metrics"
	"github.com/gafferworks/gaffer/internal/recovery"
	"github.com/gafferworks/gaffer/internal/review"
	"github.com/gafferworks/gaffer/internal/signal"
	"github.com/gafferworks/gaffer/internal/tui"
	"github.com/gafferworks/gaffer/internal/workflow"
)

// shutdownTimeout bounds the debug server drain at the end of a run.
const shutdownTimeout = 5 * time.Second

// simSeedIssueNumber numbers the synthetic issue a sim run works on.
const simSeedIssueNumber = 1

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command) {
	root.AddCommand(newRunCmd())
}

// runOptions contains all options for the run command.
type runOptions struct {
	forgeKind  string
	maxHours   float64
	workDir    string
	issueTitle string
	resume     bool
	auditOn    bool
	metricsOn  bool

	// set from Flags().Changed so zero values stay distinguishable
	maxHoursSet bool
	auditSet    bool
	metricsSet  bool
}

// newRunCmd creates the run command.
func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Claim an assignment and drive it to merge or abandonment",
		Long: `Run the scheduler for one assignment: claim the next eligible issue,
prepare a working branch, walk the workflow through implementation,
review, and merge, and recover from stoppages along the way.

The run concludes when the workflow merges or is abandoned, when the
work time box is spent, or when a blocker needs a human. Press Ctrl+C
once for a checkpointed shutdown; twice to exit immediately.

Examples:
  gaffer run                          # simulated host, default time box
  gaffer run --forge gh               # schedule against the GitHub CLI
  gaffer run --max-hours 2.5          # tighter time box
  gaffer run --resume                 # pick up a checkpointed run
  gaffer run --audit --metrics        # audit trail + debug server`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.maxHoursSet = cmd.Flags().Changed("max-hours")
			opts.auditSet = cmd.Flags().Changed("audit")
			opts.metricsSet = cmd.Flags().Changed("metrics")
			return runRun(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.forgeKind, "forge", "",
		"code host implementation (sim|gh)")
	cmd.Flags().Float64Var(&opts.maxHours, "max-hours", 0,
		"work time box in hours before forced abandonment")
	cmd.Flags().StringVarP(&opts.workDir, "workdir", "C", "",
		"repository directory host commands run in")
	cmd.Flags().StringVar(&opts.issueTitle, "issue-title", "simulated assignment",
		"title of the synthetic issue a sim run works on")
	cmd.Flags().BoolVar(&opts.resume, "resume", false,
		"restore the saved checkpoint before starting")
	cmd.Flags().BoolVar(&opts.auditOn, "audit", false,
		"persist the transition audit trail")
	cmd.Flags().BoolVar(&opts.metricsOn, "metrics", false,
		"serve Prometheus metrics and pprof profiles")

	return cmd
}

// runRun executes the run command.
func runRun(ctx context.Context, cmd *cobra.Command, w io.Writer, opts runOptions) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Two-stage shutdown: first Ctrl+C checkpoints and unwinds, second
	// abandons the unwind.
	sigHandler := signal.NewHandler(ctx)
	defer sigHandler.Stop()
	ctx = sigHandler.Context()

	logger := GetLogger()
	outputFormat := cmd.Flag("output").Value.String()

	tui.CheckNoColor()
	out := tui.NewOutput(w, outputFormat)

	cfg, err := loadRunConfig(ctx, opts) //nolint:contextcheck // context is properly checked and used
	if err != nil {
		out.Error(err)
		return err
	}

	// One scheduler per home: the checkpoint, audit trail, and abandon
	// request are single-writer files.
	lockPath, err := config.RunLockPath()
	if err != nil {
		out.Error(err)
		return err
	}
	lock, err := flock.Acquire(lockPath)
	if err != nil {
		out.Error(err)
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.Warn().Err(releaseErr).Msg("run lock release failed")
		}
	}()

	deps, err := buildRunDeps(cfg, logger)
	if err != nil {
		out.Error(err)
		return err
	}
	defer deps.close(logger)

	resumed := false
	if opts.resume {
		if resumed, err = restoreCheckpoint(ctx, deps, out, logger); err != nil { //nolint:contextcheck // context is properly checked and used
			return err
		}
	}
	if !resumed {
		seedSimIssue(deps.host, cfg, opts.issueTitle)
	}

	return executeRun(ctx, sigHandler, deps, out, outputFormat, logger) //nolint:contextcheck // context is properly checked and used
}

// loadRunConfig loads the layered configuration and applies run flag
// overrides, re-validating the result.
func loadRunConfig(ctx context.Context, opts runOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.workDir != "" {
		cfg, err = config.LoadFromWorkDir(ctx, opts.workDir)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.forgeKind != "" {
		cfg.Forge.Kind = opts.forgeKind
	}
	if opts.workDir != "" {
		cfg.Forge.WorkDir = opts.workDir
	}
	if opts.maxHoursSet {
		cfg.Workflow.MaxWorkHours = opts.maxHours
	}
	// Bool flags apply only when set, so config-file values survive.
	if opts.auditSet {
		cfg.Audit.Enabled = opts.auditOn
	}
	if opts.metricsSet {
		cfg.Metrics.Enabled = opts.metricsOn
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return cfg, nil
}

// runDeps bundles the collaborators a run wires together, so shutdown
// can release them in one place.
type runDeps struct {
	cfg            *config.Config
	coord          *coordinator.Coordinator
	host           forge.Host
	auditStore     *audit.Store
	metricsServer  *metrics.Server
	reviewSource   review.Source
	checkpointPath string
}

// close releases the run's resources in reverse construction order.
func (d *runDeps) close(logger zerolog.Logger) {
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("debug server shutdown failed")
		}
		cancel()
	}
	if closer, ok := d.reviewSource.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn().Err(err).Msg("review source close failed")
		}
	}
	if d.auditStore != nil {
		if err := d.auditStore.Close(); err != nil {
			logger.Warn().Err(err).Msg("audit store close failed")
		}
	}
}

// buildRunDeps constructs the coordinator and its collaborators from
// resolved configuration.
func buildRunDeps(cfg *config.Config, logger zerolog.Logger) (*runDeps, error) {
	deps := &runDeps{cfg: cfg}

	host, err := buildHost(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.host = host

	reviews, err := buildReviewSource(cfg, host, logger)
	if err != nil {
		return nil, err
	}
	deps.reviewSource = reviews

	checkpointPath, err := config.CheckpointPath()
	if err != nil {
		return nil, err
	}
	deps.checkpointPath = checkpointPath

	abandonPath, err := config.AbandonRequestPath()
	if err != nil {
		return nil, err
	}

	options := []coordinator.Option{
		coordinator.WithLogger(logger),
		coordinator.WithCheckpointer(coordinator.NewFileCheckpointer(checkpointPath)),
		coordinator.WithAbandonRequestPath(abandonPath),
		coordinator.WithAgentID(domain.AgentID(cfg.Workflow.AgentID)),
		coordinator.WithBaseBranch(cfg.Forge.BaseBranch),
		coordinator.WithStatusInterval(cfg.Workflow.StatusInterval),
		coordinator.WithIdlePollInterval(cfg.Workflow.IdlePollInterval),
		coordinator.WithReviewPollInterval(cfg.Review.PollInterval),
		coordinator.WithEscalationRetryInterval(cfg.Recovery.EscalationRetryInterval),
	}

	if cfg.Audit.Enabled {
		path := cfg.Audit.Path
		if path == "" {
			if path, err = config.AuditPath(); err != nil {
				return nil, err
			}
		}
		store, err := audit.Open(path, audit.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		deps.auditStore = store
		options = append(options, coordinator.WithAuditStore(store))
	}

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector()
		server := metrics.NewServer(cfg.Metrics.Addr, collector, metrics.WithServerLogger(logger))
		if err := server.Start(); err != nil {
			deps.close(logger)
			return nil, err
		}
		deps.metricsServer = server
		options = append(options, coordinator.WithMetrics(collector))
	}

	machine := workflow.NewMachine(
		workflow.WithMaxWorkHours(cfg.Workflow.MaxWorkHours),
		workflow.WithResumeCompletion(cfg.Workflow.ResumeCompletionPercent),
	)
	engine := recovery.NewExecutor(nil, recovery.WithExecutorLogger(logger))
	slots := coordinator.NewSlotTracker(cfg.Workflow.SlotCapacity)

	// The development work itself is out of the scheduler's hands; the
	// scripted agent stands in as the deterministic worker binding.
	agent := coordinator.NewScriptedAgent()

	deps.coord = coordinator.New(machine, engine, host, agent, reviews, slots, options...)
	return deps, nil
}

// buildHost constructs the configured code host.
func buildHost(cfg *config.Config, logger zerolog.Logger) (forge.Host, error) {
	switch cfg.Forge.Kind {
	case constants.ForgeKindSim:
		return forge.NewSim(), nil
	case constants.ForgeKindGH:
		return forge.NewCLIHost(cfg.Forge.WorkDir,
			forge.WithHostLogger(logger),
			forge.WithAssignmentLabel(cfg.Forge.AssignmentLabel),
			forge.WithMergeMethod(cfg.Forge.MergeMethod),
		), nil
	default:
		return nil, fmt.Errorf("%w: unknown forge kind %q", gaffererrors.ErrConfigInvalidForge, cfg.Forge.Kind)
	}
}

// buildReviewSource constructs the configured review feedback source.
func buildReviewSource(cfg *config.Config, host forge.Host, logger zerolog.Logger) (review.Source, error) {
	switch cfg.Review.Source {
	case constants.ReviewSourceForge:
		return review.NewForgeSource(host), nil
	case constants.ReviewSourceFile:
		dir := cfg.Review.DropDir
		if dir == "" {
			var err error
			if dir, err = config.ReviewDropPath(); err != nil {
				return nil, err
			}
		}
		src, err := review.NewFileSource(dir, review.WithFileSourceLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open review drop directory: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: unknown review source %q", gaffererrors.ErrConfigInvalidReview, cfg.Review.Source)
	}
}

// seedSimIssue queues the synthetic issue a sim run works on. Without
// it an empty sim would idle-poll forever.
func seedSimIssue(host forge.Host, cfg *config.Config, title string) {
	sim, ok := host.(*forge.Sim)
	if !ok {
		return
	}
	sim.QueueIssue(domain.Issue{
		Number:   simSeedIssueNumber,
		Title:    title,
		Labels:   []string{cfg.Forge.AssignmentLabel},
		Priority: constants.PriorityMedium,
	})
}

// restoreCheckpoint loads and replays the saved checkpoint. A missing
// checkpoint file means a fresh start, not an error.
func restoreCheckpoint(ctx context.Context, deps *runDeps, out tui.Output, logger zerolog.Logger) (bool, error) {
	cp, err := coordinator.LoadCheckpoint(deps.checkpointPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			out.Info("No checkpoint to resume; starting fresh.")
			return false, nil
		}
		out.Error(err)
		return false, err
	}

	if err := deps.coord.Restore(ctx, cp); err != nil {
		out.Error(err)
		return false, err
	}

	// Terminal and not-yet-assigned checkpoints restore nothing.
	if deps.coord.Status().Status == constants.StatusNone {
		out.Info("Checkpoint holds no resumable work; starting fresh.")
		return false, nil
	}
	logger.Info().Str("checkpoint", deps.checkpointPath).Msg("resumed from checkpoint")
	return true, nil
}

// executeRun drives the coordination loop and reports the outcome.
func executeRun(
	ctx context.Context,
	sigHandler *signal.Handler,
	deps *runDeps,
	out tui.Output,
	outputFormat string,
	logger zerolog.Logger,
) error {
	runErr := make(chan error, 1)
	go func() { runErr <- deps.coord.Run(ctx) }()

	var err error
	select {
	case err = <-runErr:
	case <-sigHandler.Forced():
		logger.Warn().Msg("forced shutdown, abandoning graceful unwind")
		return fmt.Errorf("forced shutdown: %w", context.Canceled)
	}

	if err != nil {
		out.Error(err)
		return err
	}

	return reportRunOutcome(sigHandler, deps, out, outputFormat)
}

// reportRunOutcome prints the closing summary for a run that unwound
// cleanly.
func reportRunOutcome(sigHandler *signal.Handler, deps *runDeps, out tui.Output, outputFormat string) error {
	report := deps.coord.Status()

	if outputFormat == OutputJSON {
		return out.JSON(report)
	}

	select {
	case <-sigHandler.Interrupted():
		out.Warning(fmt.Sprintf("Run interrupted; state checkpointed to %s. Resume with 'gaffer run --resume'.", deps.checkpointPath))
		return nil
	default:
	}

	summary := fmt.Sprintf("Workflow %s after %s (%d transitions)",
		tui.StatusTitle(report.Status), tui.FormatDuration(report.Uptime), report.TransitionCount)
	switch report.Status {
	case constants.StatusMerged:
		out.Success(summary)
	case constants.StatusAbandoned:
		out.Warning(summary)
	default:
		out.Info(summary)
	}
	return nil
}
