package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/gafferworks/gaffer/internal/config"
	"github.com/gafferworks/gaffer/internal/domain"
	"github.com/gafferworks/gaffer/internal/tui"
)

// AddStatusCommand adds the status command to the root command.
func AddStatusCommand(root *cobra.Command) {
	root.AddCommand(newStatusCmd())
}

// statusOptions contains all options for the status command.
type statusOptions struct {
	transitions int
	workDir     string
}

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the checkpointed workflow status",
		Long: `Show the last persisted state of the workflow run: the current
status, elapsed and remaining work time, and the recent transition
history when an audit trail was recorded.

Status reads the checkpoint and audit files, so it works while a run
is in progress in another terminal and after the run has concluded.

Examples:
  gaffer status                  # summary panel plus recent transitions
  gaffer status --transitions 25 # longer history
  gaffer status --output json    # machine-readable report`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.transitions, "transitions", 10,
		"how many recent transitions to show (0 hides the table)")
	cmd.Flags().StringVarP(&opts.workDir, "workdir", "C", "",
		"repository directory whose project config applies")

	return cmd
}

// runSource is what the status command needs from an observed run.
type runSource interface {
	tui.StatusSource
	tui.TransitionSource
}

// runStatus executes the status command.
func runStatus(ctx context.Context, cmd *cobra.Command, w io.Writer, opts statusOptions) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outputFormat := cmd.Flag("output").Value.String()

	tui.CheckNoColor()
	out := tui.NewOutput(w, outputFormat)

	src, err := newRunObserver(observerConfig(ctx, opts.workDir))
	if err != nil {
		out.Error(err)
		return err
	}

	return runStatusWithSource(ctx, w, out, outputFormat, src, opts.transitions)
}

// observerConfig resolves configuration for read-only observation. Unlike
// run, a broken config file does not block looking at state, so load
// failures fall back to defaults.
func observerConfig(ctx context.Context, workDir string) *config.Config {
	var cfg *config.Config
	var err error
	if workDir != "" {
		cfg, err = config.LoadFromWorkDir(ctx, workDir)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		logger := GetLogger()
		logger.Debug().Err(err).Msg("config load failed, using defaults")
		return config.DefaultConfig()
	}
	return cfg
}

// statusPayload is the JSON document of the status command. Field names
// line up with the coordinator's live report so consumers can read both.
type statusPayload struct {
	Running          bool                      `json:"running"`
	RunID            string                    `json:"run_id,omitempty"`
	Status           string                    `json:"status,omitempty"`
	AgentID          string                    `json:"agent_id,omitempty"`
	IssueNumber      int                       `json:"issue_number,omitempty"`
	Uptime           time.Duration             `json:"uptime,omitempty"`
	TimeRemaining    time.Duration             `json:"time_remaining,omitempty"`
	TransitionCount  int                       `json:"transition_count,omitempty"`
	LastTransitionAt *time.Time                `json:"last_transition_at,omitempty"`
	CanContinue      bool                      `json:"can_continue"`
	Transitions      []domain.TransitionRecord `json:"transitions,omitempty"`
	Actions          []map[string]string       `json:"actions,omitempty"`
}

// runStatusWithSource executes status with injected dependencies for
// testability.
func runStatusWithSource(ctx context.Context, w io.Writer, out tui.Output, outputFormat string, src runSource, transitions int) error {
	view, err := src.StatusView(ctx)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return renderNoRun(out, outputFormat)
		}
		out.Error(err)
		return err
	}

	var records []domain.TransitionRecord
	if transitions > 0 {
		// History is decoration here; the panel renders without it.
		records, _ = src.RecentTransitions(ctx, transitions)
	}

	if outputFormat == OutputJSON {
		return out.JSON(statusToPayload(view, records))
	}
	return renderStatusText(w, view, records)
}

// renderNoRun reports the no-checkpoint case, which is informational
// rather than an error.
func renderNoRun(out tui.Output, outputFormat string) error {
	if outputFormat == OutputJSON {
		return out.JSON(statusPayload{Running: false})
	}
	out.Info("No workflow run found. Start one with 'gaffer run'.")
	return nil
}

// statusToPayload flattens the display view into the JSON document.
func statusToPayload(view tui.StatusView, records []domain.TransitionRecord) statusPayload {
	return statusPayload{
		Running:          !tui.IsConcludedStatus(view.Status),
		RunID:            view.RunID,
		Status:           view.Status.String(),
		AgentID:          view.AgentID,
		IssueNumber:      view.IssueNumber,
		Uptime:           view.Uptime,
		TimeRemaining:    view.TimeRemaining,
		TransitionCount:  view.TransitionCount,
		LastTransitionAt: view.LastTransitionAt,
		CanContinue:      view.CanContinue,
		Transitions:      records,
		Actions:          tui.NewActionFooter(view).ToJSON(),
	}
}

// renderStatusText renders the panel, transition table, and action footer.
func renderStatusText(w io.Writer, view tui.StatusView, records []domain.TransitionRecord) error {
	panel := tui.NewStatusPanel(view)
	if width := tui.TerminalWidth(); width > 0 && width < tui.NarrowTerminalWidth {
		if err := panel.RenderPlain(w); err != nil {
			return err
		}
	} else if err := panel.Render(w); err != nil {
		return err
	}

	if len(records) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := tui.NewTransitionTable(records).Render(w); err != nil {
			return fmt.Errorf("render transition table: %w", err)
		}
	}

	return tui.NewActionFooter(view).Render(w)
}
