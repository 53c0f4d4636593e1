package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
	"github.com/gafferworks/gaffer/internal/tui"
)

// watchMinInterval floors the refresh rate; faster polling just burns
// cycles re-reading the same checkpoint.
const watchMinInterval = 500 * time.Millisecond

// AddWatchCommand adds the watch command to the root command.
func AddWatchCommand(root *cobra.Command) {
	root.AddCommand(newWatchCmd())
}

// watchOptions contains all options for the watch command.
type watchOptions struct {
	interval  time.Duration
	quiet     bool
	noBell    bool
	feedLines int
	workDir   string
}

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	var opts watchOptions
	defaults := tui.DefaultWatchConfig()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the workflow run live",
		Long: `Watch the workflow run in a live full-screen view: the status panel,
the work window bar, and a feed of recent transitions, refreshed on an
interval. The terminal bell rings when the run newly needs attention.

Watch observes the checkpoint and audit files, so it runs alongside
'gaffer run' in another terminal. Press 'q' to quit.

Examples:
  gaffer watch                 # refresh every 2s
  gaffer watch --interval 5s   # slower refresh
  gaffer watch --quiet --no-bell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.interval, "interval", defaults.Interval,
		"refresh interval")
	cmd.Flags().BoolVar(&opts.quiet, "quiet-view", false,
		"hide the header and work window bar")
	cmd.Flags().BoolVar(&opts.noBell, "no-bell", false,
		"disable the attention bell")
	cmd.Flags().IntVar(&opts.feedLines, "feed-lines", defaults.FeedLines,
		"transitions shown in the feed (0 hides it)")
	cmd.Flags().StringVarP(&opts.workDir, "workdir", "C", "",
		"repository directory whose project config applies")

	return cmd
}

// runWatch executes the watch command.
func runWatch(ctx context.Context, cmd *cobra.Command, w io.Writer, opts watchOptions) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outputFormat := cmd.Flag("output").Value.String()
	if outputFormat == OutputJSON {
		return fmt.Errorf("%w: use 'gaffer status --output json' for polling", gaffererrors.ErrWatchModeJSONUnsupported)
	}
	if opts.interval < watchMinInterval {
		return fmt.Errorf("%w: %s is below the %s minimum",
			gaffererrors.ErrWatchIntervalTooShort, opts.interval, watchMinInterval)
	}

	tui.CheckNoColor()

	src, err := newRunObserver(observerConfig(ctx, opts.workDir))
	if err != nil {
		return err
	}

	cfg := tui.WatchConfig{
		Interval:    opts.interval,
		BellEnabled: !opts.noBell,
		Quiet:       opts.quiet,
		ShowFeed:    opts.feedLines > 0,
		FeedLines:   opts.feedLines,
	}

	model := tui.NewWatchModel(ctx, src, src, cfg)
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(w))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch mode failed: %w", err)
	}
	return nil
}
