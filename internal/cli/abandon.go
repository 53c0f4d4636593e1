package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gafferworks/gaffer/internal/config"
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/coordinator"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
	"github.com/gafferworks/gaffer/internal/tui"
)

// AddAbandonCommand adds the abandon command to the root command.
func AddAbandonCommand(root *cobra.Command) {
	root.AddCommand(newAbandonCmd())
}

// abandonOptions contains all options for the abandon command.
type abandonOptions struct {
	reason string
	detail string
}

// operatorAbandonReasons are the reasons an operator may request. Timeout
// and unresolvable-blocker abandonment belong to the scheduler itself.
//
//nolint:gochecknoglobals // Intentional package-level constant for flag validation
var operatorAbandonReasons = []constants.AbandonKind{
	constants.AbandonRequirementsChanged,
	constants.AbandonDependencyIssues,
	constants.AbandonCriticalFailure,
}

// newAbandonCmd creates the abandon command.
func newAbandonCmd() *cobra.Command {
	var opts abandonOptions

	cmd := &cobra.Command{
		Use:   "abandon",
		Short: "Ask the running workflow to abandon its work",
		Long: `Record an abandon request for the workflow run. The scheduler picks
the request up on its next loop pass, closes out the working branch,
and reports the issue back to the queue.

The request is a file handoff, so it works across processes: run
'gaffer abandon' in any terminal while 'gaffer run' is active.

Examples:
  gaffer abandon
  gaffer abandon --reason dependency_issues
  gaffer abandon --reason critical_failure --detail "wrong design direction"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAbandon(cmd.Context(), cmd, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.reason, "reason", string(constants.AbandonRequirementsChanged),
		"abandon reason (requirements_changed|dependency_issues|critical_failure)")
	cmd.Flags().StringVar(&opts.detail, "detail", "",
		"free-form context recorded with the request")

	return cmd
}

// abandonRequestDoc mirrors the JSON document the scheduler consumes from
// the request file.
type abandonRequestDoc struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// abandonResult is the JSON document of the abandon command.
type abandonResult struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
	Path   string `json:"path"`
}

// runAbandon executes the abandon command.
func runAbandon(ctx context.Context, cmd *cobra.Command, w io.Writer, opts abandonOptions) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outputFormat := cmd.Flag("output").Value.String()

	tui.CheckNoColor()
	out := tui.NewOutput(w, outputFormat)

	if !validAbandonReason(opts.reason) {
		err := fmt.Errorf("%w: unknown abandon reason %q (want one of %s)",
			gaffererrors.ErrInvalidArgument, opts.reason, reasonList())
		out.Error(err)
		return err
	}

	path, err := config.AbandonRequestPath()
	if err != nil {
		out.Error(err)
		return err
	}

	if err := writeAbandonRequest(path, opts); err != nil {
		out.Error(err)
		return err
	}

	warnIfNoLiveRun(out, outputFormat)

	if outputFormat == OutputJSON {
		return out.JSON(abandonResult{Reason: opts.reason, Detail: opts.detail, Path: path})
	}
	out.Success(fmt.Sprintf("Abandon request recorded (%s). The scheduler honors it on its next pass.", opts.reason))
	return nil
}

// validAbandonReason reports whether the flag names an operator reason.
func validAbandonReason(reason string) bool {
	for _, kind := range operatorAbandonReasons {
		if constants.AbandonKind(reason) == kind {
			return true
		}
	}
	return false
}

// reasonList renders the accepted reasons for the error message.
func reasonList() string {
	s := ""
	for i, kind := range operatorAbandonReasons {
		if i > 0 {
			s += "|"
		}
		s += string(kind)
	}
	return s
}

// writeAbandonRequest persists the request atomically so the scheduler
// never reads a torn file.
func writeAbandonRequest(path string, opts abandonOptions) error {
	data, err := json.MarshalIndent(abandonRequestDoc{Reason: opts.reason, Detail: opts.detail}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode abandon request: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".abandon-*.json")
	if err != nil {
		return fmt.Errorf("stage abandon request: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write abandon request: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close abandon request: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publish abandon request: %w", err)
	}
	return nil
}

// warnIfNoLiveRun adds context when the checkpoint shows nothing to
// abandon. The request file stays valid either way: a stale request is
// consumed and discarded harmlessly by the next run's first loop pass.
func warnIfNoLiveRun(out tui.Output, outputFormat string) {
	if outputFormat == OutputJSON {
		return
	}

	checkpointPath, err := config.CheckpointPath()
	if err != nil {
		return
	}
	cp, err := coordinator.LoadCheckpoint(checkpointPath)
	if stderrors.Is(err, fs.ErrNotExist) {
		out.Warning("No run checkpoint found; the request applies to the next run.")
		return
	}
	if err == nil && tui.IsConcludedStatus(cp.Status) {
		out.Warning(fmt.Sprintf("Last run already concluded (%s); the request applies to the next run.",
			tui.StatusTitle(cp.Status)))
	}
}
