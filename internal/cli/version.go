package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gafferworks/gaffer/internal/tui"
)

// AddVersionCommand adds the version command to the root command.
func AddVersionCommand(root *cobra.Command, info BuildInfo) {
	root.AddCommand(newVersionCmd(info))
}

// versionPayload is the JSON document of the version command.
type versionPayload struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// newVersionCmd creates the version command.
func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd.Context(), cmd, cmd.OutOrStdout(), info)
		},
	}
}

// runVersion executes the version command.
func runVersion(ctx context.Context, cmd *cobra.Command, w io.Writer, info BuildInfo) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outputFormat := cmd.Flag("output").Value.String()

	if outputFormat == OutputJSON {
		out := tui.NewOutput(w, outputFormat)
		version, commit, date := buildInfoOrDefaults(info)
		return out.JSON(versionPayload{Version: version, Commit: commit, Date: date})
	}

	if _, err := fmt.Fprintf(w, "gaffer %s\n", formatVersion(info)); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	return nil
}
