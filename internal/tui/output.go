package tui

import "io"

// Output format names accepted by the CLI --output flag.
const (
	// FormatText renders styled human-readable output.
	FormatText = "text"

	// FormatJSON renders machine-readable JSON lines.
	FormatJSON = "json"
)

// Output abstracts command output so every command renders through one
// surface for both human and machine consumers.
type Output interface {
	// Success prints a success message.
	Success(msg string)

	// Error prints an error, including a recovery suggestion when one is
	// known for the error.
	Error(err error)

	// Warning prints a warning message.
	Warning(msg string)

	// Info prints an informational message.
	Info(msg string)

	// Table prints tabular data with the given headers.
	Table(headers []string, rows [][]string)

	// JSON prints v as JSON. TTY output pretty-prints it.
	JSON(v any) error
}

// NewOutput creates an Output for the requested format. Any format other
// than FormatJSON gets the styled TTY renderer.
func NewOutput(w io.Writer, format string) Output {
	if format == FormatJSON {
		return NewJSONOutput(w)
	}
	return NewTTYOutput(w)
}
