package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// TTYOutput renders styled human-readable output for interactive terminals.
type TTYOutput struct {
	w      io.Writer
	styles *OutputStyles
	table  *TableStyles
}

// NewTTYOutput creates a TTY output writer. NO_COLOR and TERM=dumb are
// honored before any styled text is produced.
func NewTTYOutput(w io.Writer) *TTYOutput {
	CheckNoColor()
	return &TTYOutput{
		w:      w,
		styles: NewOutputStyles(),
		table:  NewTableStyles(),
	}
}

// Success prints a green checkmark message.
func (o *TTYOutput) Success(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Success.Render("✓ "+msg))
}

// Error prints a red error message. When the error maps to a known recovery
// suggestion, a dim "Try:" line follows it.
func (o *TTYOutput) Error(err error) {
	if err == nil {
		return
	}
	message, action := gaffererrors.Actionable(err)
	_, _ = fmt.Fprintln(o.w, o.styles.Error.Render("✗ "+message))
	if action != "" {
		_, _ = fmt.Fprintln(o.w, o.styles.Dim.Render("  ▸ Try: "+action))
	}
}

// Warning prints a yellow warning message.
func (o *TTYOutput) Warning(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Warning.Render("⚠ "+msg))
}

// Info prints a blue informational message.
func (o *TTYOutput) Info(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Info.Render("ℹ "+msg))
}

// Table prints tabular data with a bold header row. Column widths grow to
// fit content, cells are joined with two spaces.
func (o *TTYOutput) Table(headers []string, rows [][]string) {
	widths := columnWidths(headers, rows)

	headerParts := make([]string, len(headers))
	for i, h := range headers {
		headerParts[i] = o.table.Header.Render(padRight(h, widths[i]))
	}
	_, _ = fmt.Fprintln(o.w, strings.Join(headerParts, "  "))

	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			cells[i] = padRight(value, widths[i])
		}
		_, _ = fmt.Fprintln(o.w, strings.Join(cells, "  "))
	}
}

// JSON pretty-prints v for humans inspecting structured values on a TTY.
func (o *TTYOutput) JSON(v any) error {
	encoder := json.NewEncoder(o.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// columnWidths computes per-column widths as the max of header and cell
// visible widths.
func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := len(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}
