package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/gafferworks/gaffer/internal/domain"
)

// noStatusCell is rendered in the FROM column for the first transition out
// of no-state.
const noStatusCell = "-"

// maxEventWidth caps the EVENT column so one long event name cannot push
// the table past the terminal edge.
const maxEventWidth = 24

// transitionMinWidths defines the minimum width for each transition table
// column, keyed by column order: TIME, FROM, TO, EVENT, TOOK.
//
//nolint:gochecknoglobals // Intentional package-level constant for table minimum widths
var transitionMinWidths = []int{8, 10, 10, 12, 6}

// TransitionTableConfig holds configuration for the transition table.
type TransitionTableConfig struct {
	// TerminalWidth is the detected terminal width (or forced width for
	// testing).
	TerminalWidth int

	// Narrow indicates whether to drop the TOOK column (< 80 cols).
	Narrow bool
}

// TransitionTableOption is a functional option for TransitionTable
// configuration.
type TransitionTableOption func(*TransitionTable)

// WithTableWidth sets a specific terminal width (useful for testing).
func WithTableWidth(width int) TransitionTableOption {
	return func(t *TransitionTable) {
		t.config.TerminalWidth = width
		t.config.Narrow = width > 0 && width < NarrowTerminalWidth
	}
}

// TransitionTable renders workflow state transitions as a formatted table,
// newest rows last. Used by the status command's history view and by watch
// mode.
type TransitionTable struct {
	records []domain.TransitionRecord
	styles  *TableStyles
	config  TransitionTableConfig
}

// NewTransitionTable creates a table for the given transition records.
// Automatically detects terminal width and narrow mode.
func NewTransitionTable(records []domain.TransitionRecord, opts ...TransitionTableOption) *TransitionTable {
	t := &TransitionTable{
		records: records,
		styles:  NewTableStyles(),
		config: TransitionTableConfig{
			TerminalWidth: tableTerminalWidth(),
		},
	}

	t.config.Narrow = t.config.TerminalWidth > 0 && t.config.TerminalWidth < NarrowTerminalWidth

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// tableTerminalWidth returns the terminal width with a standard 80-column
// fallback when detection fails.
func tableTerminalWidth() int {
	if width := TerminalWidth(); width > 0 {
		return width
	}
	return 80
}

// IsNarrow returns true if the table is in narrow mode.
func (t *TransitionTable) IsNarrow() bool {
	return t.config.Narrow
}

// Headers returns the column headers. Narrow mode drops the TOOK column.
func (t *TransitionTable) Headers() []string {
	if t.config.Narrow {
		return []string{"TIME", "FROM", "TO", "EVENT"}
	}
	return []string{"TIME", "FROM", "TO", "EVENT", "TOOK"}
}

// Render writes the formatted table to the writer with a bold header and the
// TO column colored by state.
func (t *TransitionTable) Render(w io.Writer) error {
	headers := t.Headers()
	plainRows := t.plainRows()
	widths := t.columnWidthsFor(headers, plainRows)

	headerParts := make([]string, len(headers))
	for i, h := range headers {
		headerParts[i] = t.styles.Header.Render(padRight(h, widths[i]))
	}
	if _, err := fmt.Fprintln(w, strings.Join(headerParts, "  ")); err != nil {
		return err
	}

	for rowIdx, row := range plainRows {
		cells := make([]string, len(headers))
		for i := range headers {
			cells[i] = t.renderCell(i, row[i], t.records[rowIdx], widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}

	return nil
}

// ToTableData converts the table to Output.Table compatible format with
// plain (unstyled) cells.
func (t *TransitionTable) ToTableData() ([]string, [][]string) {
	return t.Headers(), t.plainRows()
}

// Rows returns a copy of the transition records.
func (t *TransitionTable) Rows() []domain.TransitionRecord {
	if t.records == nil {
		return nil
	}
	result := make([]domain.TransitionRecord, len(t.records))
	copy(result, t.records)
	return result
}

// renderCell styles one cell and pads it to the column width. The FROM
// column renders dim, the TO column in the state's semantic color.
func (t *TransitionTable) renderCell(col int, plain string, rec domain.TransitionRecord, width int) string {
	switch col {
	case 1:
		if plain == noStatusCell {
			return padRight(t.styles.Dim.Render(plain), width)
		}
		return padRight(plain, width)
	case 2:
		styled := StatusStyle(rec.ToStatus).Render(plain)
		return padRight(styled, width)
	default:
		return padRight(plain, width)
	}
}

// plainRows builds the unstyled cell matrix for all records.
func (t *TransitionTable) plainRows() [][]string {
	rows := make([][]string, len(t.records))
	for i, rec := range t.records {
		from := noStatusCell
		if rec.FromStatus != nil {
			from = rec.FromStatus.String()
		}

		row := []string{
			rec.Timestamp.Format("15:04:05"),
			from,
			rec.ToStatus.String(),
			truncate(rec.Event, maxEventWidth),
		}
		if !t.config.Narrow {
			row = append(row, FormatEventDuration(rec.Duration))
		}
		rows[i] = row
	}
	return rows
}

// columnWidthsFor computes content-driven column widths, floored by the
// per-column minimums.
func (t *TransitionTable) columnWidthsFor(headers []string, rows [][]string) []int {
	widths := columnWidths(headers, rows)
	for i := range widths {
		if i < len(transitionMinWidths) && widths[i] < transitionMinWidths[i] {
			widths[i] = transitionMinWidths[i]
		}
	}
	return widths
}
