// Package tui provides terminal output components for the Gaffer CLI.
//
// The package holds a centralized style system built on Lip Gloss. All colors
// use AdaptiveColor so output stays readable on light and dark terminals.
//
// # Semantic Colors
//
// Five semantic colors are exported for use across components:
//   - ColorPrimary (Blue): live workflow states, links, primary values
//   - ColorSuccess (Green): merged and approved states
//   - ColorWarning (Yellow): recovering states that may need a look
//   - ColorError (Red): errors and abandoned outcomes
//   - ColorMuted (Gray): idle states and secondary text
//
// # Status Display
//
// Workflow states render with triple redundancy: icon + color + text. See
// StatusIcon for the icon mapping and StatusStyle for colors.
//
// # NO_COLOR Support
//
// Call CheckNoColor at the start of commands that print styled text. Colors
// are disabled when NO_COLOR is set or TERM=dumb, per https://no-color.org/.
package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gafferworks/gaffer/internal/constants"
)

//nolint:gochecknoglobals // Intentional package-level constants for TUI styling API
var (
	// ColorPrimary is blue, used for live workflow states and primary values.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for merged and approved states.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for recovering states that may need a look.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for errors and abandoned outcomes.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for idle states and secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// LogoGradientColors defines the gradient for the ASCII logo, top to
	// bottom: bright cyan fading into deep blue.
	LogoGradientColors = []lipgloss.AdaptiveColor{
		{Light: "#00D7FF", Dark: "#00FFFF"},
		{Light: "#00AFFF", Dark: "#00D7FF"},
		{Light: "#0087FF", Dark: "#00AFFF"},
		{Light: "#005FD7", Dark: "#0087FF"},
		{Light: "#005FAF", Dark: "#005FD7"},
		{Light: "#00438B", Dark: "#005FAF"},
	}

	// StyleBold applies bold formatting to text.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies dim/faint formatting to text.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// StatusColors returns the semantic color for every workflow state.
func StatusColors() map[constants.WorkflowStatus]lipgloss.AdaptiveColor {
	return map[constants.WorkflowStatus]lipgloss.AdaptiveColor{
		// Idle states.
		constants.StatusUnassigned: ColorMuted,
		constants.StatusNone:       ColorMuted,

		// Live states.
		constants.StatusAssigned:       ColorPrimary,
		constants.StatusInProgress:     ColorPrimary,
		constants.StatusReadyForReview: ColorPrimary,
		constants.StatusUnderReview:    ColorPrimary,

		// Recovering states.
		constants.StatusBlocked:          ColorWarning,
		constants.StatusChangesRequested: ColorWarning,
		constants.StatusMergeConflict:    ColorWarning,
		constants.StatusCIFailure:        ColorWarning,

		// Outcomes.
		constants.StatusApproved:  ColorSuccess,
		constants.StatusMerged:    ColorSuccess,
		constants.StatusAbandoned: ColorError,
	}
}

// StatusStyle returns a style that renders text in the state's semantic color.
func StatusStyle(status constants.WorkflowStatus) lipgloss.Style {
	if color, ok := StatusColors()[status]; ok {
		return lipgloss.NewStyle().Foreground(color)
	}
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// StatusIcon returns the icon for a workflow state. Icons pair with color and
// text so state is readable without color support.
func StatusIcon(status constants.WorkflowStatus) string {
	icons := map[constants.WorkflowStatus]string{
		constants.StatusUnassigned:       "○", // Waiting for an agent
		constants.StatusAssigned:         "○", // Agent holds the issue, not started
		constants.StatusInProgress:       "●", // Actively working
		constants.StatusBlocked:          "⚠", // Recovery engaged
		constants.StatusReadyForReview:   "⟳", // Submitting the pull request
		constants.StatusUnderReview:      "⟳", // Waiting on reviewers
		constants.StatusChangesRequested: "⚠", // Rework in progress
		constants.StatusApproved:         "✓", // Eligible to merge
		constants.StatusMergeConflict:    "⚠", // Conflict resolution in progress
		constants.StatusCIFailure:        "⚠", // CI fix in progress
		constants.StatusMerged:           "✓", // Landed
		constants.StatusAbandoned:        "✗", // Gave up
		constants.StatusNone:             "◌", // No workflow
	}
	if icon, ok := icons[status]; ok {
		return icon
	}
	return "?"
}

// FormatStatusWithIcon renders a state as "icon label" for triple redundancy.
// Color is applied separately via StatusStyle.
func FormatStatusWithIcon(status constants.WorkflowStatus) string {
	return StatusIcon(status) + " " + status.String()
}

// RenderStatus renders a state with icon, label, and semantic color applied.
func RenderStatus(status constants.WorkflowStatus) string {
	return StatusStyle(status).Render(FormatStatusWithIcon(status))
}

// StatusTitle renders a state as a human-readable title, "in_progress"
// becoming "In Progress". Tables and the audit trail keep the raw form.
func StatusTitle(status constants.WorkflowStatus) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(status.String(), "_", " "))
}

// IsAttentionStatus reports whether the state means recovery is working on a
// stoppage. These states are highlighted in watch mode and can ring the bell.
func IsAttentionStatus(status constants.WorkflowStatus) bool {
	switch status {
	case constants.StatusBlocked, constants.StatusMergeConflict, constants.StatusCIFailure:
		return true
	default:
		return false
	}
}

// IsConcludedStatus reports whether the state is a final outcome.
func IsConcludedStatus(status constants.WorkflowStatus) bool {
	return status == constants.StatusMerged || status == constants.StatusAbandoned
}

// SuggestedAction returns the CLI command an operator can run for the given
// state. Empty when recovery handles the state without help.
func SuggestedAction(status constants.WorkflowStatus) string {
	if status == constants.StatusBlocked {
		return "gaffer abandon"
	}
	return ""
}

// TableStyles holds lipgloss styles for table rendering.
type TableStyles struct {
	Header       lipgloss.Style
	Cell         lipgloss.Style
	Dim          lipgloss.Style
	StatusColors map[constants.WorkflowStatus]lipgloss.AdaptiveColor
}

// NewTableStyles creates styles for table rendering.
func NewTableStyles() *TableStyles {
	return &TableStyles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		Cell: lipgloss.NewStyle(),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		StatusColors: StatusColors(),
	}
}

// OutputStyles holds common output styles.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
}

// NewOutputStyles creates common output styles using AdaptiveColor for
// light/dark terminal support.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(ColorWarning),
		Info: lipgloss.NewStyle().
			Foreground(ColorPrimary),
		Dim: lipgloss.NewStyle().
			Foreground(ColorMuted),
	}
}

// CheckNoColor respects the NO_COLOR environment variable. Call this at the
// start of commands that output styled text.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns true if the terminal supports colors. Returns false
// if NO_COLOR is set (any value, including empty) or TERM=dumb, following
// the NO_COLOR standard: https://no-color.org/
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// padRight pads s with spaces up to the target visible width. Styled strings
// are measured by visible width so ANSI sequences do not skew padding.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncate shortens plain text to at most width display cells, ending
// with an ellipsis when it had to cut. Not safe for styled strings.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// DefaultBoxWidth is the default width for TUI boxes.
const DefaultBoxWidth = 60

// BoxBorder defines the characters used for box borders.
type BoxBorder struct {
	TopLeft     string
	TopRight    string
	BottomLeft  string
	BottomRight string
	Top         string
	Bottom      string
	Left        string
	Right       string
	MiddleLeft  string
	MiddleRight string
}

// DefaultBorder uses single-line box drawing characters with square corners.
//
//nolint:gochecknoglobals // Intentional package-level constant for TUI border styling
var DefaultBorder = BoxBorder{
	TopLeft:     "┌",
	TopRight:    "┐",
	BottomLeft:  "└",
	BottomRight: "┘",
	Top:         "─",
	Bottom:      "─",
	Left:        "│",
	Right:       "│",
	MiddleLeft:  "├",
	MiddleRight: "┤",
}

// BoxStyle holds configuration for rendering bordered boxes.
type BoxStyle struct {
	Width  int
	Border *BoxBorder
}

// NewBoxStyle creates a BoxStyle with the default square border and width.
func NewBoxStyle() *BoxStyle {
	border := DefaultBorder
	return &BoxStyle{
		Width:  DefaultBoxWidth,
		Border: &border,
	}
}

// WithWidth returns a new BoxStyle with the specified width.
func (b *BoxStyle) WithWidth(width int) *BoxStyle {
	return &BoxStyle{
		Width:  width,
		Border: b.Border,
	}
}

// Render renders a box with the given title and content. Content may span
// multiple lines.
func (b *BoxStyle) Render(title, content string) string {
	innerWidth := b.Width - 2

	topLine := b.Border.TopLeft + strings.Repeat(b.Border.Top, innerWidth) + b.Border.TopRight
	titleLine := b.Border.Left + " " + padRight(title, innerWidth-1) + b.Border.Right
	dividerLine := b.Border.MiddleLeft + strings.Repeat(b.Border.Top, innerWidth) + b.Border.MiddleRight

	splitLines := strings.Split(content, "\n")
	contentLines := make([]string, 0, len(splitLines))
	for _, line := range splitLines {
		contentLines = append(contentLines, b.Border.Left+" "+padRight(line, innerWidth-1)+b.Border.Right)
	}

	bottomLine := b.Border.BottomLeft + strings.Repeat(b.Border.Bottom, innerWidth) + b.Border.BottomRight

	result := topLine + "\n" + titleLine + "\n" + dividerLine + "\n"
	result += strings.Join(contentLines, "\n")
	result += "\n" + bottomLine

	return result
}

// NarrowTerminalWidth is the threshold for narrow terminal mode. Terminals
// narrower than this get abbreviated formatting.
const NarrowTerminalWidth = 80

// IsNarrowTerminal returns true if the terminal width is below the narrow
// threshold. Width 0 means detection failed and is treated as narrow.
func IsNarrowTerminal() bool {
	width := TerminalWidth()
	if width == 0 {
		return true
	}
	return width < NarrowTerminalWidth
}
