package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
)

// TransitionFeedConfig configures the transition feed display.
type TransitionFeedConfig struct {
	// MaxLines is the maximum number of transitions to display.
	MaxLines int

	// Width is the box width.
	Width int

	// Title is the box title.
	Title string

	// ShowTimestamps shows the wall-clock time of each transition.
	ShowTimestamps bool
}

// DefaultTransitionFeedConfig returns the default configuration.
func DefaultTransitionFeedConfig() TransitionFeedConfig {
	return TransitionFeedConfig{
		MaxLines:       5,
		Width:          60,
		Title:          "Recent Transitions",
		ShowTimestamps: true,
	}
}

// TransitionFeed displays a scrolling list of the latest workflow state
// transitions. It is thread-safe and can receive updates from concurrent
// goroutines while watch mode renders.
type TransitionFeed struct {
	config  TransitionFeedConfig
	records []domain.TransitionRecord
	mu      sync.Mutex
	styles  *OutputStyles
}

// NewTransitionFeed creates a new TransitionFeed with the given config.
func NewTransitionFeed(config TransitionFeedConfig) *TransitionFeed {
	if config.MaxLines <= 0 {
		config.MaxLines = 5
	}
	if config.Width <= 0 {
		config.Width = 60
	}
	if config.Title == "" {
		config.Title = "Recent Transitions"
	}

	return &TransitionFeed{
		config:  config,
		records: make([]domain.TransitionRecord, 0, config.MaxLines),
		styles:  NewOutputStyles(),
	}
}

// Push appends a transition to the feed, dropping the oldest entries beyond
// MaxLines. Thread-safe for concurrent updates.
func (f *TransitionFeed) Push(rec domain.TransitionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.records = append(f.records, rec)
	if len(f.records) > f.config.MaxLines {
		f.records = f.records[len(f.records)-f.config.MaxLines:]
	}
}

// Replace swaps the feed content for the given records, keeping the newest
// MaxLines. Used when watch mode polls a fresh tail from the audit trail.
func (f *TransitionFeed) Replace(records []domain.TransitionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(records) > f.config.MaxLines {
		records = records[len(records)-f.config.MaxLines:]
	}
	f.records = append(f.records[:0], records...)
}

// Len returns the current number of transitions in the feed.
func (f *TransitionFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Render returns the formatted feed box as a string. Returns an empty
// string when the feed has no transitions yet.
func (f *TransitionFeed) Render() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.records) == 0 {
		return ""
	}

	return f.renderBox()
}

// renderBox renders the feed as a bordered box with the title inlined in
// the top border.
func (f *TransitionFeed) renderBox() string {
	innerWidth := f.config.Width - 4

	var sb strings.Builder

	titleStyle := lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	title := titleStyle.Render(f.config.Title)
	fmt.Fprintf(&sb, "┌─ %s %s┐\n",
		title,
		strings.Repeat("─", max(0, innerWidth-len(f.config.Title)-3)))

	for i, rec := range f.records {
		line := f.formatTransition(rec, innerWidth-2)

		// Newest entry gets the continuation icon.
		icon := "●"
		if i == len(f.records)-1 {
			icon = "⋮"
		}
		coloredIcon := f.iconStyle(rec.ToStatus).Render(icon)

		fmt.Fprintf(&sb, "│ %s %s │\n", coloredIcon, padRight(line, innerWidth-2))
	}

	for i := len(f.records); i < f.config.MaxLines; i++ {
		fmt.Fprintf(&sb, "│ %s │\n", strings.Repeat(" ", innerWidth))
	}

	fmt.Fprintf(&sb, "└%s┘\n", strings.Repeat("─", f.config.Width-2))

	return sb.String()
}

// formatTransition formats a single transition for display, e.g.
// "14:03:22 in_progress → ready_for_review (complete_work)".
func (f *TransitionFeed) formatTransition(rec domain.TransitionRecord, maxWidth int) string {
	var parts []string

	if f.config.ShowTimestamps {
		parts = append(parts, f.styles.Dim.Render(rec.Timestamp.Format("15:04:05")))
	}

	move := rec.ToStatus.String()
	if rec.FromStatus != nil {
		move = rec.FromStatus.String() + " → " + move
	}
	parts = append(parts, move, "("+rec.Event+")")

	result := strings.Join(parts, " ")
	if lipgloss.Width(result) > maxWidth {
		result = truncate(strings.Join(parts[len(parts)-2:], " "), maxWidth)
	}

	return result
}

// iconStyle returns the icon style for the state a transition arrived at.
func (f *TransitionFeed) iconStyle(status constants.WorkflowStatus) lipgloss.Style {
	return StatusStyle(status)
}
