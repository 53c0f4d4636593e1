package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressBar wraps the charmbracelet/bubbles progress bar with Gaffer
// styling. Supports adaptive width and NO_COLOR compatibility.
type ProgressBar struct {
	bar   progress.Model
	width int
}

// NewProgressBar creates a new progress bar. Uses the ColorPrimary gradient
// for styled rendering, solid fill for NO_COLOR mode.
func NewProgressBar(width int) *ProgressBar {
	var bar progress.Model

	if HasColorSupport() {
		bar = progress.New(
			progress.WithWidth(width),
			progress.WithScaledGradient("#0087AF", "#00D7FF"),
		)
	} else {
		bar = progress.New(
			progress.WithWidth(width),
			progress.WithSolidFill("#808080"),
		)
	}

	return &ProgressBar{
		bar:   bar,
		width: width,
	}
}

// Render returns the progress bar as a string for the given percentage
// (0.0-1.0). Uses ViewAs for static rendering, no animation.
func (pb *ProgressBar) Render(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	return pb.bar.ViewAs(percent)
}

// Width returns the current width of the progress bar.
func (pb *ProgressBar) Width() int {
	return pb.width
}

// SetWidth updates the progress bar width.
func (pb *ProgressBar) SetWidth(w int) {
	pb.width = w
	pb.bar.Width = w
}

// WorkWindowPercent returns how much of the work window has elapsed as a
// fraction between 0 and 1. Returns 1 when the window is exhausted.
func WorkWindowPercent(view StatusView) float64 {
	total := view.Uptime + view.TimeRemaining
	if total <= 0 {
		return 1
	}
	percent := float64(view.Uptime) / float64(total)
	if percent > 1 {
		return 1
	}
	return percent
}

// RenderWorkWindow renders the work window consumption as a one-line
// progress bar, e.g. "[████░░░░] 38% · 3h 2m elapsed · 4h 58m left".
// Returns an empty string for concluded runs, where the window no longer
// applies.
func RenderWorkWindow(view StatusView, barWidth int) string {
	if IsConcludedStatus(view.Status) {
		return ""
	}

	percent := WorkWindowPercent(view)
	bar := NewProgressBar(barWidth)

	line := fmt.Sprintf("%s %3d%% · %s elapsed", bar.Render(percent), int(percent*100), FormatDuration(view.Uptime))
	if view.TimeRemaining > 0 {
		line += fmt.Sprintf(" · %s left", FormatDuration(view.TimeRemaining))
	} else {
		line += " · window exhausted"
	}
	return line
}
