package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gafferworks/gaffer/internal/constants"
)

// StatusView is the display model for a single workflow run. The CLI builds
// it from a live coordinator report or from checkpoint and audit data when
// observing a run from another process.
type StatusView struct {
	// RunID identifies the run.
	RunID string

	// Status is the workflow state being displayed.
	Status constants.WorkflowStatus

	// AgentID is the agent driving the run, empty before assignment.
	AgentID string

	// IssueNumber is the issue under work, zero when none.
	IssueNumber int

	// Uptime is how long the workflow has been running.
	Uptime time.Duration

	// TimeRemaining is what is left of the work window.
	TimeRemaining time.Duration

	// TransitionCount is the number of state transitions so far.
	TransitionCount int

	// LastTransitionAt is when the machine last moved, nil before the
	// first transition.
	LastTransitionAt *time.Time

	// CanContinue reports whether autonomous operation can proceed.
	CanContinue bool

	// RecoveryAttempts is the total number of recovery attempts.
	RecoveryAttempts int

	// RecoveryRecovered is the number of recovery attempts that succeeded.
	RecoveryRecovered int
}

// statusPanelLabelWidth aligns the value column across panel lines.
const statusPanelLabelWidth = 12

// StatusPanel renders a workflow run as a bordered summary box.
type StatusPanel struct {
	view   StatusView
	styles *OutputStyles
	width  int
}

// StatusPanelOption is a functional option for StatusPanel configuration.
type StatusPanelOption func(*StatusPanel)

// WithPanelWidth sets a specific panel width (useful for testing and for
// narrow terminals).
func WithPanelWidth(width int) StatusPanelOption {
	return func(p *StatusPanel) {
		p.width = width
	}
}

// NewStatusPanel creates a panel for the given view.
func NewStatusPanel(view StatusView, opts ...StatusPanelOption) *StatusPanel {
	p := &StatusPanel{
		view:   view,
		styles: NewOutputStyles(),
		width:  DefaultBoxWidth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Title returns the panel title line.
func (p *StatusPanel) Title() string {
	title := "WORKFLOW " + p.view.RunID
	if p.view.IssueNumber > 0 {
		title += fmt.Sprintf(" · issue #%d", p.view.IssueNumber)
	}
	return title
}

// Lines returns the panel content lines without the border, one per field.
func (p *StatusPanel) Lines() []string {
	lines := []string{
		p.fieldLine("Status", RenderStatus(p.view.Status)),
	}

	if p.view.AgentID != "" {
		lines = append(lines, p.fieldLine("Agent", p.view.AgentID))
	}

	lines = append(lines, p.fieldLine("Elapsed", FormatDuration(p.view.Uptime)))

	if !IsConcludedStatus(p.view.Status) {
		lines = append(lines, p.fieldLine("Remaining", p.formatRemaining()))
	}

	lines = append(lines, p.fieldLine("Transitions", p.formatTransitions()))
	lines = append(lines, p.fieldLine("Recovery", p.formatRecovery()))

	if !p.view.CanContinue && !IsConcludedStatus(p.view.Status) {
		lines = append(lines, p.styles.Warning.Render("⚠ autonomous operation stopped"))
	}

	return lines
}

// Render writes the bordered panel to the writer.
func (p *StatusPanel) Render(w io.Writer) error {
	box := NewBoxStyle().WithWidth(p.width)
	if _, err := fmt.Fprintln(w, box.Render(p.Title(), strings.Join(p.Lines(), "\n"))); err != nil {
		return fmt.Errorf("write status panel: %w", err)
	}
	return nil
}

// RenderPlain writes the panel content as plain label/value lines without a
// border. Used for narrow terminals.
func (p *StatusPanel) RenderPlain(w io.Writer) error {
	if _, err := fmt.Fprintln(w, p.Title()); err != nil {
		return fmt.Errorf("write status panel: %w", err)
	}
	for _, line := range p.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write status panel: %w", err)
		}
	}
	return nil
}

// fieldLine renders one aligned "label value" line.
func (p *StatusPanel) fieldLine(label, value string) string {
	return padRight(label, statusPanelLabelWidth) + " " + value
}

// formatRemaining renders the work window remainder, flagging exhaustion.
func (p *StatusPanel) formatRemaining() string {
	if p.view.TimeRemaining <= 0 {
		return p.styles.Warning.Render("work window exhausted")
	}
	return FormatDuration(p.view.TimeRemaining)
}

// formatTransitions renders the transition count with the relative time of
// the last move when known.
func (p *StatusPanel) formatTransitions() string {
	s := fmt.Sprintf("%d", p.view.TransitionCount)
	if p.view.LastTransitionAt != nil {
		s += " · last " + RelativeTime(*p.view.LastTransitionAt)
	}
	return s
}

// formatRecovery summarizes recovery engine activity.
func (p *StatusPanel) formatRecovery() string {
	if p.view.RecoveryAttempts == 0 {
		return "none"
	}
	return fmt.Sprintf("%d attempts · %d recovered", p.view.RecoveryAttempts, p.view.RecoveryRecovered)
}
