package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
)

// WatchConfig holds configuration for watch mode.
type WatchConfig struct {
	// Interval is the refresh interval for watch mode.
	Interval time.Duration
	// BellEnabled controls whether terminal bell notifications are enabled.
	BellEnabled bool
	// Quiet suppresses the header and the work window bar.
	Quiet bool
	// ShowFeed displays the recent transitions box below the status panel.
	ShowFeed bool
	// FeedLines is the number of transitions shown in the feed.
	FeedLines int
}

// DefaultWatchConfig returns the default watch configuration.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Interval:    2 * time.Second,
		BellEnabled: true,
		Quiet:       false,
		ShowFeed:    true,
		FeedLines:   5,
	}
}

// StatusSource provides the current view of a run. The CLI implements it
// over checkpoint and audit data so watch works from a separate process.
type StatusSource interface {
	StatusView(ctx context.Context) (StatusView, error)
}

// TransitionSource provides the newest transitions of a run.
type TransitionSource interface {
	RecentTransitions(ctx context.Context, limit int) ([]domain.TransitionRecord, error)
}

// WatchModel is the Bubble Tea model for watch mode. It implements the
// tea.Model interface (Init, Update, View).
type WatchModel struct {
	// Current run view and whether a first refresh has landed.
	view   StatusView
	loaded bool
	// Feed of recent transitions.
	feed *TransitionFeed
	// Previous status for attention-transition detection.
	prevStatus constants.WorkflowStatus
	prevSet    bool
	// Last refresh timestamp.
	lastUpdate time.Time
	// Configuration.
	config WatchConfig
	// Terminal dimensions.
	width, height int
	// Exit flag.
	quitting bool
	// Error from last refresh.
	err error
	// Spinner shown until the first refresh lands.
	spin spinner.Model
	// Dependencies.
	statusSrc     StatusSource
	transitionSrc TransitionSource
	// baseCtx is stored for use in async Bubble Tea commands. Storing
	// context in structs is generally discouraged, but Bubble Tea's async
	// command model requires it for proper context propagation.
	baseCtx context.Context //nolint:containedctx // Required for Bubble Tea async commands
}

// TickMsg signals time for a refresh.
type TickMsg time.Time

// RefreshMsg carries new data from a refresh operation.
type RefreshMsg struct {
	View        StatusView
	Transitions []domain.TransitionRecord
	Err         error
}

// BellMsg signals that a bell was emitted.
type BellMsg struct{}

// NewWatchModel creates a new WatchModel with the given dependencies. The
// transition source may be nil, which hides the feed. The context is stored
// for use in async Bubble Tea commands.
func NewWatchModel(ctx context.Context, statusSrc StatusSource, transitionSrc TransitionSource, cfg WatchConfig) *WatchModel {
	if cfg.FeedLines <= 0 {
		cfg.FeedLines = DefaultWatchConfig().FeedLines
	}

	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorPrimary)),
	)

	feedCfg := DefaultTransitionFeedConfig()
	feedCfg.MaxLines = cfg.FeedLines

	return &WatchModel{
		feed:          NewTransitionFeed(feedCfg),
		config:        cfg,
		width:         80,
		height:        24,
		spin:          spin,
		statusSrc:     statusSrc,
		transitionSrc: transitionSrc,
		baseCtx:       ctx,
	}
}

// Init returns the initial command to run when the program starts. It
// performs an initial data load and starts the refresh timer and spinner.
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(
		m.refreshData(),
		m.tick(),
		m.spin.Tick,
	)
}

// Update handles messages and returns the updated model and any commands.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		return m, m.refreshData()

	case RefreshMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, m.tick()
		}
		m.view = msg.View
		m.loaded = true
		m.lastUpdate = time.Now()
		m.err = nil
		if msg.Transitions != nil {
			m.feed.Replace(msg.Transitions)
		}

		bellCmd := m.checkForBell()
		return m, tea.Batch(m.tick(), bellCmd)

	case spinner.TickMsg:
		// The spinner only animates until the first refresh lands.
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case BellMsg:
		// Bell is emitted in the command, nothing to do here.
		return m, nil
	}

	return m, nil
}

// View renders the current state to a string.
func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	if !m.config.Quiet {
		b.WriteString(RenderHeader(m.width))
		b.WriteString("\n\n")
	}

	if m.err != nil {
		b.WriteString(fmt.Sprintf("Error: %v\n", m.err))
	}

	if !m.loaded {
		b.WriteString(m.spin.View() + "waiting for run data\n")
	} else {
		m.renderStatusContent(&b)
	}

	if !m.lastUpdate.IsZero() {
		b.WriteString(fmt.Sprintf("\nLast updated: %s", m.lastUpdate.Format("15:04:05")))
	}
	b.WriteString("\nPress 'q' to quit")

	return b.String()
}

// CurrentView returns the latest status view (useful for testing).
func (m *WatchModel) CurrentView() StatusView {
	return m.view
}

// Loaded returns true once a first refresh has landed.
func (m *WatchModel) Loaded() bool {
	return m.loaded
}

// LastUpdate returns the last update timestamp.
func (m *WatchModel) LastUpdate() time.Time {
	return m.lastUpdate
}

// IsQuitting returns true if the model is in quitting state.
func (m *WatchModel) IsQuitting() bool {
	return m.quitting
}

// Error returns the last error from a refresh operation.
func (m *WatchModel) Error() error {
	return m.err
}

// tick returns a command that sends a TickMsg after the configured interval.
func (m *WatchModel) tick() tea.Cmd {
	return tea.Tick(m.config.Interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// refreshData loads a fresh view from the status and transition sources.
func (m *WatchModel) refreshData() tea.Cmd {
	return func() tea.Msg {
		// Use stored context for proper cancellation propagation.
		ctx := m.baseCtx
		if ctx == nil {
			ctx = context.Background()
		}

		view, err := m.statusSrc.StatusView(ctx)
		if err != nil {
			return RefreshMsg{Err: fmt.Errorf("failed to load run status: %w", err)}
		}

		msg := RefreshMsg{View: view}
		if m.transitionSrc != nil {
			// Feed errors are not fatal, the status panel still renders.
			if records, recErr := m.transitionSrc.RecentTransitions(ctx, m.config.FeedLines); recErr == nil {
				msg.Transitions = records
			}
		}
		return msg
	}
}

// renderStatusContent renders the status panel, work window bar, feed, and
// action footer.
func (m *WatchModel) renderStatusContent(b *strings.Builder) {
	panel := NewStatusPanel(m.view, WithPanelWidth(m.panelWidth()))
	if m.width < NarrowTerminalWidth {
		_ = panel.RenderPlain(b)
	} else {
		_ = panel.Render(b)
	}

	if !m.config.Quiet {
		if bar := RenderWorkWindow(m.view, m.barWidth()); bar != "" {
			b.WriteString("\n")
			b.WriteString(bar)
			b.WriteString("\n")
		}
	}

	if m.config.ShowFeed {
		if feed := m.feed.Render(); feed != "" {
			b.WriteString("\n")
			b.WriteString(feed)
		}
	}

	// Action indicators render even in quiet mode since these are
	// copy-paste commands the operator may need.
	footer := NewActionFooter(m.view)
	if footer.HasItems() {
		_ = footer.Render(b)
	}
}

// panelWidth fits the status panel to the terminal, capped at the default
// box width.
func (m *WatchModel) panelWidth() int {
	if m.width > 0 && m.width < DefaultBoxWidth {
		return m.width
	}
	return DefaultBoxWidth
}

// barWidth fits the work window bar under the panel.
func (m *WatchModel) barWidth() int {
	const barWidth = 30
	if m.width > 0 && m.width < barWidth+20 {
		return max(10, m.width-20)
	}
	return barWidth
}

// checkForBell checks whether the run newly entered an attention state.
// Returns a command to emit a bell if so. Bell is suppressed if BellEnabled
// is false or Quiet mode is active.
func (m *WatchModel) checkForBell() tea.Cmd {
	defer func() {
		m.prevStatus = m.view.Status
		m.prevSet = true
	}()

	if !m.config.BellEnabled || m.config.Quiet {
		return nil
	}

	// Only bell on new transitions into attention states.
	if IsAttentionStatus(m.view.Status) {
		if !m.prevSet || !IsAttentionStatus(m.prevStatus) {
			return emitBell()
		}
	}

	return nil
}

// emitBell returns a command that emits a terminal bell.
func emitBell() tea.Cmd {
	return func() tea.Msg {
		// Write BEL directly to stdout to avoid the forbidigo lint rule.
		_, _ = os.Stdout.WriteString("\a")
		return BellMsg{}
	}
}
