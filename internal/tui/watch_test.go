package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
)

// mockStatusSource implements StatusSource for testing.
type mockStatusSource struct {
	view StatusView
	err  error
}

func (m *mockStatusSource) StatusView(_ context.Context) (StatusView, error) {
	if m.err != nil {
		return StatusView{}, m.err
	}
	return m.view, nil
}

// mockTransitionSource implements TransitionSource for testing.
type mockTransitionSource struct {
	records []domain.TransitionRecord
	err     error
}

func (m *mockTransitionSource) RecentTransitions(_ context.Context, _ int) ([]domain.TransitionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

func newTestModel(cfg WatchConfig) *WatchModel {
	src := &mockStatusSource{view: StatusView{
		RunID:       "run-1",
		Status:      constants.StatusInProgress,
		CanContinue: true,
	}}
	return NewWatchModel(context.Background(), src, &mockTransitionSource{}, cfg)
}

func TestNewWatchModel(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	assert.NotNil(t, model)
	assert.False(t, model.quitting)
	assert.False(t, model.Loaded())
	assert.Equal(t, 80, model.width)
	assert.Equal(t, 24, model.height)
	assert.NotNil(t, model.feed)
}

func TestDefaultWatchConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultWatchConfig()

	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.True(t, cfg.BellEnabled)
	assert.False(t, cfg.Quiet)
	assert.True(t, cfg.ShowFeed)
	assert.Equal(t, 5, cfg.FeedLines)
}

func TestWatchModel_Init(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	// Init returns a batch of commands: refresh, tick, and spinner.
	assert.NotNil(t, model.Init())
}

func TestWatchModel_Update_KeyQuit(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	updated, cmd := model.Update(msg)

	watchModel, ok := updated.(*WatchModel)
	require.True(t, ok)
	assert.True(t, watchModel.IsQuitting())
	assert.NotNil(t, cmd)
}

func TestWatchModel_Update_KeyCtrlC(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	watchModel, ok := updated.(*WatchModel)
	require.True(t, ok)
	assert.True(t, watchModel.IsQuitting())
	assert.NotNil(t, cmd)
}

func TestWatchModel_Update_WindowSize(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	updated, cmd := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	watchModel, ok := updated.(*WatchModel)
	require.True(t, ok)
	assert.Equal(t, 120, watchModel.width)
	assert.Equal(t, 40, watchModel.height)
	assert.Nil(t, cmd)
}

func TestWatchModel_Update_Refresh(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	view := StatusView{
		RunID:       "run-1",
		Status:      constants.StatusUnderReview,
		IssueNumber: 42,
		CanContinue: true,
	}
	records := []domain.TransitionRecord{
		{ToStatus: constants.StatusUnderReview, Event: "submit_for_review", Timestamp: time.Now()},
	}

	updated, cmd := model.Update(RefreshMsg{View: view, Transitions: records})

	watchModel, ok := updated.(*WatchModel)
	require.True(t, ok)
	assert.True(t, watchModel.Loaded())
	assert.Equal(t, view, watchModel.CurrentView())
	assert.False(t, watchModel.LastUpdate().IsZero())
	assert.NoError(t, watchModel.Error())
	assert.Equal(t, 1, watchModel.feed.Len())
	assert.NotNil(t, cmd)
}

func TestWatchModel_Update_RefreshError(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	updated, cmd := model.Update(RefreshMsg{Err: assert.AnError})

	watchModel, ok := updated.(*WatchModel)
	require.True(t, ok)
	assert.False(t, watchModel.Loaded())
	assert.Error(t, watchModel.Error())
	assert.NotNil(t, cmd)
}

func TestWatchModel_Update_Tick(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	_, cmd := model.Update(TickMsg(time.Now()))
	assert.NotNil(t, cmd)
}

func TestWatchModel_RefreshCommand(t *testing.T) {
	t.Parallel()

	src := &mockStatusSource{view: StatusView{
		RunID:       "run-9",
		Status:      constants.StatusApproved,
		CanContinue: true,
	}}
	transitions := &mockTransitionSource{records: []domain.TransitionRecord{
		{ToStatus: constants.StatusApproved, Event: "approval_received", Timestamp: time.Now()},
	}}
	model := NewWatchModel(context.Background(), src, transitions, DefaultWatchConfig())

	msg := model.refreshData()()
	refresh, ok := msg.(RefreshMsg)
	require.True(t, ok)
	require.NoError(t, refresh.Err)
	assert.Equal(t, "run-9", refresh.View.RunID)
	assert.Len(t, refresh.Transitions, 1)
}

func TestWatchModel_RefreshCommand_SourceError(t *testing.T) {
	t.Parallel()

	src := &mockStatusSource{err: assert.AnError}
	model := NewWatchModel(context.Background(), src, nil, DefaultWatchConfig())

	msg := model.refreshData()()
	refresh, ok := msg.(RefreshMsg)
	require.True(t, ok)
	require.Error(t, refresh.Err)
	assert.Contains(t, refresh.Err.Error(), "failed to load run status")
}

func TestWatchModel_View_BeforeFirstRefresh(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	model := newTestModel(DefaultWatchConfig())

	out := model.View()
	assert.Contains(t, out, "waiting for run data")
	assert.Contains(t, out, "Press 'q' to quit")
}

func TestWatchModel_View_AfterRefresh(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	model := newTestModel(DefaultWatchConfig())
	model.width = 100

	view := StatusView{
		RunID:         "run-1",
		Status:        constants.StatusInProgress,
		IssueNumber:   7,
		Uptime:        time.Hour,
		TimeRemaining: 7 * time.Hour,
		CanContinue:   true,
	}
	updated, _ := model.Update(RefreshMsg{View: view})

	out := updated.View()
	assert.Contains(t, out, "WORKFLOW run-1")
	assert.Contains(t, out, "in_progress")
	assert.Contains(t, out, "elapsed")
	assert.Contains(t, out, "Last updated:")
	assert.NotContains(t, out, "waiting for run data")
}

func TestWatchModel_View_QuietSuppressesHeader(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	cfg := DefaultWatchConfig()
	cfg.Quiet = true
	model := newTestModel(cfg)
	model.width = 100

	updated, _ := model.Update(RefreshMsg{View: StatusView{
		RunID:       "run-1",
		Status:      constants.StatusInProgress,
		CanContinue: true,
	}})

	out := updated.View()
	assert.NotContains(t, out, "█")
	assert.NotContains(t, out, "GAFFER")
}

func TestWatchModel_View_Quitting(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	assert.Empty(t, updated.View())
}

func TestWatchModel_BellOnNewAttention(t *testing.T) {
	t.Parallel()

	model := newTestModel(DefaultWatchConfig())

	// First refresh lands in a healthy state: no bell.
	model.view = StatusView{Status: constants.StatusInProgress}
	assert.Nil(t, model.checkForBell())

	// Transition into an attention state rings once.
	model.view = StatusView{Status: constants.StatusMergeConflict}
	assert.NotNil(t, model.checkForBell())

	// Staying in the attention state stays quiet.
	assert.Nil(t, model.checkForBell())
}

func TestWatchModel_BellSuppressed(t *testing.T) {
	t.Parallel()

	cfg := DefaultWatchConfig()
	cfg.BellEnabled = false
	model := newTestModel(cfg)

	model.view = StatusView{Status: constants.StatusBlocked}
	assert.Nil(t, model.checkForBell())

	quiet := DefaultWatchConfig()
	quiet.Quiet = true
	model = newTestModel(quiet)

	model.view = StatusView{Status: constants.StatusBlocked}
	assert.Nil(t, model.checkForBell())
}
