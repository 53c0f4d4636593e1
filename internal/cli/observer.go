package cli

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"time"

	"github.com/gafferworks/gaffer/internal/audit"
	"github.com/gafferworks/gaffer/internal/config"
	"github.com/gafferworks/gaffer/internal/coordinator"
	"github.com/gafferworks/gaffer/internal/domain"
	"github.com/gafferworks/gaffer/internal/tui"
)

// runObserver assembles a run view from the checkpoint file and the audit
// trail, so status and watch can observe a run owned by another process.
// It is stateless: every call re-reads the files, which keeps a long watch
// session consistent with whatever the run process last persisted.
type runObserver struct {
	checkpointPath string
	auditPath      string
	maxWorkHours   float64
}

// newRunObserver builds an observer from resolved configuration. The audit
// path resolves to the default location when the config leaves it empty, so
// a trail recorded by 'gaffer run --audit' is found without extra flags.
func newRunObserver(cfg *config.Config) (*runObserver, error) {
	checkpointPath, err := config.CheckpointPath()
	if err != nil {
		return nil, err
	}

	auditPath := cfg.Audit.Path
	if auditPath == "" {
		if auditPath, err = config.AuditPath(); err != nil {
			return nil, err
		}
	}

	return &runObserver{
		checkpointPath: checkpointPath,
		auditPath:      auditPath,
		maxWorkHours:   cfg.Workflow.MaxWorkHours,
	}, nil
}

// StatusView loads the checkpoint and enriches it with audit history.
// The error wraps fs.ErrNotExist when no run has ever been checkpointed.
func (o *runObserver) StatusView(ctx context.Context) (tui.StatusView, error) {
	cp, err := coordinator.LoadCheckpoint(o.checkpointPath)
	if err != nil {
		return tui.StatusView{}, err
	}

	view := tui.StatusView{
		RunID:       cp.RunID,
		Status:      cp.Status,
		AgentID:     string(cp.AgentID),
		IssueNumber: cp.Issue.Number,
	}

	if cp.Progress != nil {
		view.Uptime = time.Duration(cp.Progress.ElapsedMinutes) * time.Minute
	}
	view.TimeRemaining = time.Duration(o.maxWorkHours*float64(time.Hour)) - view.Uptime
	view.CanContinue = !tui.IsConcludedStatus(cp.Status) && view.TimeRemaining > 0

	// Audit enrichment is best effort: a run without --audit still gets
	// the checkpoint-derived fields.
	if records, recErr := o.RecentTransitions(ctx, 0); recErr == nil && len(records) > 0 {
		view.TransitionCount = len(records)
		last := records[len(records)-1].Timestamp
		view.LastTransitionAt = &last
		if view.Uptime == 0 {
			view.Uptime = last.Sub(records[0].Timestamp)
		}
	}

	return view, nil
}

// RecentTransitions returns the checkpointed run's transitions from the
// audit trail, oldest first, trimmed to the newest limit entries when
// limit is positive. A missing trail yields no records and no error.
func (o *runObserver) RecentTransitions(ctx context.Context, limit int) ([]domain.TransitionRecord, error) {
	if o.auditPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(o.auditPath); stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	cp, err := coordinator.LoadCheckpoint(o.checkpointPath)
	if err != nil {
		return nil, err
	}

	store, err := audit.Open(o.auditPath, audit.WithLogger(GetLogger()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(ctx, cp.RunID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}
