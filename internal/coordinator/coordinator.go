// Package coordinator runs the autonomous development loop. Each pass
// it reads the workflow state, performs the one side effect that state
// calls for (pick up an issue, prepare a branch, drive the agent, open
// a pull request, poll reviews, merge), and feeds the outcome back into
// the state machine as the next event.
//
// The split with the workflow package is strict: the machine decides
// what may happen and records what did, the coordinator talks to the
// outside world. Collaborator failures are classified and remediated
// through the recovery engine; failures the engine cannot clear abandon
// the workflow, and blockers that need a human stop the loop instead.
//
// Import rules:
//   - CAN import: any other internal package except internal/cli
//   - MUST NOT be imported by: anything except internal/cli
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gafferworks/gaffer/internal/audit"
	"github.com/gafferworks/gaffer/internal/clock"
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
	"github.com/gafferworks/gaffer/internal/forge"
	"github.com/gafferworks/gaffer/internal/metrics"
	"github.com/gafferworks/gaffer/internal/recovery"
	"github.com/gafferworks/gaffer/internal/review"
	"github.com/gafferworks/gaffer/internal/workflow"
)

// shutdownGrace bounds cleanup work after the run context is canceled.
const shutdownGrace = 5 * time.Second

// Coordinator drives one workflow instance from assignment to a
// terminal state. Construct with New, resume a previous run with
// Restore, then call Run exactly once.
//
// Status, Abandon, and AutoRecover are safe to call from other
// goroutines while Run is active.
type Coordinator struct {
	machine *workflow.Machine
	engine  *recovery.Executor
	host    forge.Host
	agent   Agent
	reviews review.Source
	slots   *SlotTracker

	logger       zerolog.Logger
	clk          clock.Clock
	recoverer    LifecycleRecoverer
	checkpointer Checkpointer
	auditStore   *audit.Store
	metrics      metrics.Recorder

	runID      uuid.UUID
	agentID    domain.AgentID
	baseBranch string

	statusInterval  time.Duration
	idlePoll        time.Duration
	reviewPoll      time.Duration
	escalationRetry time.Duration

	abandonRequestPath string

	// Loop bookkeeping, touched only by the Run goroutine (and Restore,
	// which must be called before Run).
	flushed      int
	finalized    bool
	lastProgress domain.WorkProgress
	addressed    []domain.ReviewFeedback
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithClock replaces the wall clock, letting tests drive time
// deterministically.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) { c.clk = clk }
}

// WithLifecycleRecoverer sets the recoverer used by AutoRecover sweeps.
func WithLifecycleRecoverer(r LifecycleRecoverer) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recoverer = r
		}
	}
}

// WithCheckpointer sets the checkpoint sink. The default discards
// checkpoints.
func WithCheckpointer(cp Checkpointer) Option {
	return func(c *Coordinator) {
		if cp != nil {
			c.checkpointer = cp
		}
	}
}

// WithAuditStore sets the durable transition sink. A nil store disables
// audit writes.
func WithAuditStore(store *audit.Store) Option {
	return func(c *Coordinator) { c.auditStore = store }
}

// WithMetrics sets the metrics recorder. The default records nothing.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *Coordinator) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// WithAgentID sets the agent identity bound to assignments.
func WithAgentID(id domain.AgentID) Option {
	return func(c *Coordinator) {
		if id != "" {
			c.agentID = id
		}
	}
}

// WithRunID pins the run identifier instead of generating one.
func WithRunID(id uuid.UUID) Option {
	return func(c *Coordinator) { c.runID = id }
}

// WithBaseBranch sets the branch work forks from and merges into.
func WithBaseBranch(branch string) Option {
	return func(c *Coordinator) {
		if branch != "" {
			c.baseBranch = branch
		}
	}
}

// WithStatusInterval sets the cadence of status reports and periodic
// checkpoints.
func WithStatusInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.statusInterval = d
		}
	}
}

// WithIdlePollInterval sets the sleep between assignment polls when the
// backlog is empty.
func WithIdlePollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.idlePoll = d
		}
	}
}

// WithReviewPollInterval sets the sleep between feedback polls while a
// pull request is under review.
func WithReviewPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.reviewPoll = d
		}
	}
}

// WithEscalationRetryInterval sets the wait after an escalated recovery
// before the failed action is retried.
func WithEscalationRetryInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.escalationRetry = d
		}
	}
}

// WithAbandonRequestPath enables the abandon-request file protocol: the
// loop consumes a JSON file dropped at this path and force-abandons the
// live workflow with the requested reason.
func WithAbandonRequestPath(path string) Option {
	return func(c *Coordinator) { c.abandonRequestPath = path }
}

// New creates a coordinator around the given collaborators.
func New(machine *workflow.Machine, engine *recovery.Executor, host forge.Host, agent Agent, reviews review.Source, slots *SlotTracker, opts ...Option) *Coordinator {
	c := &Coordinator{
		machine: machine,
		engine:  engine,
		host:    host,
		agent:   agent,
		reviews: reviews,
		slots:   slots,

		logger:       zerolog.Nop(),
		clk:          clock.RealClock{},
		recoverer:    NoopLifecycleRecoverer{},
		checkpointer: NoopCheckpointer{},
		metrics:      metrics.Noop{},

		runID:      uuid.New(),
		agentID:    constants.DefaultAgentID,
		baseBranch: constants.DefaultBaseBranch,

		statusInterval:  constants.DefaultStatusInterval,
		idlePoll:        constants.DefaultIdlePollInterval,
		reviewPoll:      constants.DefaultReviewPollInterval,
		escalationRetry: constants.DefaultEscalationRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunID returns the identifier of this run, used to scope audit queries.
func (c *Coordinator) RunID() uuid.UUID {
	return c.runID
}

// Run executes the coordination loop until the workflow reaches a
// terminal state, autonomy is lost, or ctx is canceled.
//
// A concluded workflow (merged or abandoned) and a canceled context
// both return nil: the scheduler did its job or was told to stop. A
// workflow parked on a blocker that needs a human returns an error
// wrapping ErrCoordinatorStopped naming the blocker.
func (c *Coordinator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// Stops the status task when the loop concludes on its own.
		defer cancel()
		return c.loop(gctx)
	})
	g.Go(func() error {
		c.statusLoop(gctx)
		return nil
	})
	return g.Wait()
}

// loop is the coordination loop body. One pass performs at most one
// state action, then flushes new transitions to the audit trail and
// metrics before deciding whether to keep going.
func (c *Coordinator) loop(ctx context.Context) error {
	c.logger.Info().
		Str("run_id", c.runID.String()).
		Str("agent", c.agentID.String()).
		Msg("coordination loop started")

	for {
		if ctxutil.Canceled(ctx) != nil {
			c.shutdown(ctx)
			return nil
		}

		c.consumeAbandonRequest(ctx)

		if c.machine.TimedOut() {
			// Any event on a spent time box is pre-empted into timeout
			// abandonment; the no-op sweep event serves as the probe.
			_ = c.handle(ctx, workflow.AutoRecover{})
		}

		state := c.machine.Current()
		c.stashProgress(state)

		err := c.step(ctx, state)

		c.flushHistory(ctx)

		if err != nil {
			// Context died mid-action; the top of the loop decides.
			continue
		}

		if cur := c.machine.Current(); cur != nil && workflow.IsTerminal(cur) {
			c.finalize(ctx, cur)
			return nil
		}
		if !c.CanContinueAutonomously() {
			return c.stopForHumans(ctx)
		}
	}
}

// handle feeds one event to the machine. A rejected event is logged and
// swallowed: it means the state moved underneath the loop (an operator
// abandon, a timeout pre-emption) and the next pass will read the new
// state.
func (c *Coordinator) handle(ctx context.Context, ev workflow.Event) error {
	err := c.machine.Handle(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gaffererrors.ErrInvalidTransition):
		c.logger.Warn().Err(err).Str("event", ev.Name()).Msg("event rejected, state moved")
		return nil
	default:
		return err
	}
}

// stashProgress keeps the latest accumulated progress so the completed
// work summary can be built after the state no longer carries it.
func (c *Coordinator) stashProgress(state workflow.State) {
	switch st := state.(type) {
	case workflow.InProgress:
		c.lastProgress = st.Progress
	case workflow.Blocked:
		c.lastProgress = st.Progress
	case workflow.ReadyForReview:
		c.lastProgress = st.Progress
	}
}

// flushHistory forwards transition records the machine appended since
// the last pass to the audit store and metrics recorder. Audit failures
// are logged, never fatal: the in-memory history stays authoritative.
func (c *Coordinator) flushHistory(ctx context.Context) {
	history := c.machine.History()
	if c.flushed >= len(history) {
		return
	}

	issueNumber := 0
	if issue, ok := workflow.IssueOf(c.machine.Current()); ok {
		issueNumber = issue.Number
	}
	for _, record := range history[c.flushed:] {
		c.metrics.TransitionApplied(record)
		if c.auditStore == nil {
			continue
		}
		if err := c.auditStore.Record(ctx, c.runID.String(), issueNumber, record); err != nil {
			c.logger.Warn().Err(err).Str("event", record.Event).Msg("audit write failed")
		}
	}
	c.flushed = len(history)
}

// finalize runs the terminal bookkeeping exactly once per workflow:
// release the worker slot, clear the working label, record the outcome,
// and checkpoint the terminal state.
func (c *Coordinator) finalize(ctx context.Context, state workflow.State) {
	if c.finalized {
		return
	}
	c.finalized = true

	status := state.Status()
	c.metrics.WorkflowFinished(status)

	issue, _ := workflow.IssueOf(state)
	if issue.Number > 0 {
		if err := c.slots.Release(issue.Number); err != nil {
			c.logger.Debug().Err(err).Msg("slot already released")
		}
		if err := c.host.RemoveLabel(ctx, issue.Number, constants.WorkingLabel); err != nil {
			c.logger.Warn().Err(err).Int("issue", issue.Number).Msg("could not remove working label")
		}
	}
	c.saveCheckpoint(ctx)

	event := c.logger.Info().Int("issue", issue.Number).Str("status", status.String())
	if ab, ok := state.(workflow.Abandoned); ok && ab.Reason != nil {
		event = event.Str("reason", ab.Reason.Describe())
	}
	event.Msg("workflow finished")
}

// shutdown handles a canceled run context: finish terminal bookkeeping
// if the workflow concluded during the final action, otherwise persist
// a checkpoint so the next run resumes.
func (c *Coordinator) shutdown(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	if cur := c.machine.Current(); cur != nil && workflow.IsTerminal(cur) {
		c.finalize(cleanupCtx, cur)
	} else {
		c.saveCheckpoint(cleanupCtx)
	}
	c.logger.Info().Msg("coordination loop stopped")
}

// stopForHumans exits the loop for a workflow that is alive but outside
// autonomous reach, leaving the machine state intact for an operator.
func (c *Coordinator) stopForHumans(ctx context.Context) error {
	reason := "work time box exhausted"
	if st, ok := c.machine.Current().(workflow.Blocked); ok && st.Blocker != nil {
		reason = st.Blocker.Describe()
	}
	c.saveCheckpoint(ctx)
	c.logger.Warn().Str("reason", reason).Msg("stopping for human attention")
	return fmt.Errorf("%w: %s", gaffererrors.ErrCoordinatorStopped, reason)
}

// statusLoop emits the periodic status report and checkpoint until the
// run context ends.
func (c *Coordinator) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(c.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reportStatus(ctx)
		}
	}
}

// reportStatus logs one status report and persists a checkpoint.
func (c *Coordinator) reportStatus(ctx context.Context) {
	report := c.Status()
	c.logger.Info().
		Str("status", report.Snapshot.Status.String()).
		Str("agent", report.AgentID.String()).
		Int("issue", report.IssueNumber).
		Dur("uptime", report.Uptime).
		Dur("time_remaining", report.TimeRemaining).
		Int("transitions", report.TransitionCount).
		Int("recovery_attempts", report.Recovery.TotalAttempts).
		Float64("recovery_success_rate", report.Recovery.SuccessRate).
		Bool("can_continue", report.CanContinue).
		Msg("status report")
	c.saveCheckpoint(ctx)
}

// saveCheckpoint persists the current checkpoint, logging failures
// without interrupting the loop.
func (c *Coordinator) saveCheckpoint(ctx context.Context) {
	if err := c.checkpointer.Save(ctx, c.buildCheckpoint()); err != nil {
		c.logger.Warn().Err(err).Msg("checkpoint save failed")
	}
}

// buildCheckpoint assembles a checkpoint from the machine's current
// state.
func (c *Coordinator) buildCheckpoint() Checkpoint {
	cp := Checkpoint{
		SchemaVersion: constants.CheckpointSchemaVersion,
		RunID:         c.runID.String(),
		Status:        c.machine.Status(),
		AgentID:       c.machine.Agent(),
		SavedAt:       c.clk.Now(),
	}

	state := c.machine.Current()
	if issue, ok := workflow.IssueOf(state); ok {
		cp.Issue = issue
	}
	switch st := state.(type) {
	case workflow.Assigned:
		ws := st.Workspace
		cp.Workspace = &ws
	case workflow.InProgress:
		ws, progress := st.Workspace, st.Progress
		cp.Workspace, cp.Progress = &ws, &progress
	case workflow.Blocked:
		ws, progress := st.Workspace, st.Progress
		cp.Workspace, cp.Progress = &ws, &progress
	case workflow.ReadyForReview:
		ws, progress := st.Workspace, st.Progress
		cp.Workspace, cp.Progress = &ws, &progress
	}
	return cp
}

// StatusReport is the periodic run report: the machine snapshot plus
// scheduler context.
type StatusReport struct {
	workflow.Snapshot

	// RunID identifies the run.
	RunID string `json:"run_id"`

	// IssueNumber is the issue under work, zero when none.
	IssueNumber int `json:"issue_number,omitempty"`

	// CanContinue reports whether autonomous operation can proceed.
	CanContinue bool `json:"can_continue"`

	// Recovery summarizes the recovery engine's attempts so far.
	Recovery recovery.Report `json:"recovery"`
}

// Status assembles a point-in-time status report.
func (c *Coordinator) Status() StatusReport {
	report := StatusReport{
		Snapshot:    c.machine.Snapshot(),
		RunID:       c.runID.String(),
		CanContinue: c.CanContinueAutonomously(),
		Recovery:    c.engine.Report(),
	}
	if issue, ok := workflow.IssueOf(c.machine.Current()); ok {
		report.IssueNumber = issue.Number
	}
	return report
}

// CanContinueAutonomously reports whether the loop can keep operating
// without a human: false once the workflow concluded, while blocked on
// a problem only a human can settle, or after the time box is spent.
func (c *Coordinator) CanContinueAutonomously() bool {
	switch st := c.machine.Current().(type) {
	case nil:
		return true
	case workflow.Merged, workflow.Abandoned:
		return false
	case workflow.Blocked:
		if !blockerAutoRecoverable(st.Blocker) {
			return false
		}
	}
	return !c.machine.TimedOut()
}

// Abandon force-terminates the live workflow with the given reason. The
// loop performs the terminal bookkeeping on its next pass.
func (c *Coordinator) Abandon(ctx context.Context, reason domain.AbandonReason) error {
	if err := c.machine.Handle(ctx, workflow.ForceAbandon{Reason: reason}); err != nil {
		return fmt.Errorf("abandon workflow: %w", err)
	}
	return nil
}

// AutoRecover records a recovery sweep on the workflow history, then
// checks workflow-adjacent resources and repairs what a crashed or
// interrupted run left behind. Requires a live workflow; the machine
// state is unchanged.
func (c *Coordinator) AutoRecover(ctx context.Context) (LifecycleReport, error) {
	if err := c.machine.Handle(ctx, workflow.AutoRecover{}); err != nil {
		return LifecycleReport{}, fmt.Errorf("record recovery sweep: %w", err)
	}
	report, err := c.recoverer.RecoverAll(ctx)
	if err != nil {
		return report, fmt.Errorf("lifecycle recovery: %w", err)
	}
	c.logger.Info().
		Int("checked", report.Checked).
		Int("repaired", report.Repaired).
		Msg("recovery sweep complete")
	return report, nil
}

// Restore replays a checkpoint onto the machine so a restarted
// scheduler resumes from durable state. Must be called before Run.
//
// Work past Assigned cannot be trusted across a restart, so live
// statuses clamp back to Assigned: the workspace is kept, the agent
// re-does in-flight work, and progress counters restart with it.
// Checkpoints of terminal or not-yet-assigned workflows restore
// nothing.
func (c *Coordinator) Restore(ctx context.Context, cp Checkpoint) error {
	status := ResumeStatus(cp.Status)
	switch status {
	case constants.StatusNone, constants.StatusMerged, constants.StatusAbandoned:
		return nil
	}

	ev := workflow.AssignAgent{Issue: cp.Issue, Agent: cp.AgentID}
	if ev.Agent == "" {
		ev.Agent = c.agentID
	}
	if status == constants.StatusAssigned && cp.Workspace != nil {
		ev.Workspace = *cp.Workspace
		ev.WorkspaceReady = true
	}
	if err := c.machine.Handle(ctx, ev); err != nil {
		return fmt.Errorf("restore checkpoint: %w", err)
	}

	if err := c.slots.Acquire(cp.Issue.Number); err != nil {
		c.logger.Debug().Err(err).Msg("slot not tracked for restored workflow")
	}
	c.logger.Info().
		Int("issue", cp.Issue.Number).
		Str("saved_status", cp.Status.String()).
		Str("resumed_as", status.String()).
		Msg("checkpoint restored")
	return nil
}

// abandonRequest is the JSON document of the abandon-request file
// protocol. Reason takes an AbandonKind value; unknown reasons become a
// critical failure carrying the detail text.
type abandonRequest struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// toReason maps the request to a domain abandon reason.
func (r abandonRequest) toReason() domain.AbandonReason {
	switch constants.AbandonKind(r.Reason) {
	case constants.AbandonRequirementsChanged:
		return domain.RequirementsChanged{}
	case constants.AbandonDependencyIssues:
		return domain.DependencyIssues{}
	default:
		detail := r.Detail
		if detail == "" {
			detail = "operator requested abandonment"
		}
		return domain.CriticalFailure{Reason: detail}
	}
}

// consumeAbandonRequest honors an operator-dropped abandon file. The
// file is removed before the abandon is attempted so a malformed or
// mistimed request cannot wedge the loop.
func (c *Coordinator) consumeAbandonRequest(ctx context.Context) {
	if c.abandonRequestPath == "" {
		return
	}

	data, err := os.ReadFile(c.abandonRequestPath) //#nosec G304 -- path is operator-supplied configuration
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("could not read abandon request")
		return
	}
	if err := os.Remove(c.abandonRequestPath); err != nil {
		c.logger.Warn().Err(err).Msg("could not remove abandon request")
	}

	var req abandonRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.logger.Warn().Err(err).Msg("malformed abandon request ignored")
		return
	}

	reason := req.toReason()
	if err := c.machine.Handle(ctx, workflow.ForceAbandon{Reason: reason}); err != nil {
		c.logger.Warn().Err(err).Msg("abandon request not applicable")
		return
	}
	c.logger.Info().Str("reason", reason.Kind().String()).Msg("abandon request honored")
}
