package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
)

// Checkpoint file permissions.
const (
	checkpointFilePerm = 0o600
	checkpointDirPerm  = 0o750
)

// Checkpoint is the durable snapshot of a run, written on every status
// tick and at shutdown so a restarted scheduler can resume. It captures
// identity and placement, not in-flight work: anything past Assigned is
// clamped on restore and the agent re-does it.
type Checkpoint struct {
	// SchemaVersion versions the checkpoint layout for forward migration.
	SchemaVersion string `json:"schema_version"`

	// RunID identifies the run that wrote the checkpoint.
	RunID string `json:"run_id"`

	// Status is the workflow status at save time.
	Status constants.WorkflowStatus `json:"status"`

	// Issue is the issue under work, zero when none.
	Issue domain.Issue `json:"issue"`

	// AgentID is the agent bound to the workflow, empty when none.
	AgentID domain.AgentID `json:"agent_id,omitempty"`

	// Workspace is the prepared workspace, nil before preparation.
	Workspace *domain.Workspace `json:"workspace,omitempty"`

	// Progress is the accumulated work progress, nil before work starts.
	Progress *domain.WorkProgress `json:"progress,omitempty"`

	// SavedAt is when the checkpoint was written.
	SavedAt time.Time `json:"saved_at"`
}

// Checkpointer persists run checkpoints.
type Checkpointer interface {
	Save(ctx context.Context, cp Checkpoint) error
}

// Compile-time interface checks.
var (
	_ Checkpointer = NoopCheckpointer{}
	_ Checkpointer = (*FileCheckpointer)(nil)
)

// NoopCheckpointer discards checkpoints.
type NoopCheckpointer struct{}

// Save implements Checkpointer.
func (NoopCheckpointer) Save(context.Context, Checkpoint) error { return nil }

// FileCheckpointer writes checkpoints to a single JSON file using
// write-then-rename, so the file always holds one complete document
// even when a save is interrupted.
type FileCheckpointer struct {
	mu   sync.Mutex
	path string
}

// NewFileCheckpointer creates a checkpointer writing to the given path.
func NewFileCheckpointer(path string) *FileCheckpointer {
	return &FileCheckpointer{path: path}
}

// Path returns the checkpoint file path.
func (c *FileCheckpointer) Path() string {
	return c.path
}

// Save implements Checkpointer.
func (c *FileCheckpointer) Save(ctx context.Context, cp Checkpoint) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "    ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, checkpointDirPerm); err != nil {
			return fmt.Errorf("create checkpoint directory: %w", err)
		}
	}
	return atomicWrite(c.path, data)
}

// atomicWrite writes data through a temp file and renames it into
// place, removing the temp file on any failure.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, checkpointFilePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("install checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint file. The error wraps fs.ErrNotExist
// when no checkpoint has been written yet.
func LoadCheckpoint(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is operator-supplied configuration
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return cp, nil
}

// ResumeStatus maps a checkpointed status to the status a restarted run
// resumes at. In-flight work past Assigned cannot be trusted across a
// restart, so live statuses clamp back to Assigned: the workspace is
// kept and the work restarts. Terminal statuses and the pre-assignment
// statuses map to themselves.
func ResumeStatus(saved constants.WorkflowStatus) constants.WorkflowStatus {
	switch saved {
	case constants.StatusNone,
		constants.StatusUnassigned,
		constants.StatusAssigned,
		constants.StatusMerged,
		constants.StatusAbandoned:
		return saved
	default:
		return constants.StatusAssigned
	}
}
