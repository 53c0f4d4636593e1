// Package audit persists workflow transition records to a local SQLite
// database. The transitions table is append-only: rows are written in
// the order transitions happened and reads return that order. The
// in-memory machine history stays authoritative; the store is the
// durable copy that survives process restarts.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	// SQLite driver, registered for database/sql.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

const (
	// defaultBusyTimeout is how long SQLite waits on a locked database
	// before failing a statement.
	defaultBusyTimeout = 5 * time.Second

	// openTimeout bounds the connectivity check during Open.
	openTimeout = 5 * time.Second

	// dbDirPerm is the mode for a created database directory.
	dbDirPerm = 0o750

	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = time.Hour
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT     NOT NULL,
	issue_number INTEGER  NOT NULL,
	from_status  TEXT,
	to_status    TEXT     NOT NULL,
	event        TEXT     NOT NULL,
	timestamp    DATETIME NOT NULL,
	duration_ns  INTEGER  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_run_id ON transitions (run_id, id);
`

const insertTransition = `
INSERT INTO transitions (run_id, issue_number, from_status, to_status, event, timestamp, duration_ns)
VALUES (?, ?, ?, ?, ?, ?, ?)`

// Entry is one persisted transition row with its run identity.
type Entry struct {
	ID          int64                   `json:"id"`
	RunID       string                  `json:"run_id"`
	IssueNumber int                     `json:"issue_number"`
	Record      domain.TransitionRecord `json:"record"`
}

// Store is the SQLite-backed transition sink. All methods are safe for
// concurrent use; writers are serialized by SQLite under the configured
// busy timeout.
type Store struct {
	db          *sql.DB
	path        string
	logger      zerolog.Logger
	busyTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// Option configures a Store before it opens its database.
type Option func(*Store)

// WithLogger sets the logger for store lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBusyTimeout overrides how long SQLite waits on a locked database.
// Non-positive values keep the default.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// Open opens the database at path, creating the file, its parent
// directory, and the transitions table as needed. The connection runs in
// WAL mode with foreign keys on, which is verified before the store is
// returned.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:        path,
		logger:      zerolog.Nop(),
		busyTimeout: defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dbDirPerm); err != nil {
			return nil, fmt.Errorf("ensure audit dir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d",
		path, s.busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		_ = db.Close()
		return nil, fmt.Errorf("journal mode is %s, want wal", journalMode)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create transitions table: %w", err)
	}

	s.db = db
	s.logger.Debug().Str("path", path).Msg("audit store opened")
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record appends a single transition for the given run.
func (s *Store) Record(ctx context.Context, runID string, issueNumber int, record domain.TransitionRecord) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, insertTransition,
		runID,
		issueNumber,
		nullableStatus(record.FromStatus),
		string(record.ToStatus),
		record.Event,
		record.Timestamp.UTC(),
		record.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// RecordBatch appends transitions for the given run in one transaction,
// preserving slice order. An empty batch is a no-op.
func (s *Store) RecordBatch(ctx context.Context, runID string, issueNumber int, records []domain.TransitionRecord) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertTransition)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare transition insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, record := range records {
		if _, err := stmt.ExecContext(ctx,
			runID,
			issueNumber,
			nullableStatus(record.FromStatus),
			string(record.ToStatus),
			record.Event,
			record.Timestamp.UTC(),
			record.Duration.Nanoseconds(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert transition %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition batch: %w", err)
	}

	s.logger.Debug().Str("run_id", runID).Int("count", len(records)).Msg("transition batch recorded")
	return nil
}

// List returns every transition recorded for the run, in insertion
// order.
func (s *Store) List(ctx context.Context, runID string) ([]domain.TransitionRecord, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `
		SELECT from_status, to_status, event, timestamp, duration_ns
		FROM transitions
		WHERE run_id = ?
		ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.TransitionRecord
	for rows.Next() {
		var (
			record     domain.TransitionRecord
			fromStatus sql.NullString
			durationNS int64
		)
		if err := rows.Scan(&fromStatus, &record.ToStatus, &record.Event, &record.Timestamp, &durationNS); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if fromStatus.Valid {
			from := constants.WorkflowStatus(fromStatus.String)
			record.FromStatus = &from
		}
		record.Duration = time.Duration(durationNS)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return records, nil
}

// Tail returns the most recent entries across all runs, oldest first. A
// non-positive limit returns no entries.
func (s *Store) Tail(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, run_id, issue_number, from_status, to_status, event, timestamp, duration_ns
		FROM transitions
		ORDER BY id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			fromStatus sql.NullString
			durationNS int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.RunID,
			&entry.IssueNumber,
			&fromStatus,
			&entry.Record.ToStatus,
			&entry.Record.Event,
			&entry.Record.Timestamp,
			&durationNS,
		); err != nil {
			return nil, fmt.Errorf("scan transition entry: %w", err)
		}
		if fromStatus.Valid {
			from := constants.WorkflowStatus(fromStatus.String)
			entry.Record.FromStatus = &from
		}
		entry.Record.Duration = time.Duration(durationNS)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transition entries: %w", err)
	}

	slices.Reverse(entries)
	return entries, nil
}

// Close releases the database handle. Later calls on the store return
// ErrAuditClosed; Close itself is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close audit database: %w", err)
	}
	return nil
}

// ready rejects use of a closed store.
func (s *Store) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gaffererrors.ErrAuditClosed
	}
	return nil
}

// nullableStatus converts an optional status to its SQL value. The
// first transition out of no-state has no from status and stores NULL.
func nullableStatus(status *constants.WorkflowStatus) any {
	if status == nil {
		return nil
	}
	return string(*status)
}
