// Package journal keeps an append-only SQLite record of shutdown lifecycle
// events so operators can inspect past runs.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"gracefulexit/logging"
	"gracefulexit/shutdown"
)

// DefaultFlushTimeout bounds how long a terminal event waits for queued
// entries before it is written.
const DefaultFlushTimeout = 2 * time.Second

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal closed")

// Entry is a row in the lifecycle_events table.
type Entry struct {
	ID        int64     // Auto-incremented primary key
	RunID     string    // Shutdown run the event belongs to
	Kind      string    // Event kind: "beforeShutdown", "error", "timeout", "beforeExit"
	Callback  string    // Failed callback name, error events only
	Message   string    // Redacted human-readable detail
	CreatedAt time.Time // Time the event was emitted
}

// RunSummary aggregates the entries of one run.
type RunSummary struct {
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   string // Terminal kind, empty when the run never finished
	Errors    int
}

// Journal records lifecycle events for a single process run.
//
// Non-terminal events are queued on a Writer. Terminal events flush the
// queue and are written synchronously, after which the journal closes
// itself; the process is about to exit.
//
// Example:
//
//	j, err := journal.Open(cfg.JournalPath, orchestrator.RunID(), logger)
//	if err != nil {
//	    return err
//	}
//	orchestrator.OnAny(j.Record)
type Journal struct {
	db           *sql.DB
	path         string
	runID        string
	logger       *zap.Logger
	writer       *Writer
	flushTimeout time.Duration
	now          func() time.Time

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open migrates the database at path and opens it for recording events of
// runID. An empty runID is valid for read-only use.
func Open(path, runID string, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := Migrate(path); err != nil {
		return nil, err
	}

	db, err := OpenDB(DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}

	j := &Journal{
		db:           db,
		path:         path,
		runID:        runID,
		logger:       logger.With(zap.String("journal", path)),
		flushTimeout: DefaultFlushTimeout,
		now:          time.Now,
	}
	j.writer = NewWriter(j.insert, DefaultBufferSize, j.logger)
	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// RunID returns the run the journal records events for.
func (j *Journal) RunID() string {
	return j.runID
}

// Record stores ev. It has the shutdown.Listener signature.
func (j *Journal) Record(ev shutdown.Event) {
	if j.closed.Load() {
		return
	}

	entry := entryFor(j.runID, ev, j.now())

	if !ev.Kind().Terminal() {
		if err := j.writer.Write(entry); err != nil {
			j.logger.Warn("Journal entry dropped", zap.String("kind", entry.Kind), zap.Error(err))
		}
		return
	}

	if err := j.writer.Flush(j.flushTimeout); err != nil {
		j.logger.Warn("Failed to flush journal", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.flushTimeout)
	defer cancel()
	if err := j.Append(ctx, entry); err != nil {
		j.logger.Error("Failed to record terminal event", zap.String("kind", entry.Kind), zap.Error(err))
	}

	if err := j.Close(); err != nil {
		j.logger.Warn("Failed to close journal", zap.Error(err))
	}
}

// entryFor converts an event into a journal row.
func entryFor(runID string, ev shutdown.Event, at time.Time) Entry {
	entry := Entry{
		RunID:     runID,
		Kind:      ev.Kind().String(),
		CreatedAt: at,
	}

	switch e := ev.(type) {
	case shutdown.BeforeShutdown:
		entry.Message = "shutdown requested"
	case shutdown.Error:
		entry.Callback = e.Callback
		if e.Err != nil {
			entry.Message = logging.RedactSensitiveData(e.Err.Error())
		}
	case shutdown.Timeout:
		entry.Message = "shutdown deadline exceeded"
		if e.Forced {
			entry.Message = "forced exit after repeated triggers"
		}
	case shutdown.BeforeExit:
		entry.Message = "all callbacks settled"
	}
	return entry
}

// Append writes entry synchronously. A missing RunID or CreatedAt is filled
// from the journal.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	if j.closed.Load() {
		return ErrClosed
	}
	if entry.RunID == "" {
		entry.RunID = j.runID
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = j.now()
	}
	return j.insertContext(ctx, entry)
}

func (j *Journal) insert(entry Entry) error {
	return j.insertContext(context.Background(), entry)
}

func (j *Journal) insertContext(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO lifecycle_events (run_id, kind, callback, message, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := j.db.ExecContext(ctx, query,
		entry.RunID,
		entry.Kind,
		nullString(entry.Callback),
		entry.Message,
		entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lifecycle event: %w", err)
	}
	return nil
}

// Recent returns the newest entries across all runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, run_id, kind, callback, message, created_at
		FROM lifecycle_events
		ORDER BY id DESC
		LIMIT ?`

	return j.queryEntries(ctx, query, limit)
}

// ByRun returns the entries of one run in emission order.
func (j *Journal) ByRun(ctx context.Context, runID string) ([]Entry, error) {
	query := `
		SELECT id, run_id, kind, callback, message, created_at
		FROM lifecycle_events
		WHERE run_id = ?
		ORDER BY id ASC`

	return j.queryEntries(ctx, query, runID)
}

func (j *Journal) queryEntries(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lifecycle events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			callback  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Kind, &callback, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan lifecycle event: %w", err)
		}
		e.Callback = callback.String
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lifecycle events: %w", err)
	}
	return entries, nil
}

// Runs summarizes the most recent runs, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id,
			MIN(created_at),
			MAX(created_at),
			COALESCE(MAX(CASE WHEN kind IN (?, ?) THEN kind END), ''),
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END)
		FROM lifecycle_events
		GROUP BY run_id
		ORDER BY MIN(created_at) DESC
		LIMIT ?`

	rows, err := j.db.QueryContext(ctx, query,
		shutdown.EventBeforeExit.String(),
		shutdown.EventTimeout.String(),
		shutdown.EventError.String(),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r            RunSummary
			started, end int64
		)
		if err := rows.Scan(&r.RunID, &started, &end, &r.Outcome, &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		r.StartedAt = time.Unix(0, started)
		r.EndedAt = time.Unix(0, end)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Close drains the writer and closes the database. It is safe to call
// more than once.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		j.writer.Stop()
		j.closed.Store(true)
		if err := j.db.Close(); err != nil {
			j.closeErr = fmt.Errorf("failed to close journal: %w", err)
		}
	})
	return j.closeErr
}

// nullString returns nil for empty strings so optional columns store NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
