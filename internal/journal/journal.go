// Package journal persists a record of every command the broker settles.
// It is an audit trail, not a work queue: the broker's FIFO lives in
// memory, and rows land here only after a call has resolved, timed out, or
// been rejected.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yanissrairi/kicad-mcp-server/internal/broker"
	"github.com/yanissrairi/kicad-mcp-server/internal/log"
)

// Entry is one journaled command completion.
type Entry struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Status     string    `json:"status"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// backlogSize bounds completions waiting for the drain goroutine.
const backlogSize = 256

// Journal wraps the SQLite store. Completions arriving through Hook are
// handed to a drain goroutine so a slow disk never stalls the broker.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger

	recordCh  chan broker.Completion
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// Open opens (and creates if needed) the journal database at path and
// ensures required tables exist.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(pctx, `
CREATE TABLE IF NOT EXISTS command_journal (
  id           TEXT PRIMARY KEY,
  command      TEXT NOT NULL,
  status       TEXT NOT NULL,
  duration_ms  INTEGER NOT NULL,
  error        TEXT,
  created_at   TEXT NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap command_journal: %w", err)
	}
	if _, err := db.ExecContext(pctx,
		`CREATE INDEX IF NOT EXISTS idx_journal_created_at ON command_journal(created_at);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap journal index: %w", err)
	}

	j := &Journal{
		db:       db,
		logger:   log.WithComponent("journal"),
		recordCh: make(chan broker.Completion, backlogSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go j.drain()
	return j, nil
}

// Close flushes buffered completions and closes the underlying database.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		close(j.stopCh)
	})
	<-j.doneCh
	return j.db.Close()
}

// Record inserts one completion row.
func (j *Journal) Record(ctx context.Context, command, status string, duration time.Duration, cmdErr error) error {
	if command == "" {
		return fmt.Errorf("command is empty")
	}
	if status == "" {
		return fmt.Errorf("status is empty")
	}

	var errText any
	if cmdErr != nil {
		errText = cmdErr.Error()
	}

	_, err := j.db.ExecContext(ctx, `
INSERT INTO command_journal(id, command, status, duration_ms, error, created_at)
VALUES(?, ?, ?, ?, ?, ?);
`, uuid.NewString(), command, status, duration.Milliseconds(), errText,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert journal row: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT id, command, status, duration_ms, error, created_at
FROM command_journal
ORDER BY created_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			errText   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Command, &e.Status, &e.DurationMs, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		if errText.Valid {
			e.Error = errText.String
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Hook adapts the journal to the broker's completion hook. The hook runs
// on the broker's worker goroutine, so it only enqueues; the drain
// goroutine does the write. A full backlog drops the completion rather
// than block dispatch, and insert failures are logged, never surfaced:
// journaling must not fail a command.
func (j *Journal) Hook() broker.CompletionHook {
	return func(c broker.Completion) {
		select {
		case j.recordCh <- c:
		default:
			j.logger.Warn("journal backlog full, dropping completion", "command", c.Command)
		}
	}
}

// drain writes queued completions until Close, then flushes the backlog.
func (j *Journal) drain() {
	defer close(j.doneCh)
	for {
		select {
		case c := <-j.recordCh:
			j.writeCompletion(c)
		case <-j.stopCh:
			for {
				select {
				case c := <-j.recordCh:
					j.writeCompletion(c)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) writeCompletion(c broker.Completion) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.Record(ctx, c.Command, c.Status, c.Duration, c.Err); err != nil {
		j.logger.Error("failed to journal completion", "command", c.Command, "error", err)
	}
}
