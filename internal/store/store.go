// Package store implements the relational workflow store from spec.md
// §4.5: schema migrations via github.com/pressly/goose/v3 over a
// modernc.org/sqlite (pure-Go, no cgo) database opened in WAL mode, so
// shared HPC filesystems without a C toolchain can still run it.
// Grounded on the teacher's go.mod dependency pair (goose + modernc
// sqlite) and on the behavioral shape of its test-only
// internal/database package (a file-per-run persistence layer,
// generalized here to relational rows).
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/jobweave/jobweave/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Sentinel errors from the error taxonomy in spec.md §7.3.
var (
	ErrSchemaMissing       = errors.New("schema missing")
	ErrLockTimeout         = errors.New("store lock timeout")
	ErrConstraintViolation = errors.New("store constraint violation")
	ErrNotFound            = errors.New("not found")
)

// Store is a handle onto the workflow database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, in WAL
// mode with a busy timeout so concurrent array-task writers retry
// instead of failing outright (spec.md §4.5 concurrency requirement).
// It does NOT run migrations: only CreateAll does, per spec.md's rule
// that schema initialization is invoked only by make/submit.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite single-writer discipline within this process
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// CreateAll runs pending goose migrations, creating the schema if
// absent (spec.md §4.5: "invoked only by the make and submit
// operations").
func (s *Store) CreateAll(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// requireSchema fails fast with ErrSchemaMissing when the workflow
// table does not exist, per spec.md §4.5/§7.3 ("all other operations
// fail fast if the schema is absent").
func (s *Store) requireSchema(ctx context.Context) error {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='workflow'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSchemaMissing
	}
	if err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	return nil
}

// classifyErr maps a sqlite driver error to one of the taxonomy
// sentinels in spec.md §7.3.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case contains(msg, "database is locked"), contains(msg, "busy"):
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	case contains(msg, "UNIQUE constraint"), contains(msg, "FOREIGN KEY constraint"):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	default:
		return err
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

// SetTaskStart records a task's start timestamp. Idempotent with
// respect to retries keyed by (task_id, "start") per spec.md §4.5: a
// retried call that finds the event already recorded is a no-op, not
// an error.
func (s *Store) SetTaskStart(ctx context.Context, taskID int64, ts time.Time) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_event (task_id, event) VALUES (?, 'start')`, taskID)
		if err != nil {
			return classifyErr(err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil // already recorded; idempotent no-op
		}
		_, err = tx.ExecContext(ctx, `UPDATE task SET status = ?, started_at = ? WHERE id = ?`, models.TaskRunning, ts, taskID)
		return classifyErr(err)
	})
}

// SetTaskEnd records a task's end timestamp and exit status,
// idempotent under the same (task_id, "end") retry key. A task that is
// already terminal is left unchanged.
func (s *Store) SetTaskEnd(ctx context.Context, taskID int64, ts time.Time, exitCode int) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var from models.TaskStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM task WHERE id = ?`, taskID).Scan(&from); err != nil {
			return classifyErr(err)
		}
		if from.Terminal() {
			return nil // already complete or failed (e.g. killed): a late end event does not reopen it
		}
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_event (task_id, event) VALUES (?, 'end')`, taskID)
		if err != nil {
			return classifyErr(err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil
		}
		status := models.TaskComplete
		if exitCode != 0 {
			status = models.TaskFailed
		}
		_, err = tx.ExecContext(ctx, `UPDATE task SET status = ?, ended_at = ?, exit_code = ? WHERE id = ?`, status, ts, exitCode, taskID)
		return classifyErr(err)
	})
}

// withTx runs fn inside a short transaction, the pattern spec.md §4.5
// requires for task-state writes under concurrent array-task workers.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyErr(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return classifyErr(tx.Commit())
}
