// Package history keeps every trial of every run in a SQLite database so
// results can be compared across invocations without parsing the text log.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/calvinalkan/threadbench/internal/bench"
)

const schemaVersion = 1

// Error variables for the history store.
var (
	ErrPathEmpty          = errors.New("history path is empty")
	ErrUnsupportedVersion = errors.New("unsupported history schema version")
	ErrRunFinished        = errors.New("run already finished")
)

// Store is an open history database.
type Store struct {
	sql *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, ErrPathEmpty
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("open history: ping: %w", err)
	}

	err = prepare(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("open history: %w", err)
	}

	return &Store{sql: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.sql.Close()
}

func prepare(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}

	for _, stmt := range pragmas {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}

	var version int

	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	switch version {
	case schemaVersion:
		return nil
	case 0:
		return createSchema(ctx, db)
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema txn: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			test_name TEXT NOT NULL,
			executable TEXT NOT NULL,
			args TEXT NOT NULL,
			thread_env TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER
		) WITHOUT ROWID`,
		`CREATE TABLE IF NOT EXISTS trials (
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			threads INTEGER NOT NULL,
			rep INTEGER NOT NULL,
			elapsed_ns INTEGER NOT NULL,
			user_ns INTEGER NOT NULL,
			system_ns INTEGER NOT NULL,
			exit_code INTEGER NOT NULL,
			timed_out INTEGER NOT NULL,
			PRIMARY KEY (run_id, position, rep)
		) WITHOUT ROWID`,
		"CREATE INDEX IF NOT EXISTS idx_runs_test ON runs(test_name, started_at)",
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}

	for _, stmt := range statements {
		_, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("apply schema statement %q: %w", stmt, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit schema txn: %w", err)
	}

	return nil
}

// RunInfo describes a run being started.
type RunInfo struct {
	Label      string
	TestName   string
	Executable string
	Args       []string
	ThreadEnv  string
}

// Run records one invocation. It implements [bench.Recorder].
type Run struct {
	store    *Store
	id       uuid.UUID
	position int // configurations recorded so far
	finished bool
}

var _ bench.Recorder = (*Run)(nil)

// Begin inserts a new run and returns its recorder.
func (s *Store) Begin(ctx context.Context, info RunInfo) (*Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	args := info.Args
	if args == nil {
		args = []string{}
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}

	_, err = s.sql.ExecContext(ctx, `
		INSERT INTO runs (id, label, test_name, executable, args, thread_env, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), info.Label, info.TestName, info.Executable, string(argsJSON), info.ThreadEnv,
		s.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return &Run{store: s, id: id}, nil
}

// ID returns the run's identifier.
func (r *Run) ID() string {
	return r.id.String()
}

// RecordResult stores all trials of one configuration in a single transaction.
// Configurations keep the order in which they were recorded.
func (r *Run) RecordResult(ctx context.Context, res bench.Result) error {
	if r.finished {
		return ErrRunFinished
	}

	tx, err := r.store.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trials txn: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO trials (run_id, position, threads, rep, elapsed_ns, user_ns, system_ns, exit_code, timed_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trial insert: %w", err)
	}

	defer func() { _ = insert.Close() }()

	for _, t := range res.Trials {
		_, err = insert.ExecContext(ctx, r.id.String(), r.position, t.Threads, t.Rep,
			int64(t.Elapsed), int64(t.UserTime), int64(t.SystemTime), t.ExitCode, t.TimedOut)
		if err != nil {
			return fmt.Errorf("insert trial %d/%d: %w", t.Threads, t.Rep, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit trials txn: %w", err)
	}

	r.position++

	return nil
}

// Finish marks the run complete.
func (r *Run) Finish(ctx context.Context) error {
	if r.finished {
		return ErrRunFinished
	}

	_, err := r.store.sql.ExecContext(ctx, "UPDATE runs SET finished_at = ? WHERE id = ?",
		r.store.now().UnixNano(), r.id.String())
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	r.finished = true

	return nil
}
