package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calvinalkan/threadbench/internal/bench"
)

// RunSummary is one run with its per-thread-count minimum.
type RunSummary struct {
	ID         string
	Label      string
	TestName   string
	Executable string
	Args       []string
	StartedAt  time.Time
	Finished   bool
	Configs    []ConfigSummary // in the order they ran
}

// ConfigSummary condenses one configuration of a run.
type ConfigSummary struct {
	Threads int
	Min     time.Duration
	Trials  int
	Failed  int
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.sql.QueryContext(ctx, `
		SELECT id, label, test_name, executable, args, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var runs []RunSummary

	for rows.Next() {
		var (
			run        RunSummary
			argsJSON   string
			startedNs  int64
			finishedNs sql.NullInt64
		)

		err = rows.Scan(&run.ID, &run.Label, &run.TestName, &run.Executable, &argsJSON, &startedNs, &finishedNs)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		err = json.Unmarshal([]byte(argsJSON), &run.Args)
		if err != nil {
			return nil, fmt.Errorf("decode args of run %s: %w", run.ID, err)
		}

		run.StartedAt = time.Unix(0, startedNs)
		run.Finished = finishedNs.Valid

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		runs[i].Configs, err = s.configSummaries(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return runs, nil
}

func (s *Store) configSummaries(ctx context.Context, runID string) ([]ConfigSummary, error) {
	rows, err := s.sql.QueryContext(ctx, `
		SELECT threads, MIN(elapsed_ns), COUNT(*), SUM(CASE WHEN exit_code != 0 OR timed_out THEN 1 ELSE 0 END)
		FROM trials
		WHERE run_id = ?
		GROUP BY position
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query configs of run %s: %w", runID, err)
	}

	defer func() { _ = rows.Close() }()

	var configs []ConfigSummary

	for rows.Next() {
		var (
			cfg   ConfigSummary
			minNs int64
		)

		err = rows.Scan(&cfg.Threads, &minNs, &cfg.Trials, &cfg.Failed)
		if err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}

		cfg.Min = time.Duration(minNs)
		configs = append(configs, cfg)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate configs: %w", err)
	}

	return configs, nil
}

// Trials returns every trial of a run in the order they ran.
func (s *Store) Trials(ctx context.Context, runID string) ([]bench.Trial, error) {
	rows, err := s.sql.QueryContext(ctx, `
		SELECT threads, rep, elapsed_ns, user_ns, system_ns, exit_code, timed_out
		FROM trials
		WHERE run_id = ?
		ORDER BY position, rep`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials of run %s: %w", runID, err)
	}

	defer func() { _ = rows.Close() }()

	var trials []bench.Trial

	for rows.Next() {
		var (
			t                           bench.Trial
			elapsedNs, userNs, systemNs int64
		)

		err = rows.Scan(&t.Threads, &t.Rep, &elapsedNs, &userNs, &systemNs, &t.ExitCode, &t.TimedOut)
		if err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}

		t.Elapsed = time.Duration(elapsedNs)
		t.UserTime = time.Duration(userNs)
		t.SystemTime = time.Duration(systemNs)
		trials = append(trials, t)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}

	return trials, nil
}
