package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/calvinalkan/threadbench/internal/bench"
	"github.com/calvinalkan/threadbench/internal/config"
	"github.com/calvinalkan/threadbench/internal/history"

	flag "github.com/spf13/pflag"
)

// RunCmd returns the run command.
func RunCmd(s *session) *Command {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringP("label", "l", "", "Label for every result line (prompted for when absent)")
	fs.IntSliceP("threads", "t", nil, "Thread counts to benchmark, in order (default 1,2,4,8)")
	fs.IntP("reps", "n", 0, "Repetitions per thread count (default 5)")
	fs.String("env-var", "", "Environment variable carrying the thread count (default OMP_NUM_THREADS)")
	fs.String("results", "", "Results log `path` (default results.txt)")
	fs.Duration("timeout", 0, "Kill a trial after this long, 0 disables")
	fs.String("history", "", "Also record trials in this SQLite `database`")
	fs.Bool("strict", false, "Exit 1 when any trial fails or times out")

	return &Command{
		Flags: fs,
		Usage: "run [flags] <test_dir> <executable> [args...]",
		Short: "Benchmark an executable under each thread count",
		Long: `Copy <executable> into <test_dir>, then run it from there once per repetition
for every thread count, with the thread count exported in OMP_NUM_THREADS.
Remaining arguments are passed to the executable unchanged.

For each thread count the fastest time and the list of all times are appended
to the results log, followed by a "-----" line at the end of the run.
A trial that exits non-zero is still timed and counted; it is reported as a
warning on stderr.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execRun(ctx, o, s, fs, args)
		},
	}
}

func runOverrides(fs *flag.FlagSet) config.Overrides {
	var o config.Overrides

	o.Threads, _ = fs.GetIntSlice("threads")
	o.Repetitions, _ = fs.GetInt("reps")
	o.ThreadEnv, _ = fs.GetString("env-var")
	o.ResultsFile, _ = fs.GetString("results")
	o.HistoryDB, _ = fs.GetString("history")

	if fs.Changed("timeout") {
		timeout, _ := fs.GetDuration("timeout")
		o.TrialTimeout = &timeout
	}

	return o
}

func execRun(ctx context.Context, o *IO, s *session, fs *flag.FlagSet, args []string) error {
	if len(args) < 2 {
		return errRunArgs
	}

	testDir, executable, forwarded := args[0], args[1], args[2:]

	if fs.Changed("reps") {
		if reps, _ := fs.GetInt("reps"); reps < 1 {
			return fmt.Errorf("%w: %d", config.ErrRepetitionsInvalid, reps)
		}
	}

	cfg, err := s.loadConfig(runOverrides(fs))
	if err != nil {
		return err
	}

	strict, _ := fs.GetBool("strict")
	o.SetStrict(strict)

	testDirAbs := resolvePath(cfg.EffectiveCwd, testDir)
	executableAbs := resolvePath(cfg.EffectiveCwd, executable)

	err = bench.CheckTarget(testDirAbs, executableAbs)
	if err != nil {
		return err
	}

	label, _ := fs.GetString("label")
	if !fs.Changed("label") {
		label, err = readLabel(s.stdin, o.Out(), s.env)
		if err != nil {
			return err
		}
	}

	var store *history.Store

	if cfg.HistoryDBAbs != "" {
		store, err = history.Open(ctx, cfg.HistoryDBAbs)
		if err != nil {
			return err
		}

		defer func() { _ = store.Close() }()
	}

	log, err := bench.OpenResultsLog(ctx, cfg.ResultsFileAbs)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			o.Warn("closing %s: %v", log.Path(), closeErr)
		}
	}()

	binary, err := bench.Install(executableAbs, testDirAbs)
	if err != nil {
		return err
	}

	plan := bench.Plan{
		Label:       label,
		TestName:    testDir,
		Dir:         testDirAbs,
		Binary:      binary,
		Args:        forwarded,
		Threads:     cfg.Threads,
		Repetitions: cfg.Repetitions,
		ThreadEnv:   cfg.ThreadEnv,
		BaseEnv:     s.env,
		ExtraEnv:    cfg.Env,
		Timeout:     cfg.Timeout,
	}

	runner := &bench.Runner{
		Executor: bench.ProcessExecutor{},
		Progress: o.Out(),
		Log:      log,
	}

	if store != nil {
		run, beginErr := store.Begin(ctx, history.RunInfo{
			Label:      plan.Label,
			TestName:   plan.TestName,
			Executable: executable,
			Args:       plan.Args,
			ThreadEnv:  plan.ThreadEnv,
		})
		if beginErr != nil {
			return beginErr
		}

		runner.Recorder = run
	}

	report, err := runner.Run(ctx, plan)

	for _, failed := range report.Failures {
		o.Warn("%s", bench.FailureLine(failed))
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted: %w", err)
		}

		return err
	}

	return nil
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(root, path)
}
