package bench

import (
	"context"
	"fmt"
	"io"
)

// Recorder receives each configuration's result as soon as its lines are in
// the log, and is told when the run's separator has been written.
type Recorder interface {
	RecordResult(ctx context.Context, res Result) error
	Finish(ctx context.Context) error
}

// Runner executes a [Plan].
type Runner struct {
	Executor Executor
	Progress io.Writer // Progress lines, one per trial
	Log      io.Writer // Results log
	Recorder Recorder  // Optional
}

// Run executes every configuration of plan in order and appends its lines to
// the results log. On error the configuration in progress writes nothing and
// the returned report holds the configurations completed so far.
func (r *Runner) Run(ctx context.Context, plan Plan) (Report, error) {
	var report Report

	err := plan.validate()
	if err != nil {
		return report, err
	}

	for _, threads := range plan.Threads {
		res, failures, runErr := r.runConfig(ctx, plan, threads)
		if runErr != nil {
			return report, runErr
		}

		report.Failures = append(report.Failures, failures...)

		err = r.writeLines(SummaryLine(plan.Label, plan.TestName, res), DiagnosticLine(res))
		if err != nil {
			return report, err
		}

		report.Results = append(report.Results, res)

		if r.Recorder != nil {
			err = r.Recorder.RecordResult(ctx, res)
			if err != nil {
				return report, fmt.Errorf("recording %d thread(s): %w", threads, err)
			}
		}
	}

	err = r.writeLines(Separator)
	if err != nil {
		return report, err
	}

	if r.Recorder != nil {
		err = r.Recorder.Finish(ctx)
		if err != nil {
			return report, fmt.Errorf("finishing history: %w", err)
		}
	}

	return report, nil
}

func (r *Runner) runConfig(ctx context.Context, plan Plan, threads int) (Result, []Trial, error) {
	res := Result{Threads: threads, Trials: make([]Trial, 0, plan.Repetitions)}

	var failures []Trial

	env := ChildEnv(plan.BaseEnv, plan.ExtraEnv, plan.ThreadEnv, threads)

	for rep := 1; rep <= plan.Repetitions; rep++ {
		r.progress(ProgressLine(plan.TestName, rep, plan.Repetitions, threads))

		out, err := r.Executor.Execute(ctx, Invocation{
			Dir:     plan.Dir,
			Binary:  plan.Binary,
			Args:    plan.Args,
			Env:     env,
			Timeout: plan.Timeout,
		})
		if err != nil {
			return Result{}, nil, fmt.Errorf("trial %d/%d with %d thread(s): %w", rep, plan.Repetitions, threads, err)
		}

		trial := Trial{
			Threads:    threads,
			Rep:        rep,
			Elapsed:    out.Elapsed,
			UserTime:   out.UserTime,
			SystemTime: out.SystemTime,
			ExitCode:   out.ExitCode,
			TimedOut:   out.TimedOut,
			StderrTail: out.StderrTail,
		}

		res.Trials = append(res.Trials, trial)

		if trial.Failed() {
			failures = append(failures, trial)
		}
	}

	return res, failures, nil
}

func (r *Runner) progress(line string) {
	if r.Progress == nil {
		return
	}

	_, _ = fmt.Fprintln(r.Progress, line)
}

func (r *Runner) writeLines(lines ...string) error {
	for _, line := range lines {
		_, err := io.WriteString(r.Log, line+"\n")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLogWrite, err)
		}
	}

	return nil
}
