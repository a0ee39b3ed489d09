package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	// stderrTailBytes is how much of a child's stderr is kept for warnings.
	stderrTailBytes = 512

	// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
	// after the child itself has exited or been killed.
	waitDelay = 2 * time.Second
)

// Invocation is one trial's process launch.
type Invocation struct {
	Dir     string   // Working directory of the child
	Binary  string   // Base name of the executable inside Dir, run as ./<Binary>
	Args    []string // Forwarded verbatim
	Env     []string // Complete child environment, KEY=VALUE
	Timeout time.Duration
}

// Outcome is what a finished child reported.
type Outcome struct {
	Elapsed    time.Duration
	UserTime   time.Duration
	SystemTime time.Duration
	ExitCode   int
	TimedOut   bool
	StderrTail string
}

// Executor launches a trial and blocks until it ends.
//
// A child that runs and exits with any status is not an error. Errors are
// reserved for children that could not be started and for ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) (Outcome, error)
}

// ProcessExecutor runs trials as real child processes.
type ProcessExecutor struct{}

// Execute implements [Executor].
func (ProcessExecutor) Execute(ctx context.Context, inv Invocation) (Outcome, error) {
	runCtx := ctx

	if inv.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	// Resolve against Dir ourselves; argv[0] stays ./<name> as the child expects.
	cmd := exec.CommandContext(runCtx, filepath.Join(inv.Dir, inv.Binary), inv.Args...)
	cmd.Args[0] = "./" + inv.Binary
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.WaitDelay = waitDelay

	tail := &tailBuffer{limit: stderrTailBytes}
	cmd.Stdout = io.Discard
	cmd.Stderr = tail

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if cmd.ProcessState == nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}

		return Outcome{}, fmt.Errorf("%w: %s: %w", ErrStartFailed, inv.Binary, runErr)
	}

	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) && !errors.Is(runErr, exec.ErrWaitDelay) {
		return Outcome{}, fmt.Errorf("waiting for %s: %w", inv.Binary, runErr)
	}

	state := cmd.ProcessState

	return Outcome{
		Elapsed:    elapsed,
		UserTime:   state.UserTime(),
		SystemTime: state.SystemTime(),
		ExitCode:   state.ExitCode(),
		TimedOut:   inv.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded),
		StderrTail: tail.String(),
	}, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)

	if len(p) >= t.limit {
		t.buf = append(t.buf[:0], p[len(p)-t.limit:]...)

		return n, nil
	}

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}

	return n, nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
