package bench

import (
	"fmt"
	"time"
)

// Plan describes one benchmark invocation.
type Plan struct {
	Label    string // Operator-supplied tag written on every summary line
	TestName string // Test directory as given on the command line, written verbatim
	Dir      string // Absolute test directory, used as the child's working directory
	Binary   string // Base name of the installed executable inside Dir
	Args     []string

	Threads     []int
	Repetitions int
	ThreadEnv   string            // Variable carrying the thread count to the child
	BaseEnv     map[string]string // Inherited environment
	ExtraEnv    map[string]string // Configured additions, applied before ThreadEnv
	Timeout     time.Duration     // Per-trial timeout, 0 disables
}

func (p Plan) validate() error {
	if p.Dir == "" || p.Binary == "" {
		return fmt.Errorf("%w: missing test directory or binary", ErrInvalidPlan)
	}

	if len(p.Threads) == 0 {
		return fmt.Errorf("%w: no thread counts", ErrInvalidPlan)
	}

	if p.Repetitions < 1 {
		return fmt.Errorf("%w: repetitions must be at least 1", ErrInvalidPlan)
	}

	if p.ThreadEnv == "" {
		return fmt.Errorf("%w: thread env var is empty", ErrInvalidPlan)
	}

	return nil
}

// Trial is one timed execution of the benchmarked binary.
type Trial struct {
	Threads    int
	Rep        int // 1-based
	Elapsed    time.Duration
	UserTime   time.Duration
	SystemTime time.Duration
	ExitCode   int // -1 when killed by a signal
	TimedOut   bool
	StderrTail string
}

// Failed reports whether the child did not exit cleanly.
// Failed trials still count as repetitions.
func (t Trial) Failed() bool {
	return t.ExitCode != 0 || t.TimedOut
}

// Result holds all trials of one thread-count configuration.
type Result struct {
	Threads int
	Trials  []Trial
}

// Min returns the fastest elapsed time. Zero for an empty result.
func (r Result) Min() time.Duration {
	if len(r.Trials) == 0 {
		return 0
	}

	fastest := r.Trials[0].Elapsed
	for _, t := range r.Trials[1:] {
		fastest = min(fastest, t.Elapsed)
	}

	return fastest
}

// Timings returns the elapsed times in trial order.
func (r Result) Timings() []time.Duration {
	out := make([]time.Duration, len(r.Trials))
	for i, t := range r.Trials {
		out[i] = t.Elapsed
	}

	return out
}

// Report is what a completed run produced.
type Report struct {
	Results  []Result
	Failures []Trial
}
