package bench

import (
	"fmt"
	"strings"
	"time"
)

// Separator terminates the block of lines written by one run.
const Separator = "-----"

// Seconds formats d as seconds with three decimals.
func Seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// SummaryLine returns "<label>, <test>, <threads>, <min>".
func SummaryLine(label, testName string, res Result) string {
	return fmt.Sprintf("%s, %s, %d, %s", label, testName, res.Threads, Seconds(res.Min()))
}

// DiagnosticLine returns the comment line listing every timing of res,
// rendered as a quoted list: "# ['0.105', '0.101']".
func DiagnosticLine(res Result) string {
	var sb strings.Builder

	sb.WriteString("# [")

	for i, d := range res.Timings() {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString("'")
		sb.WriteString(Seconds(d))
		sb.WriteString("'")
	}

	sb.WriteString("]")

	return sb.String()
}

// ProgressLine is printed before every trial.
func ProgressLine(testName string, rep, reps, threads int) string {
	return fmt.Sprintf("Running test %s... %d/%d %d thread(s)", testName, rep, reps, threads)
}

// FailureLine describes a failed trial for warnings.
func FailureLine(t Trial) string {
	var what string

	switch {
	case t.TimedOut:
		what = "timed out after " + Seconds(t.Elapsed) + "s"
	case t.ExitCode < 0:
		what = "killed by signal"
	default:
		what = fmt.Sprintf("exited with status %d", t.ExitCode)
	}

	line := fmt.Sprintf("trial %d with %d thread(s) %s", t.Rep, t.Threads, what)

	if tail := strings.TrimSpace(t.StderrTail); tail != "" {
		line += ": " + lastLine(tail)
	}

	return line
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}

	return s
}
