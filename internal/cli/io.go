package cli

import (
	"fmt"
	"io"
)

// IO handles command output and collects warnings for the end of the run.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	strict   bool
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Out returns the stdout writer, for components that stream their own output.
func (o *IO) Out() io.Writer {
	return o.out
}

// Warn records a warning. Warnings never suppress normal output; they are
// printed to stderr by [IO.Finish], after everything else.
func (o *IO) Warn(format string, a ...any) {
	o.warnings = append(o.warnings, fmt.Sprintf(format, a...))
}

// SetStrict makes [IO.Finish] report failure when any warning was recorded.
func (o *IO) SetStrict(strict bool) {
	o.strict = strict
}

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish prints warnings to stderr and returns the exit code they imply:
// 1 in strict mode with warnings, 0 otherwise.
func (o *IO) Finish() int {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if o.strict && len(o.warnings) > 0 {
		return 1
	}

	return 0
}
