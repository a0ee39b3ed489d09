package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one threadbench subcommand: its flags, its help text, and the
// function that does the work.
type Command struct {
	// Flags are parsed up to the first positional argument. Everything from
	// there on is handed to Exec as is, so "run case1 ./bench --size 100"
	// forwards "--size 100" instead of rejecting it.
	Flags *flag.FlagSet

	// Usage starts with the command name, e.g. "history [flags]".
	Usage string

	// Short appears next to the command in the top-level listing.
	Short string

	// Long is the body of "threadbench <command> --help". Short is used when empty.
	Long string

	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name is the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine is the command's row in the top-level usage listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-48s %s", c.Usage, c.Short)
}

// PrintHelp writes the command's usage, description and flag table.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: threadbench", c.Usage)
	o.Println()

	if c.Long != "" {
		o.Println(c.Long)
	} else {
		o.Println(c.Short)
	}

	if c.Flags == nil || !c.Flags.HasFlags() {
		return
	}

	var table strings.Builder

	c.Flags.SetOutput(&table)
	c.Flags.PrintDefaults()
	c.Flags.SetOutput(&strings.Builder{})

	o.Println()
	o.Println("Flags:")
	o.Printf("%s", table.String())
}

// Run parses args and calls Exec, returning the exit code. A flag error
// prints the message and the command's help to stderr.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})
	c.Flags.SetInterspersed(false)

	err := c.Flags.Parse(args)

	switch {
	case errors.Is(err, flag.ErrHelp):
		c.PrintHelp(o)

		return 0
	case err != nil:
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(NewIO(o.errOut, o.errOut))

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}
