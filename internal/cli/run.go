// Package cli implements the threadbench command line.
package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/calvinalkan/threadbench/internal/config"

	flag "github.com/spf13/pflag"
)

// session carries what every command needs from the invocation.
type session struct {
	stdin      io.Reader
	env        map[string]string
	workDir    string // -C/--cwd, empty means process cwd
	configPath string // -c/--config
}

func (s *session) loadConfig(overrides config.Overrides) (config.Config, error) {
	return config.Load(config.LoadInput{
		WorkDirOverride: s.workDir,
		ConfigPath:      s.configPath,
		Overrides:       overrides,
		Env:             s.env,
	})
}

// Run is the main entry point. Returns exit code.
//
// args includes the program name. env is the process environment; it is
// inherited by benchmarked children and consulted for config locations.
func Run(ctx context.Context, stdin io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	o := NewIO(out, errOut)

	globals := flag.NewFlagSet("threadbench", flag.ContinueOnError)
	globals.SetOutput(&strings.Builder{})
	globals.SetInterspersed(false)

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)

	s := &session{stdin: stdin, env: env, workDir: *workDir, configPath: *configPath}
	commands := []*Command{RunCmd(s), HistoryCmd(s), PrintConfigCmd(s)}

	if err != nil && !errors.Is(err, flag.ErrHelp) {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		printUsage(NewIO(errOut, errOut), globals, commands)

		return 1
	}

	rest := globals.Args()
	if *help || errors.Is(err, flag.ErrHelp) || len(rest) == 0 {
		printUsage(o, globals, commands)

		return 0
	}

	name := rest[0]
	for _, cmd := range commands {
		if cmd.Name() != name {
			continue
		}

		code := cmd.Run(ctx, o, rest[1:])

		return max(code, o.Finish())
	}

	o.ErrPrintln("error: unknown command:", name)
	o.ErrPrintln()
	printUsage(NewIO(errOut, errOut), globals, commands)

	return 1
}

func printUsage(o *IO, globals *flag.FlagSet, commands []*Command) {
	o.Println("threadbench - run an executable under several thread counts and log the fastest times")
	o.Println()
	o.Println("Usage: threadbench [global flags] <command> [flags] [args]")
	o.Println()
	o.Println("Global flags:")

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})
	o.Printf("%s", buf.String())

	if len(commands) == 0 {
		return
	}

	o.Println()
	o.Println("Commands:")

	for _, cmd := range commands {
		o.Println(cmd.HelpLine())
	}
}
