package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calvinalkan/threadbench/internal/bench"
	"github.com/calvinalkan/threadbench/internal/config"
	"github.com/calvinalkan/threadbench/internal/history"

	flag "github.com/spf13/pflag"
)

const defaultHistoryLimit = 10

// HistoryCmd returns the history command.
func HistoryCmd(s *session) *Command {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.IntP("limit", "n", defaultHistoryLimit, "Maximum runs to show")
	fs.String("history", "", "SQLite history `database` (default from config)")

	return &Command{
		Flags: fs,
		Usage: "history [flags]",
		Short: "List recent runs from the history database",
		Long:  "List recent runs, newest first, with the fastest time per thread count.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execHistory(ctx, o, s, fs)
		},
	}
}

func execHistory(ctx context.Context, o *IO, s *session, fs *flag.FlagSet) error {
	limit, _ := fs.GetInt("limit")
	if limit < 0 {
		return errLimitNegative
	}

	dbPath, _ := fs.GetString("history")

	cfg, err := s.loadConfig(config.Overrides{HistoryDB: dbPath})
	if err != nil {
		return err
	}

	if cfg.HistoryDBAbs == "" {
		return errHistoryDisabled
	}

	store, err := history.Open(ctx, cfg.HistoryDBAbs)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	for _, run := range runs {
		o.Println(formatRunSummary(run))
	}

	return nil
}

// formatRunSummary renders one run on a single line:
//
//	2026-10-18T09:12:44Z 01929c3e-... trial-A, case1  1:0.412 2:0.221 4:0.130 8:0.129
func formatRunSummary(run history.RunSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s %s, %s ", run.StartedAt.UTC().Format(time.RFC3339), run.ID, run.Label, run.TestName)

	failed := 0

	for _, c := range run.Configs {
		fmt.Fprintf(&sb, " %d:%s", c.Threads, bench.Seconds(c.Min))

		failed += c.Failed
	}

	if failed > 0 {
		fmt.Fprintf(&sb, " failed=%d", failed)
	}

	if !run.Finished {
		sb.WriteString(" (incomplete)")
	}

	return sb.String()
}
