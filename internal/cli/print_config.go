package cli

import (
	"context"

	"github.com/calvinalkan/threadbench/internal/config"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			cfg, err := s.loadConfig(config.Overrides{})
			if err != nil {
				return err
			}

			return execPrintConfig(o, &cfg)
		},
	}
}

func execPrintConfig(o *IO, cfg *config.Config) error {
	formatted, err := config.Format(*cfg)
	if err != nil {
		return err
	}

	o.Println(formatted)
	o.Println("")
	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println("results_file=" + cfg.ResultsFileAbs)

	if cfg.HistoryDBAbs != "" {
		o.Println("history_db=" + cfg.HistoryDBAbs)
	}

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			o.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			o.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
