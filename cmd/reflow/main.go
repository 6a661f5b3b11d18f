package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/entrhq/reflow/pkg/config"
	"github.com/entrhq/reflow/pkg/log"
)

func main() {
	cmd := &cli.Command{
		Name:                  "reflow",
		Usage:                 "Replay recorded browser flows with retry, auth recovery, and rollback scoring",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the engine configuration file",
				Value:   "",
				Sources: cli.EnvVars("REFLOW_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Override the data directory (flows, runs, versions, artifacts)",
				Value:   "",
				Sources: cli.EnvVars("REFLOW_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			NewRunCommand(),
			NewBatchCommand(),
			NewValidateCommand(),
			NewVersionsCommand(),
			NewRollbackCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the config file with command-line overrides and
// initializes logging.
func loadConfig(command *cli.Command) (config.Config, error) {
	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return cfg, err
	}
	if dir := command.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if level := command.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	log.Setup(cfg.LogLevel)
	return cfg, nil
}
