package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/entrhq/reflow/pkg/telemetry"
)

func NewRollbackCommand() *cli.Command {
	return &cli.Command{
		Name:      "rollback",
		Usage:     "Restore the highest-scoring script version as active",
		ArgsUsage: "<flow-name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show the version that would be restored without switching",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			name := command.Args().First()
			if name == "" {
				return fmt.Errorf("usage: reflow rollback <flow-name>")
			}

			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			store, err := telemetry.NewVersionStore(cfg.VersionsDir())
			if err != nil {
				return err
			}

			if command.Bool("dry-run") {
				best, err := store.BestVersion(name)
				if err != nil {
					return err
				}
				fmt.Printf("would restore v%d %s\n",
					best.Version,
					dimStyle.Render(fmt.Sprintf("(rate %.2f over %d runs, %s)", best.SuccessRate, best.RunCount, best.ScriptPath)),
				)
				return nil
			}

			restored, err := store.Rollback(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s v%d %s\n",
				passStyle.Render("restored"),
				restored.Version,
				dimStyle.Render(fmt.Sprintf("(rate %.2f over %d runs, %s)", restored.SuccessRate, restored.RunCount, restored.ScriptPath)),
			)
			return nil
		},
	}
}
