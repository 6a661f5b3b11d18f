package main

import (
	"context"
	"fmt"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/entrhq/reflow/pkg/telemetry"
)

func NewVersionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "versions",
		Usage:     "List a flow's recorded script versions with rollback scores",
		ArgsUsage: "<flow-name>",
		Action: func(ctx context.Context, command *cli.Command) error {
			name := command.Args().First()
			if name == "" {
				return fmt.Errorf("usage: reflow versions <flow-name>")
			}

			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			store, err := telemetry.NewVersionStore(cfg.VersionsDir())
			if err != nil {
				return err
			}

			versions, err := store.Versions(name)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Printf("no versions recorded for %s\n", name)
				return nil
			}
			active, err := store.Active(name)
			if err != nil {
				return err
			}

			now := time.Now()
			scores := make(map[int]float64, len(versions))
			for _, v := range versions {
				scores[v.Version] = telemetry.Score(v, now)
			}

			fmt.Print(renderVersions(versions, active, scores))
			return nil
		},
	}
}
