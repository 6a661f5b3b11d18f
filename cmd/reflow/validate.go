package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/entrhq/reflow/pkg/flow"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a flow document without running it",
		ArgsUsage: "<flow-name | path/to/flow.json>",
		Action: func(ctx context.Context, command *cli.Command) error {
			target := command.Args().First()
			if target == "" {
				return fmt.Errorf("usage: reflow validate <flow-name | path>")
			}

			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}

			var f *flow.Flow
			if strings.ContainsAny(target, "/\\") || strings.HasSuffix(target, ".json") {
				data, err := os.ReadFile(target)
				if err != nil {
					return err
				}
				if f, err = flow.Parse(data); err != nil {
					return fmt.Errorf("%s: %w", target, err)
				}
			} else {
				store, err := flow.NewStore(cfg.FlowsDir())
				if err != nil {
					return err
				}
				if f, err = store.Load(target); err != nil {
					return err
				}
			}

			fmt.Printf("%s  %s  %s\n",
				passStyle.Render("VALID"),
				f.Name,
				dimStyle.Render(fmt.Sprintf("%d steps, script version %d", len(f.Steps), f.Metadata.ScriptVersion)),
			)
			return nil
		},
	}
}
