package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/entrhq/reflow/pkg/browser"
	"github.com/entrhq/reflow/pkg/executor"
)

func NewBatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Aliases:   []string{"b"},
		Usage:     "Replay one flow once per parameter set, with bounded parallelism",
		ArgsUsage: "<flow-name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "params-file",
				Usage:    "JSON file holding an array of parameter objects, one run each",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "parallelism",
				Aliases: []string{"n"},
				Usage:   "Maximum runs in flight; each holds its own browser context",
				Value:   2,
			},
			&cli.BoolFlag{
				Name:  "headed",
				Usage: "Launch browsers with visible windows",
			},
			&cli.StringFlag{
				Name:  "attach",
				Usage: "CDP endpoint of an already running browser to attach to",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			name := command.Args().First()
			if name == "" {
				return fmt.Errorf("usage: reflow batch <flow-name> --params-file sets.json")
			}

			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			paramSets, err := loadParamSets(command.String("params-file"))
			if err != nil {
				return err
			}

			s, err := openStores(cfg)
			if err != nil {
				return err
			}
			f, err := s.flows.Load(name)
			if err != nil {
				return err
			}
			cookies, err := s.cookies.Cookies(name)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sessionOpts := sessionOptions(cfg, command, cookies)

			// Each run gets a full session of its own; the recoverer is
			// built per driver so recovery stays inside that session, and
			// the trace artifact is named per run.
			var newRunner executor.RunnerFactory = func(ctx context.Context, run int) (*executor.Runner, func(), error) {
				session, err := browser.NewSession(ctx, sessionOpts)
				if err != nil {
					return nil, nil, err
				}
				driver := browser.NewDriver(session, cfg.SelectorTimeout())
				opts := runnerOptions(cfg, s, newLoginFlowRecoverer(s.flows, driver))
				cleanup := func() { _ = session.Close(fmt.Sprintf("%s-batch-%d", name, run)) }
				return executor.NewRunner(driver, opts), cleanup, nil
			}

			batch, err := executor.RunBatch(ctx, f, paramSets, command.Int("parallelism"), newRunner)
			if err != nil {
				return err
			}

			fmt.Print(renderBatch(batch))
			if batch.Failed > 0 {
				return fmt.Errorf("%d of %d runs failed", batch.Failed, batch.Total)
			}
			return nil
		},
	}
}

func loadParamSets(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameter sets: %w", err)
	}
	var sets []map[string]string
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parse parameter sets %s: %w", path, err)
	}
	return sets, nil
}
