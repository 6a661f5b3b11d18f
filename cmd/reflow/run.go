package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/entrhq/reflow/pkg/browser"
	"github.com/entrhq/reflow/pkg/executor"
	"github.com/entrhq/reflow/pkg/log"
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Replay one stored flow",
		ArgsUsage: "<flow-name>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "Run parameter as key=value (repeatable), substituted into {{key}} placeholders",
			},
			&cli.BoolFlag{
				Name:  "headed",
				Usage: "Launch the browser with a visible window",
			},
			&cli.StringFlag{
				Name:  "attach",
				Usage: "CDP endpoint of an already running browser to attach to",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			name := command.Args().First()
			if name == "" {
				return fmt.Errorf("usage: reflow run <flow-name>")
			}

			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			params, err := parseParams(command.StringSlice("param"))
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

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cookies, err := s.cookies.Cookies(name)
			if err != nil {
				return err
			}

			session, err := browser.NewSession(ctx, sessionOptions(cfg, command, cookies))
			if err != nil {
				return err
			}
			driver := browser.NewDriver(session, cfg.SelectorTimeout())

			opts := runnerOptions(cfg, s, newLoginFlowRecoverer(s.flows, driver))
			result := executor.NewRunner(driver, opts).Run(ctx, f, params)

			logger := log.WithComponent("cli")

			// A successful run refreshes the cookie jar so the next run
			// starts authenticated.
			if result.Succeeded() {
				if fresh, err := session.Cookies(); err != nil {
					logger.Warn("could not read cookies back", "error", err)
				} else if err := s.cookies.SaveCookies(name, fresh); err != nil {
					logger.Warn("could not persist cookies", "error", err)
				}
			}

			if err := session.Close(fmt.Sprintf("%s-%s", name, result.RunID)); err != nil {
				logger.Warn("session close", "error", err)
			}

			fmt.Print(renderResult(result))
			if !result.Succeeded() {
				return fmt.Errorf("flow %q did not complete", name)
			}
			return nil
		},
	}
}
