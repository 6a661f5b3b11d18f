package main

import (
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/entrhq/reflow/pkg/browser"
	"github.com/entrhq/reflow/pkg/config"
	"github.com/entrhq/reflow/pkg/executor"
	"github.com/entrhq/reflow/pkg/flow"
	"github.com/entrhq/reflow/pkg/retry"
	"github.com/entrhq/reflow/pkg/telemetry"
	"github.com/entrhq/reflow/pkg/vault"
)

// stores bundles the engine's on-disk areas, all rooted under DataDir.
type stores struct {
	flows    *flow.Store
	runLogs  *telemetry.RunLogStore
	versions *telemetry.VersionStore
	cookies  *vault.FileCookieStore
}

func openStores(cfg config.Config) (*stores, error) {
	flows, err := flow.NewStore(cfg.FlowsDir())
	if err != nil {
		return nil, err
	}
	runLogs, err := telemetry.NewRunLogStore(cfg.RunsDir())
	if err != nil {
		return nil, err
	}
	versions, err := telemetry.NewVersionStore(cfg.VersionsDir())
	if err != nil {
		return nil, err
	}
	cookies, err := vault.NewFileCookieStore(cfg.CookiesDir())
	if err != nil {
		return nil, err
	}
	return &stores{flows: flows, runLogs: runLogs, versions: versions, cookies: cookies}, nil
}

// sessionOptions translates config and per-command overrides into browser
// session options. Cookies seed the context before the first navigation.
func sessionOptions(cfg config.Config, command *cli.Command, cookies []vault.Cookie) browser.SessionOptions {
	headless := cfg.Headless
	if command.Bool("headed") {
		headless = false
	}
	attach := cfg.AttachEndpoint
	if endpoint := command.String("attach"); endpoint != "" {
		attach = endpoint
	}
	return browser.SessionOptions{
		Headless:       headless,
		AttachEndpoint: attach,
		ArtifactsDir:   cfg.ArtifactsDir(),
		Cookies:        cookies,
	}
}

// runnerOptions wires the stores and retry budget into executor options.
func runnerOptions(cfg config.Config, s *stores, recoverer *loginFlowRecoverer) executor.Options {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.StepMaxRetries
	opts := executor.Options{
		RunLogs:  s.runLogs,
		Versions: s.versions,
		Retry:    retryCfg,
	}
	if recoverer != nil {
		opts.Recoverer = recoverer
	}
	return opts
}

// parseParams turns repeated key=value flags into a parameter map.
func parseParams(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}
