package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/entrhq/reflow/pkg/executor"
	"github.com/entrhq/reflow/pkg/flow"
	"github.com/entrhq/reflow/pkg/log"
)

// loginFlowRecoverer re-authenticates by replaying the companion login
// flow, stored as "<flow>-login". When no login flow exists it falls back
// to a bare navigation to the recorded login URL, which is enough for
// SSO setups where valid cookies just need a refresh.
type loginFlowRecoverer struct {
	flows  *flow.Store
	driver executor.Driver
	logger *slog.Logger
}

func newLoginFlowRecoverer(flows *flow.Store, driver executor.Driver) *loginFlowRecoverer {
	return &loginFlowRecoverer{
		flows:  flows,
		driver: driver,
		logger: log.WithComponent("auth"),
	}
}

func (r *loginFlowRecoverer) RunAuthFlow(ctx context.Context, flowName, loginURL string) error {
	login, err := r.flows.Load(flowName + "-login")
	if err != nil {
		if !errors.Is(err, flow.ErrNotFound) {
			return err
		}
		if loginURL == "" {
			return fmt.Errorf("no login flow recorded for %q and no login URL in metadata", flowName)
		}
		r.logger.Info("no login flow recorded, navigating to login URL", "flow", flowName, "url", loginURL)
		_, err := r.driver.Perform(ctx, flow.Step{Kind: flow.KindNavigate, URL: loginURL}, executor.Scope{})
		return err
	}

	r.logger.Info("replaying login flow", "flow", login.Name, "steps", len(login.Steps))

	// The login replay shares the driver but runs without telemetry or
	// a recoverer of its own, so a broken login flow cannot recurse.
	runner := executor.NewRunner(r.driver, executor.Options{})
	result := runner.Run(ctx, login, nil)
	if !result.Succeeded() {
		if result.StepError != nil {
			return fmt.Errorf("login flow %q: %s", login.Name, result.StepError.Message)
		}
		return fmt.Errorf("login flow %q did not complete", login.Name)
	}
	return nil
}
