package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/entrhq/reflow/pkg/auth"
	"github.com/entrhq/reflow/pkg/flow"
	"github.com/entrhq/reflow/pkg/log"
	"github.com/entrhq/reflow/pkg/retry"
	"github.com/entrhq/reflow/pkg/security"
	"github.com/entrhq/reflow/pkg/telemetry"
)

// Options wires the runner's collaborators. RunLogs and Versions may be nil
// when telemetry persistence is not wanted (unit tests, dry runs).
type Options struct {
	Detector  *auth.Detector
	Recoverer auth.Recoverer
	RunLogs   *telemetry.RunLogStore
	Versions  *telemetry.VersionStore
	Retry     retry.Config
}

// Runner executes one flow at a time against a driver. A Runner is not
// safe for concurrent runs; batch execution creates one per worker.
type Runner struct {
	driver Driver
	opts   Options
	logger *slog.Logger
}

// NewRunner creates a runner over the given driver.
func NewRunner(driver Driver, opts Options) *Runner {
	if opts.Detector == nil {
		opts.Detector = auth.NewDetector()
	}
	if opts.Retry == (retry.Config{}) {
		opts.Retry = retry.DefaultConfig()
	}
	return &Runner{
		driver: driver,
		opts:   opts,
		logger: log.WithComponent("executor"),
	}
}

// Run replays the flow's steps in ascending index order and always returns
// a structured result; no failure of the run itself escapes as a panic or
// a naked error.
func (r *Runner) Run(ctx context.Context, f *flow.Flow, params map[string]string) *Result {
	ectx := NewContext(f.Name, params)
	runLog := telemetry.NewRunLog(ectx.RunID, f.Name, f.Metadata.ScriptVersion)

	logger := r.logger.With("flow", f.Name, "run_id", ectx.RunID)
	logger.Info("starting flow run", "steps", len(f.Steps), "script_version", f.Metadata.ScriptVersion)

	state := StateCompleted

steps:
	for _, recorded := range f.Steps {
		select {
		case <-ctx.Done():
			ectx.Err = &StepError{
				Index:   recorded.Index,
				Kind:    string(recorded.Kind),
				Message: "run cancelled before step",
			}
			state = StateFailed
			break steps
		default:
		}

		step := resolveStep(recorded, params)

		if step.DelayMs > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(step.DelayMs) * time.Millisecond):
			}
		}

		started := time.Now()

		// Frame-switch performs no element action; it only moves the
		// scope carried to subsequent steps.
		if step.Kind == flow.KindFrameSwitch {
			ectx.FrameSelector = step.FrameSelector
			ectx.Completed++
			runLog.Append(telemetry.StepLogEntry{
				Index:      step.Index,
				Kind:       string(step.Kind),
				Status:     telemetry.StepSuccess,
				DurationMs: time.Since(started).Milliseconds(),
			})
			logger.Debug("frame scope changed", "step", step.Index, "frame", step.FrameSelector)
			continue
		}

		if step.Kind == flow.KindNavigate {
			if err := security.AssertAllowed(step.URL, f.Metadata.AllowedDomains, f.Name); err != nil {
				logger.Error("navigation blocked by domain gate", "step", step.Index, "url", step.URL)
				ectx.Err = &StepError{
					Index:   step.Index,
					Kind:    string(step.Kind),
					Message: err.Error(),
					URL:     step.URL,
				}
				runLog.Append(telemetry.StepLogEntry{
					Index:      step.Index,
					Kind:       string(step.Kind),
					Status:     telemetry.StepFailure,
					Message:    err.Error(),
					DurationMs: time.Since(started).Milliseconds(),
				})
				state = StateAborted
				break steps
			}
		}

		scope := Scope{FrameSelector: ectx.FrameSelector, Params: params}
		outcome, attempts, err := r.performWithRetry(ctx, step, scope)
		if err != nil {
			stepErr := r.handleFailure(ctx, ectx, runLog, f, step, started, err, attempts-1)
			if stepErr != nil {
				ectx.Err = stepErr
				state = StateFailed
				break steps
			}
			// Auth recovery brought the step through; fall into the
			// success path below.
		}

		ectx.Completed++
		runLog.Append(telemetry.StepLogEntry{
			Index:      step.Index,
			Kind:       string(step.Kind),
			Strategy:   outcome.Strategy,
			Status:     telemetry.StepSuccess,
			DurationMs: time.Since(started).Milliseconds(),
		})
		logger.Debug("step completed", "step", step.Index, "kind", step.Kind, "strategy", outcome.Strategy)
	}

	return r.finish(ctx, ectx, runLog, f, state)
}

// performWithRetry runs the resolver and action as one retried unit and
// reports how many attempts were actually made. A step kind outside the
// closed set aborts immediately.
func (r *Runner) performWithRetry(ctx context.Context, step flow.Step, scope Scope) (Outcome, int, error) {
	name := fmt.Sprintf("step-%d-%s", step.Index, step.Kind)
	attempts := 0
	outcome, err := retry.Do(ctx, name, r.opts.Retry, func(ctx context.Context) (Outcome, error) {
		attempts++
		return r.driver.Perform(ctx, step, scope)
	}, func(_ string, err error, _ int) retry.Decision {
		if IsUnsupportedKind(err) {
			return retry.Abort
		}
		return retry.Retry
	})
	return outcome, attempts, err
}

// handleFailure runs the post-failure pipeline: screenshot, failure log,
// auth heuristics, and at most one recovery-backed retry. retries is the
// number of retries actually spent before giving up. It returns nil when
// recovery salvaged the step, or the terminal StepError otherwise.
func (r *Runner) handleFailure(ctx context.Context, ectx *Context, runLog *telemetry.RunLog, f *flow.Flow, step flow.Step, started time.Time, cause error, retries int) *StepError {
	logger := r.logger.With("flow", f.Name, "run_id", ectx.RunID, "step", step.Index)
	logger.Warn("step failed", "kind", step.Kind, "error", cause)

	shot := r.captureScreenshot(ctx, ectx, fmt.Sprintf("step-%d-failure", step.Index))

	runLog.Append(telemetry.StepLogEntry{
		Index:      step.Index,
		Kind:       string(step.Kind),
		Status:     telemetry.StepFailure,
		Message:    cause.Error(),
		Retries:    retries,
		DurationMs: time.Since(started).Milliseconds(),
	})

	currentURL, bodyText, stateErr := r.driver.PageState(ctx)
	if stateErr != nil {
		logger.Debug("could not read page state for auth check", "error", stateErr)
	}

	stepErr := &StepError{
		Index:      step.Index,
		Kind:       string(step.Kind),
		Message:    cause.Error(),
		Screenshot: shot,
		URL:        currentURL,
		Retries:    retries,
	}

	if IsUnsupportedKind(cause) || !r.opts.Detector.LooksUnauthenticated(currentURL, bodyText) {
		return stepErr
	}

	logger.Info("auth failure detected, attempting recovery")
	if err := auth.Recover(ctx, r.opts.Recoverer, f.Name, f.Metadata.LoginURL); err != nil {
		logger.Error("auth recovery failed", "error", err)
		stepErr.Message = err.Error()
		stepErr.Retries = 1
		return stepErr
	}

	// Recovery succeeded: the triggering step gets exactly one more try.
	if _, err := r.driver.Perform(ctx, step, Scope{FrameSelector: ectx.FrameSelector, Params: ectx.Params}); err != nil {
		logger.Error("step failed again after auth recovery", "error", err)
		stepErr.Message = err.Error()
		stepErr.Retries = 1
		return stepErr
	}

	logger.Info("step recovered after re-authentication")
	return nil
}

func (r *Runner) captureScreenshot(ctx context.Context, ectx *Context, name string) string {
	path, err := r.driver.Screenshot(ctx, fmt.Sprintf("%s-%s", ectx.RunID, name))
	if err != nil {
		r.logger.Debug("screenshot capture failed", "name", name, "error", err)
		return ""
	}
	ectx.Screenshots = append(ectx.Screenshots, path)
	return path
}

// finish closes out telemetry and assembles the structured result.
func (r *Runner) finish(ctx context.Context, ectx *Context, runLog *telemetry.RunLog, f *flow.Flow, state State) *Result {
	logger := r.logger.With("flow", f.Name, "run_id", ectx.RunID)

	// Final screenshot regardless of outcome; traces and cookies are
	// handled by the session around the run.
	r.captureScreenshot(ctx, ectx, "final")

	success := state == StateCompleted && ectx.Err == nil
	runLog.Finish(success)

	result := &Result{
		RunID:          ectx.RunID,
		Flow:           f.Name,
		State:          state,
		StepsCompleted: ectx.Completed,
		StepError:      ectx.Err,
		Screenshots:    ectx.Screenshots,
	}

	if r.opts.RunLogs != nil {
		path, err := r.opts.RunLogs.Save(runLog)
		if err != nil {
			logger.Error("failed to persist run log", "error", err)
		} else {
			result.RunLogPath = path
		}
	}

	if r.opts.Versions != nil {
		if err := r.opts.Versions.RecordRun(f.Name, f.Metadata.ScriptVersion, success); err != nil {
			logger.Warn("failed to update version statistics", "error", err)
		}
	}

	logger.Info("flow run finished", "state", state, "steps_completed", ectx.Completed, "success", success)
	return result
}
