// Package executor drives a flow run: it walks the recorded steps in
// order, dispatches each to the browser driver, and coordinates the
// security gate, retry policy, auth recovery, and telemetry around them.
package executor

import (
	"fmt"
	"strings"

	"github.com/entrhq/reflow/pkg/flow"
	"github.com/google/uuid"
)

// State is the terminal state of a run.
type State string

const (
	// StateCompleted means every step finished without a terminal error.
	StateCompleted State = "completed"
	// StateFailed means a step failure (possibly after auth recovery)
	// ended the run.
	StateFailed State = "failed"
	// StateAborted means the security gate blocked a navigation. Never
	// retried.
	StateAborted State = "aborted"
)

// StepError captures the single terminal failure of a run.
type StepError struct {
	Index      int    `json:"index"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Screenshot string `json:"screenshot,omitempty"`
	URL        string `json:"url,omitempty"`
	Retries    int    `json:"retriesAttempted"`
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed after %d retries: %s", e.Index, e.Kind, e.Retries, e.Message)
}

// Context is the mutable per-run state. Each run owns exactly one; nothing
// here is shared across concurrent runs.
type Context struct {
	RunID    string
	FlowName string
	Params   map[string]string

	// FrameSelector is the active frame scope. Set by a frame-switch
	// step, it persists across subsequent steps until changed again;
	// empty means the top-level page.
	FrameSelector string

	Screenshots []string
	Completed   int
	Err         *StepError
}

// NewContext creates the state for a fresh run.
func NewContext(flowName string, params map[string]string) *Context {
	return &Context{
		RunID:    uuid.New().String(),
		FlowName: flowName,
		Params:   params,
	}
}

// Result is the single structured outcome handed back to the caller. The
// engine never lets a run failure escape as anything else.
type Result struct {
	RunID          string
	Flow           string
	State          State
	StepsCompleted int
	StepError      *StepError
	Screenshots    []string
	RunLogPath     string
}

// Succeeded reports whether the run completed every step.
func (r *Result) Succeeded() bool {
	return r.State == StateCompleted
}

// applyParams substitutes {{name}} placeholders from the run parameters.
func applyParams(s string, params map[string]string) string {
	if s == "" || len(params) == 0 {
		return s
	}
	for name, value := range params {
		s = strings.ReplaceAll(s, "{{"+name+"}}", value)
	}
	return s
}

// resolveStep returns a copy of the step with run parameters applied to
// its textual payloads. The recorded step itself never mutates.
func resolveStep(step flow.Step, params map[string]string) flow.Step {
	step.Value = applyParams(step.Value, params)
	step.URL = applyParams(step.URL, params)
	step.Key = applyParams(step.Key, params)
	step.FilePath = applyParams(step.FilePath, params)
	return step
}
