package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/reflow/pkg/flow"
)

// Scope carries the per-run state a driver needs to perform a step: the
// active frame (empty means the top-level page) and the run parameters
// handed to script steps.
type Scope struct {
	FrameSelector string
	Params        map[string]string
}

// Outcome reports what a driver did for one step.
type Outcome struct {
	// Strategy names the selector strategy that ultimately matched, when
	// the step addressed an element.
	Strategy string
}

// Driver executes individual step actions against a live browser. The
// runner owns flow logic; the driver owns locator resolution and the
// browser protocol. Implementations: Playwright (pkg/browser) and the test
// fake.
type Driver interface {
	// Perform runs one step inside the given scope. The selector
	// resolution and the action together are the unit the runner's
	// retry policy wraps.
	Perform(ctx context.Context, step flow.Step, scope Scope) (Outcome, error)

	// PageState returns the current URL and visible body text, consumed
	// by the auth-failure heuristics after a step failure.
	PageState(ctx context.Context) (url string, bodyText string, err error)

	// Screenshot captures the current page and returns a file reference.
	Screenshot(ctx context.Context, name string) (string, error)
}

// UnsupportedKindError marks a step kind outside the closed set: a
// data/version mismatch. Fatal, never retried.
type UnsupportedKindError struct {
	Kind flow.StepKind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported step kind %q", e.Kind)
}

// IsUnsupportedKind reports whether err marks an unsupported step kind.
func IsUnsupportedKind(err error) bool {
	var target *UnsupportedKindError
	return errors.As(err, &target)
}
