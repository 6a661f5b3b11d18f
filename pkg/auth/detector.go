// Package auth recognizes that the browser has fallen out of an
// authenticated state and coordinates the bounded recovery attempt.
package auth

import (
	"context"
	"fmt"
	"strings"
)

// urlFragments are path pieces that indicate the browser was bounced to a
// login page.
var urlFragments = []string{"login", "auth", "signin", "sign-in"}

// bodyPhrases are page-text markers of an expired or missing session.
var bodyPhrases = []string{
	"session expired",
	"please log in",
	"please sign in",
	"unauthorized",
	"access denied",
}

// Detector applies cheap heuristics to decide whether a failed step was
// caused by a lost session. It must only be consulted after a step has
// already failed; pages can legitimately contain these words.
type Detector struct{}

// NewDetector returns a detector with the built-in heuristics.
func NewDetector() *Detector {
	return &Detector{}
}

// LooksUnauthenticated reports whether the current URL or visible body text
// matches a known logged-out signal.
func (d *Detector) LooksUnauthenticated(currentURL, bodyText string) bool {
	loweredURL := strings.ToLower(currentURL)
	for _, fragment := range urlFragments {
		if strings.Contains(loweredURL, fragment) {
			return true
		}
	}

	loweredBody := strings.ToLower(bodyText)
	for _, phrase := range bodyPhrases {
		if strings.Contains(loweredBody, phrase) {
			return true
		}
	}
	return false
}

// Recoverer runs the external login sub-flow (credential fill, optional
// one-time-code handling). Its internals live outside the engine.
type Recoverer interface {
	RunAuthFlow(ctx context.Context, flowName, loginURL string) error
}

// RecoveryError wraps a failed login sub-flow. It is fatal and attributed
// to the step whose failure triggered recovery.
type RecoveryError struct {
	Flow string
	Err  error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("auth recovery failed for flow %q: %v", e.Flow, e.Err)
}

func (e *RecoveryError) Unwrap() error {
	return e.Err
}

// Recover drives one recovery attempt through the collaborator. Callers
// retry the triggering step exactly once after a nil return.
func Recover(ctx context.Context, r Recoverer, flowName, loginURL string) error {
	if r == nil {
		return &RecoveryError{Flow: flowName, Err: fmt.Errorf("no auth recoverer configured")}
	}
	if err := r.RunAuthFlow(ctx, flowName, loginURL); err != nil {
		return &RecoveryError{Flow: flowName, Err: err}
	}
	return nil
}
