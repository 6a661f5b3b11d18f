// Package browser drives a real browser through Playwright for flow
// replay.
//
// The package is built around three concepts:
//
//  1. Session: one Playwright browser (launched or attached over CDP) with
//     its isolated context, page, trace, and cookie state for a single run
//  2. Driver: the executor-facing adapter that performs individual step
//     actions inside a session
//  3. Resolver: the multi-strategy selector resolution that picks a
//     working locator out of each step's captured SelectorSet
//
// # Session lifecycle
//
// A session is created per run, seeded with the flow's saved cookies, and
// records a Playwright trace for the whole run. Closing the session stops
// the trace, writes it to the artifacts directory, and releases the
// browser resources. Attach mode (ConnectOverCDP) never closes the remote
// browser itself, only the context created for the run.
//
// # Selector resolution
//
// Capture-time instrumentation over-produces selectors; replay favors
// whichever strategy is both present and currently valid. Resolution
// order is fixed: test-id, ARIA label, visible text, CSS path, XPath.
// Each candidate gets a short visibility wait; if none becomes visible the
// first candidate is still returned so the action can surface a precise
// error of its own.
package browser
