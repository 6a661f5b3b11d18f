package browser

import (
	"fmt"
	"strings"

	"github.com/entrhq/reflow/pkg/flow"
	"github.com/playwright-community/playwright-go"
)

// Strategy names one element-addressing approach, ordered by stability.
type Strategy string

const (
	StrategyTestID Strategy = "test-id"
	StrategyAria   Strategy = "aria"
	StrategyText   Strategy = "text"
	StrategyCSS    Strategy = "css"
	StrategyXPath  Strategy = "xpath"
)

// Candidate pairs a strategy with its captured selector value.
type Candidate struct {
	Strategy Strategy
	Value    string
}

// Candidates builds the resolution priority list from a SelectorSet.
// The order is fixed and deterministic regardless of how the set was
// captured: test-id, ARIA, text, CSS, XPath. Absent strategies are
// skipped.
func Candidates(set flow.SelectorSet) []Candidate {
	var out []Candidate
	if set.TestID != "" {
		out = append(out, Candidate{StrategyTestID, set.TestID})
	}
	if set.AriaLabel != "" {
		out = append(out, Candidate{StrategyAria, set.AriaLabel})
	}
	if set.Text != "" {
		out = append(out, Candidate{StrategyText, set.Text})
	}
	if set.CSS != "" {
		out = append(out, Candidate{StrategyCSS, set.CSS})
	}
	if set.XPath != "" {
		out = append(out, Candidate{StrategyXPath, set.XPath})
	}
	return out
}

// NoSelectorError means every addressing strategy was exhausted for one
// element. The engine never silently substitutes another element.
type NoSelectorError struct {
	Attempted []Candidate
	Frame     string
}

func (e *NoSelectorError) Error() string {
	scope := "top-level page"
	if e.Frame != "" {
		scope = fmt.Sprintf("frame %q", e.Frame)
	}
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("no selector matched in %s: step carries no captured selectors", scope)
	}
	names := make([]string, len(e.Attempted))
	for i, c := range e.Attempted {
		names[i] = fmt.Sprintf("%s=%q", c.Strategy, c.Value)
	}
	return fmt.Sprintf("no selector matched in %s: tried %s", scope, strings.Join(names, ", "))
}

// locate builds the Playwright locator for a candidate, scoped inside the
// active frame when one is set.
func locate(page playwright.Page, frameSelector string, c Candidate) playwright.Locator {
	if frameSelector != "" {
		frame := page.FrameLocator(frameSelector)
		switch c.Strategy {
		case StrategyTestID:
			return frame.GetByTestId(c.Value)
		case StrategyAria:
			return frame.GetByLabel(c.Value)
		case StrategyText:
			return frame.GetByText(c.Value)
		case StrategyXPath:
			return frame.Locator("xpath=" + c.Value)
		default:
			return frame.Locator(c.Value)
		}
	}

	switch c.Strategy {
	case StrategyTestID:
		return page.GetByTestId(c.Value)
	case StrategyAria:
		return page.GetByLabel(c.Value)
	case StrategyText:
		return page.GetByText(c.Value)
	case StrategyXPath:
		return page.Locator("xpath=" + c.Value)
	default:
		return page.Locator(c.Value)
	}
}

// resolve walks the candidate list and returns the first locator that
// becomes visible within timeoutMs. If none does, the first candidate is
// returned anyway so the caller's action can fail with its own precise
// error. An empty SelectorSet fails immediately.
func resolve(page playwright.Page, frameSelector string, set flow.SelectorSet, timeoutMs float64) (playwright.Locator, Strategy, error) {
	candidates := Candidates(set)
	if len(candidates) == 0 {
		return nil, "", &NoSelectorError{Frame: frameSelector}
	}

	for _, c := range candidates {
		locator := locate(page, frameSelector, c)
		err := locator.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(timeoutMs),
		})
		if err == nil {
			return locator, c.Strategy, nil
		}
	}

	first := candidates[0]
	return locate(page, frameSelector, first), first.Strategy, nil
}
