package browser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/reflow/pkg/executor"
	"github.com/entrhq/reflow/pkg/flow"
	"github.com/entrhq/reflow/pkg/log"
	"github.com/entrhq/reflow/pkg/scripthook"
)

// Driver executes flow steps against a live Playwright session. It
// implements executor.Driver; one driver serves one session at a time.
type Driver struct {
	session         *Session
	selectorTimeout float64 // milliseconds
	logger          *slog.Logger
}

// NewDriver wraps a session. selectorTimeout bounds how long each
// addressing strategy waits for its element to become visible.
func NewDriver(session *Session, selectorTimeout time.Duration) *Driver {
	return &Driver{
		session:         session,
		selectorTimeout: float64(selectorTimeout.Milliseconds()),
		logger:          log.WithComponent("browser"),
	}
}

// Perform dispatches one step to the matching Playwright action. Element
// steps resolve their locator first; the strategy that matched is
// reported in the outcome.
func (d *Driver) Perform(ctx context.Context, step flow.Step, scope executor.Scope) (executor.Outcome, error) {
	switch step.Kind {
	case flow.KindNavigate:
		return executor.Outcome{}, d.navigate(step)
	case flow.KindClick:
		return d.elementAction(step, scope, func(loc playwright.Locator) error {
			return loc.Click()
		})
	case flow.KindType:
		return d.elementAction(step, scope, func(loc playwright.Locator) error {
			return loc.Fill(step.Value)
		})
	case flow.KindSelect:
		return d.elementAction(step, scope, func(loc playwright.Locator) error {
			values := []string{step.Value}
			_, err := loc.SelectOption(playwright.SelectOptionValues{Values: &values})
			return err
		})
	case flow.KindCheck:
		return d.elementAction(step, scope, func(loc playwright.Locator) error {
			return loc.Check()
		})
	case flow.KindUpload:
		return d.elementAction(step, scope, func(loc playwright.Locator) error {
			return loc.SetInputFiles(step.FilePath)
		})
	case flow.KindKeypress:
		return executor.Outcome{}, d.session.page.Keyboard().Press(step.Key)
	case flow.KindScroll:
		return executor.Outcome{}, d.session.page.Mouse().Wheel(0, float64(step.ScrollY))
	case flow.KindTabSwitch:
		return executor.Outcome{}, d.switchTab()
	case flow.KindWait:
		return d.wait(ctx, step, scope)
	case flow.KindScript:
		bridge := &scriptBridge{page: d.session.page}
		return executor.Outcome{}, scripthook.Run(ctx, step.ScriptPath, bridge, scope.Params)
	case flow.KindFrameSwitch:
		// Frame scope lives in the runner; nothing touches the browser.
		return executor.Outcome{}, nil
	default:
		return executor.Outcome{}, &executor.UnsupportedKindError{Kind: step.Kind}
	}
}

func (d *Driver) navigate(step flow.Step) error {
	_, err := d.session.page.Goto(step.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", step.URL, err)
	}
	return nil
}

func (d *Driver) elementAction(step flow.Step, scope executor.Scope, action func(playwright.Locator) error) (executor.Outcome, error) {
	timeout := d.selectorTimeout
	if step.TimeoutMs > 0 {
		timeout = float64(step.TimeoutMs)
	}

	locator, strategy, err := resolve(d.session.page, scope.FrameSelector, step.Selectors, timeout)
	if err != nil {
		return executor.Outcome{}, err
	}
	if err := action(locator); err != nil {
		return executor.Outcome{Strategy: string(strategy)}, fmt.Errorf("%s via %s: %w", step.Kind, strategy, err)
	}
	return executor.Outcome{Strategy: string(strategy)}, nil
}

// switchTab activates the most recently opened page in the context. Flows
// recorded against popups rely on the popup being the newest page.
func (d *Driver) switchTab() error {
	pages := d.session.context.Pages()
	if len(pages) == 0 {
		return fmt.Errorf("tab-switch: context has no open pages")
	}
	page := pages[len(pages)-1]
	if err := page.BringToFront(); err != nil {
		return fmt.Errorf("tab-switch: %w", err)
	}
	page.SetDefaultTimeout(DefaultTimeout)
	d.session.page = page
	d.logger.Debug("switched active tab", "pages", len(pages))
	return nil
}

// wait blocks on an element becoming visible when the step carries
// selectors, otherwise sleeps for the step's fixed timeout.
func (d *Driver) wait(ctx context.Context, step flow.Step, scope executor.Scope) (executor.Outcome, error) {
	if !step.Selectors.Empty() {
		timeout := d.selectorTimeout
		if step.TimeoutMs > 0 {
			timeout = float64(step.TimeoutMs)
		}
		locator, strategy, err := resolve(d.session.page, scope.FrameSelector, step.Selectors, timeout)
		if err != nil {
			return executor.Outcome{}, err
		}
		err = locator.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(timeout),
		})
		if err != nil {
			return executor.Outcome{Strategy: string(strategy)}, fmt.Errorf("wait via %s: %w", strategy, err)
		}
		return executor.Outcome{Strategy: string(strategy)}, nil
	}

	select {
	case <-ctx.Done():
		return executor.Outcome{}, ctx.Err()
	case <-time.After(time.Duration(step.TimeoutMs) * time.Millisecond):
		return executor.Outcome{}, nil
	}
}

// PageState reads the current URL and the page's visible text for the
// post-failure auth heuristics.
func (d *Driver) PageState(_ context.Context) (string, string, error) {
	url := d.session.page.URL()
	content, err := d.session.page.Content()
	if err != nil {
		return url, "", fmt.Errorf("read page content: %w", err)
	}
	text, err := VisibleText(content)
	if err != nil {
		return url, "", err
	}
	return url, text, nil
}

// Screenshot captures the full page into the session's artifacts
// directory and returns the file path.
func (d *Driver) Screenshot(_ context.Context, name string) (string, error) {
	if d.session.artifactsDir == "" {
		return "", fmt.Errorf("screenshot: session has no artifacts directory")
	}
	path := filepath.Join(d.session.artifactsDir, name+".png")
	_, err := d.session.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("screenshot %s: %w", name, err)
	}
	return path, nil
}

// scriptBridge exposes the minimal browser surface custom scripts get.
type scriptBridge struct {
	page playwright.Page
}

func (b *scriptBridge) Navigate(url string) error {
	_, err := b.page.Goto(url)
	return err
}

func (b *scriptBridge) Click(selector string) error {
	return b.page.Locator(selector).Click()
}

func (b *scriptBridge) Fill(selector, value string) error {
	return b.page.Locator(selector).Fill(value)
}

func (b *scriptBridge) Evaluate(expression string) (any, error) {
	return b.page.Evaluate(expression)
}

func (b *scriptBridge) URL() string {
	return b.page.URL()
}
