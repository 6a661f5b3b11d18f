package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/reflow/pkg/retry"
	"github.com/entrhq/reflow/pkg/vault"
	"github.com/playwright-community/playwright-go"
)

// Default values for session setup.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultTimeout        = 30000.0 // milliseconds
)

// connectRetry bounds attach-mode connection attempts; the target browser
// may be mid-restart.
var connectRetry = retry.Config{
	MaxRetries:     3,
	InitialBackoff: time.Second,
	Multiplier:     2,
	MaxBackoff:     8 * time.Second,
}

// ConnectionError means the attach-mode browser stayed unreachable after
// the retry budget.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to browser at %s: %v (the browser may need restarting)", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SessionOptions configures a run's browser session.
type SessionOptions struct {
	// Headless controls whether a launched browser runs without a window.
	Headless bool

	// AttachEndpoint, when set, attaches to an already running browser
	// over CDP instead of launching one.
	AttachEndpoint string

	// ArtifactsDir receives the trace and screenshots for the run.
	ArtifactsDir string

	// Cookies seed the browser context before the first navigation.
	Cookies []vault.Cookie

	// Timeout is the default Playwright operation timeout in
	// milliseconds (0 means DefaultTimeout).
	Timeout float64
}

// Session owns the Playwright resources for exactly one run. Concurrent
// runs each hold their own session; nothing here is shared.
type Session struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	context  playwright.BrowserContext
	page     playwright.Page
	attached bool

	artifactsDir string
}

// NewSession launches (or attaches to) a browser, creates an isolated
// context seeded with the given cookies, and starts trace recording.
func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("browser: start playwright: %w", err)
	}

	session := &Session{pw: pw, artifactsDir: opts.ArtifactsDir}

	if opts.AttachEndpoint != "" {
		browser, err := retry.Do(ctx, "cdp-connect", connectRetry, func(context.Context) (playwright.Browser, error) {
			return pw.Chromium.ConnectOverCDP(opts.AttachEndpoint)
		}, nil)
		if err != nil {
			pw.Stop()
			return nil, &ConnectionError{Endpoint: opts.AttachEndpoint, Err: err}
		}
		session.browser = browser
		session.attached = true
	} else {
		browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		session.browser = browser
	}

	browserCtx, err := session.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		session.teardown()
		return nil, fmt.Errorf("browser: create context: %w", err)
	}
	session.context = browserCtx

	if len(opts.Cookies) > 0 {
		if err := browserCtx.AddCookies(toPlaywrightCookies(opts.Cookies)); err != nil {
			session.teardown()
			return nil, fmt.Errorf("browser: seed cookies: %w", err)
		}
	}

	// The trace is written for later inspection; the engine never reads
	// it back.
	if opts.ArtifactsDir != "" {
		if err := os.MkdirAll(opts.ArtifactsDir, 0o750); err != nil {
			session.teardown()
			return nil, fmt.Errorf("browser: init artifacts directory: %w", err)
		}
		if err := browserCtx.Tracing().Start(playwright.TracingStartOptions{
			Screenshots: playwright.Bool(true),
			Snapshots:   playwright.Bool(true),
		}); err != nil {
			session.teardown()
			return nil, fmt.Errorf("browser: start tracing: %w", err)
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		session.teardown()
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	page.SetDefaultTimeout(timeout)
	session.page = page

	return session, nil
}

// Cookies returns the context's current cookie set so the caller can
// persist it back to the vault after a successful run.
func (s *Session) Cookies() ([]vault.Cookie, error) {
	raw, err := s.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("browser: read cookies: %w", err)
	}
	return fromPlaywrightCookies(raw), nil
}

// Close stops tracing (writing the trace artifact when a run name is
// given), then releases the session's resources. An attached browser is
// left running; only the run's context is closed.
func (s *Session) Close(traceName string) error {
	var firstErr error

	if s.artifactsDir != "" && s.context != nil {
		path := filepath.Join(s.artifactsDir, traceName+".trace.zip")
		if err := s.context.Tracing().Stop(path); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("browser: stop tracing: %w", err)
		}
	}

	s.teardown()
	return firstErr
}

func (s *Session) teardown() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.context != nil {
		_ = s.context.Close()
	}
	if s.browser != nil && !s.attached {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
}

func toPlaywrightCookies(cookies []vault.Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(c.Path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Expires != 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}
		if attr := sameSiteAttribute(c.SameSite); attr != nil {
			cookie.SameSite = attr
		}
		out = append(out, cookie)
	}
	return out
}

func fromPlaywrightCookies(cookies []playwright.Cookie) []vault.Cookie {
	out := make([]vault.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := vault.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			cookie.SameSite = string(*c.SameSite)
		}
		out = append(out, cookie)
	}
	return out
}

func sameSiteAttribute(value string) *playwright.SameSiteAttribute {
	switch value {
	case "Lax":
		return playwright.SameSiteAttributeLax
	case "Strict":
		return playwright.SameSiteAttributeStrict
	case "None":
		return playwright.SameSiteAttributeNone
	default:
		return nil
	}
}
