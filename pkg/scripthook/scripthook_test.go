package scripthook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBrowser struct {
	navigations []string
	clicks      []string
	fills       map[string]string
	failClick   error
}

func newStubBrowser() *stubBrowser {
	return &stubBrowser{fills: make(map[string]string)}
}

func (b *stubBrowser) Navigate(url string) error {
	b.navigations = append(b.navigations, url)
	return nil
}

func (b *stubBrowser) Click(selector string) error {
	if b.failClick != nil {
		return b.failClick
	}
	b.clicks = append(b.clicks, selector)
	return nil
}

func (b *stubBrowser) Fill(selector, value string) error {
	b.fills[selector] = value
	return nil
}

func (b *stubBrowser) Evaluate(string) (any, error) {
	return "42", nil
}

func (b *stubBrowser) URL() string {
	return "https://example.com/current"
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hook.js")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o600))
	return path
}

func TestRunDefaultExport(t *testing.T) {
	b := newStubBrowser()
	path := writeScript(t, `
		module.exports = function (browser, params) {
			browser.navigate("https://example.com/" + params.page);
			browser.click("#submit");
		};
	`)

	err := Run(context.Background(), path, b, map[string]string{"page": "cart"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/cart"}, b.navigations)
	assert.Equal(t, []string{"#submit"}, b.clicks)
}

func TestRunNamedRunExport(t *testing.T) {
	b := newStubBrowser()
	path := writeScript(t, `
		exports.run = function (browser) {
			browser.fill("#email", "a@b.c");
		};
	`)

	require.NoError(t, Run(context.Background(), path, b, nil))
	assert.Equal(t, "a@b.c", b.fills["#email"])
}

func TestRunGlobalRunFunction(t *testing.T) {
	b := newStubBrowser()
	path := writeScript(t, `
		function run(browser) {
			browser.click("#ok");
		}
	`)

	require.NoError(t, Run(context.Background(), path, b, nil))
	assert.Equal(t, []string{"#ok"}, b.clicks)
}

func TestRunRejectsScriptWithoutEntryPoint(t *testing.T) {
	path := writeScript(t, `var x = 1;`)

	err := Run(context.Background(), path, newStubBrowser(), nil)
	require.ErrorIs(t, err, ErrNoEntryPoint)
	assert.Contains(t, err.Error(), "must export a default function or run()")
}

func TestRunPropagatesBrowserErrors(t *testing.T) {
	b := newStubBrowser()
	b.failClick = errors.New("element detached")
	path := writeScript(t, `
		module.exports = function (browser) {
			browser.click("#gone");
		};
	`)

	err := Run(context.Background(), path, b, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element detached")
}

func TestRunMissingScriptFile(t *testing.T) {
	err := Run(context.Background(), filepath.Join(t.TempDir(), "absent.js"), newStubBrowser(), nil)
	require.Error(t, err)
}

func TestRunExposesGlobalBindings(t *testing.T) {
	b := newStubBrowser()
	path := writeScript(t, `
		module.exports = function () {
			// The api is also reachable as a global for simple scripts.
			browser.navigate(browser.url() + "?next=" + params.next);
		};
	`)

	require.NoError(t, Run(context.Background(), path, b, map[string]string{"next": "done"}))
	require.Len(t, b.navigations, 1)
	assert.Equal(t, "https://example.com/current?next=done", b.navigations[0])
}
