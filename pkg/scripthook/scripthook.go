// Package scripthook loads and runs the external script attached to a
// script step. Scripts are a plugin boundary: they receive a narrow
// browser API plus the run parameters and report success or failure; they
// never reach into the engine's own control flow.
package scripthook

import (
	"context"
	"fmt"
	"os"

	"github.com/dop251/goja"
)

// ErrNoEntryPoint is the explicit failure for scripts with no usable
// export.
var ErrNoEntryPoint = fmt.Errorf("scripthook: script must export a default function or run()")

// Browser is the capability handed to scripts. Implemented by the
// Playwright driver; tests use a stub.
type Browser interface {
	Navigate(url string) error
	Click(selector string) error
	Fill(selector, value string) error
	Evaluate(expression string) (any, error)
	URL() string
}

// Run loads the script at path and invokes its entry point with the
// browser handle and run parameters. The entry point is either the
// default export (module.exports = fn) or an exported run() function.
func Run(ctx context.Context, path string, b Browser, params map[string]string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scripthook: read script %s: %w", path, err)
	}

	vm := goja.New()

	// Stop the script when the run is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if err := vm.Set("browser", browserBindings(b)); err != nil {
		return fmt.Errorf("scripthook: bind browser api: %w", err)
	}
	if err := vm.Set("params", params); err != nil {
		return fmt.Errorf("scripthook: bind params: %w", err)
	}
	if _, err := vm.RunString("var module = { exports: {} }; var exports = module.exports;"); err != nil {
		return fmt.Errorf("scripthook: init module scope: %w", err)
	}

	if _, err := vm.RunScript(path, string(source)); err != nil {
		return fmt.Errorf("scripthook: evaluate %s: %w", path, err)
	}

	entry, err := entryPoint(vm)
	if err != nil {
		return err
	}

	if _, err := entry(goja.Undefined(), vm.ToValue(browserBindings(b)), vm.ToValue(params)); err != nil {
		return fmt.Errorf("scripthook: script failed: %w", err)
	}
	return nil
}

// entryPoint finds the script's callable: the default export first, then
// an exported or global run().
func entryPoint(vm *goja.Runtime) (goja.Callable, error) {
	moduleVal := vm.Get("module")
	if moduleVal != nil {
		exports := moduleVal.ToObject(vm).Get("exports")
		if exports != nil {
			if fn, ok := goja.AssertFunction(exports); ok {
				return fn, nil
			}
			if obj := exports.ToObject(vm); obj != nil {
				if fn, ok := goja.AssertFunction(obj.Get("run")); ok {
					return fn, nil
				}
			}
		}
	}

	if fn, ok := goja.AssertFunction(vm.Get("run")); ok {
		return fn, nil
	}
	return nil, ErrNoEntryPoint
}

// browserBindings exposes the capability with JS-style lowercase names.
// Go errors surface as script exceptions.
func browserBindings(b Browser) map[string]any {
	return map[string]any{
		"navigate": b.Navigate,
		"click":    b.Click,
		"fill":     b.Fill,
		"evaluate": b.Evaluate,
		"url":      b.URL,
	}
}
