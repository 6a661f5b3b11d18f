package flow

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a flow document. Unknown step kinds and
// structurally invalid documents are rejected here, before a browser is
// ever launched.
func Parse(data []byte) (*Flow, error) {
	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("flow: decode document: %w", err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks a flow document against the step model. It enforces the
// closed kind set, per-kind payload requirements, and ascending step order.
func Validate(f *Flow) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("flow %q: invalid document: %w", f.Name, err)
	}

	prev := -1
	for i, step := range f.Steps {
		if step.Index <= prev {
			return fmt.Errorf("flow %q: step %d: index %d is not ascending (previous %d)",
				f.Name, i, step.Index, prev)
		}
		prev = step.Index

		if err := validateStepPayload(step); err != nil {
			return fmt.Errorf("flow %q: step %d (%s): %w", f.Name, step.Index, step.Kind, err)
		}
	}
	return nil
}

func validateStepPayload(step Step) error {
	switch step.Kind {
	case KindNavigate:
		if step.URL == "" {
			return fmt.Errorf("navigate step requires a url")
		}
	case KindType, KindSelect:
		if step.Value == "" {
			return fmt.Errorf("%s step requires a value", step.Kind)
		}
	case KindKeypress:
		if step.Key == "" {
			return fmt.Errorf("keypress step requires a key")
		}
	case KindUpload:
		if step.FilePath == "" {
			return fmt.Errorf("upload step requires a filePath")
		}
	case KindScript:
		if step.ScriptPath == "" {
			return fmt.Errorf("script step requires a scriptPath")
		}
	case KindWait:
		if step.Selectors.Empty() && step.TimeoutMs == 0 {
			return fmt.Errorf("wait step requires selectors or a timeoutMs")
		}
	}

	if requiresElement(step.Kind) && step.Selectors.Empty() {
		return fmt.Errorf("step addresses an element but carries no selectors")
	}
	return nil
}

// requiresElement reports whether a kind addresses a page element and
// therefore needs at least one captured selector.
func requiresElement(kind StepKind) bool {
	switch kind {
	case KindClick, KindType, KindSelect, KindCheck, KindUpload:
		return true
	default:
		return false
	}
}
