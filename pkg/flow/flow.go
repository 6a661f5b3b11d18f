// Package flow defines the replayable flow document: an ordered sequence of
// recorded interaction steps plus metadata. Flows are immutable once loaded
// for a run; re-running a flow re-reads the same steps.
package flow

// StepKind identifies one interaction type. The set is closed: loaders
// reject documents with unknown kinds, and the executor fails loudly if one
// slips through.
type StepKind string

const (
	KindNavigate    StepKind = "navigate"
	KindClick       StepKind = "click"
	KindType        StepKind = "type"
	KindSelect      StepKind = "select"
	KindCheck       StepKind = "check"
	KindKeypress    StepKind = "keypress"
	KindScroll      StepKind = "scroll"
	KindFrameSwitch StepKind = "frame-switch"
	KindTabSwitch   StepKind = "tab-switch"
	KindWait        StepKind = "wait"
	KindUpload      StepKind = "upload"
	KindScript      StepKind = "script"
)

// Kinds lists every supported step kind.
func Kinds() []StepKind {
	return []StepKind{
		KindNavigate, KindClick, KindType, KindSelect, KindCheck,
		KindKeypress, KindScroll, KindFrameSwitch, KindTabSwitch,
		KindWait, KindUpload, KindScript,
	}
}

// SelectorSet is a bag of independently captured addressing strategies for
// one logical element. Every field is optional; capture-time instrumentation
// over-produces selectors so replay can favor whichever one still works.
type SelectorSet struct {
	// TestID is a data-testid attribute value, the most stable strategy.
	TestID string `json:"testId,omitempty"`
	// AriaLabel is an accessibility label.
	AriaLabel string `json:"ariaLabel,omitempty"`
	// Text is the element's visible text.
	Text string `json:"text,omitempty"`
	// CSS is a structural CSS path.
	CSS string `json:"css,omitempty"`
	// XPath is the weakest, most brittle strategy.
	XPath string `json:"xpath,omitempty"`
}

// Empty reports whether no strategy was captured.
func (s SelectorSet) Empty() bool {
	return s.TestID == "" && s.AriaLabel == "" && s.Text == "" && s.CSS == "" && s.XPath == ""
}

// Step is one atomic recorded interaction. Steps never mutate after
// creation; the Index defines execution order.
type Step struct {
	Index     int         `json:"index"`
	Kind      StepKind    `json:"kind"      validate:"required,oneof=navigate click type select check keypress scroll frame-switch tab-switch wait upload script"`
	Selectors SelectorSet `json:"selectors,omitempty"`

	// Value carries typed text, the select option, or the checkbox state.
	Value string `json:"value,omitempty"`
	// Key is the key to send for keypress steps (e.g. "Enter").
	Key string `json:"key,omitempty"`
	// URL is the navigation target for navigate steps.
	URL string `json:"url,omitempty"`
	// FilePath is the file to attach for upload steps.
	FilePath string `json:"filePath,omitempty"`
	// FrameSelector addresses the iframe for frame-switch steps. Empty
	// resets the scope back to the top-level page.
	FrameSelector string `json:"frameSelector,omitempty"`
	// ScriptPath points at the external script for script steps.
	ScriptPath string `json:"scriptPath,omitempty"`
	// ScrollY is the vertical scroll distance in pixels for scroll steps.
	ScrollY int `json:"scrollY,omitempty"`

	// DelayMs is an optional pause applied before the step runs.
	DelayMs int `json:"delayMs,omitempty"`
	// TimeoutMs overrides the default wait budget for wait steps.
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

// Metadata describes the flow as a whole.
type Metadata struct {
	// TargetURL is the entry point the flow was recorded against.
	TargetURL string `json:"targetUrl" validate:"required,url"`
	// AllowedDomains restricts navigation targets. Empty means
	// unrestricted (opt-in model).
	AllowedDomains []string `json:"allowedDomains,omitempty"`
	// StepCount is the number of steps at recording time.
	StepCount int `json:"stepCount"`
	// ScriptVersion is the generated-script revision this flow currently
	// replays with.
	ScriptVersion int `json:"scriptVersion"`
	// LoginURL, when set, is where auth recovery sends the login sub-flow.
	LoginURL string `json:"loginUrl,omitempty"`
}

// Flow is a named, ordered sequence of steps plus metadata. Owned by the
// store; read-only to the engine.
type Flow struct {
	Name     string   `json:"name"  validate:"required"`
	Metadata Metadata `json:"metadata"`
	Steps    []Step   `json:"steps" validate:"required,min=1,dive"`
}
