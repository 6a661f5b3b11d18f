// Package telemetry records structured per-step outcomes, aggregates
// success rates per generated-script version, and computes rollback
// targets from them.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var timeNow = time.Now // injected for testability

// StepStatus is the recorded outcome of one step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailure StepStatus = "failure"
)

// StepLogEntry is one step's structured outcome.
type StepLogEntry struct {
	Index int        `json:"index"`
	Kind  string     `json:"kind"`
	// Strategy names the selector strategy that ultimately matched, when
	// the step addressed an element.
	Strategy   string     `json:"strategy,omitempty"`
	Status     StepStatus `json:"status"`
	Message    string     `json:"message,omitempty"`
	Retries    int        `json:"retries,omitempty"`
	DurationMs int64      `json:"durationMs"`
}

// RunLog is the record of one flow run, appended to during the run and
// persisted once at the end.
type RunLog struct {
	RunID     string         `json:"runId"`
	Flow      string         `json:"flow"`
	Version   int            `json:"scriptVersion"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
	Success   bool           `json:"success"`
	Steps     []StepLogEntry `json:"steps"`
}

// NewRunLog starts the log for a fresh run. runID is the run's single
// identifier, shared with its screenshots and trace artifact.
func NewRunLog(runID, flowName string, version int) *RunLog {
	return &RunLog{
		RunID:     runID,
		Flow:      flowName,
		Version:   version,
		StartedAt: timeNow(),
	}
}

// Append records one step outcome in order.
func (r *RunLog) Append(entry StepLogEntry) {
	r.Steps = append(r.Steps, entry)
}

// Finish stamps the end of the run.
func (r *RunLog) Finish(success bool) {
	r.EndedAt = timeNow()
	r.Success = success
}

// RunLogStore persists one JSON file per run under <root>/<flow>/.
type RunLogStore struct {
	root string
}

// NewRunLogStore creates a store rooted at dir.
func NewRunLogStore(dir string) (*RunLogStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("telemetry: init run log directory %s: %w", dir, err)
	}
	return &RunLogStore{root: dir}, nil
}

// Save writes the completed run log. Runs of different flows never contend;
// concurrent runs of the same flow are serialized by the caller.
func (s *RunLogStore) Save(log *RunLog) (string, error) {
	dir := filepath.Join(s.root, log.Flow)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("telemetry: init flow directory: %w", err)
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", fmt.Errorf("telemetry: encode run log: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("run-%s.json", log.RunID))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("telemetry: write run log: %w", err)
	}
	return path, nil
}
