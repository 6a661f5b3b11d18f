package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrNoVersions is returned when a flow has no recorded versions to score.
var ErrNoVersions = errors.New("telemetry: no versions recorded")

// Scoring weights for rollback selection. Success rate dominates; recency
// breaks ties in favor of scripts that have proven themselves lately.
const (
	successWeight = 0.7
	recencyWeight = 0.3
	recencyWindow = 30 * 24 * time.Hour
)

// FlowVersion tracks one generated-script revision of a flow together with
// its own run statistics. Entries are appended, never edited retroactively
// except for their own running success rate.
type FlowVersion struct {
	Version     int       `json:"version"`
	SavedAt     time.Time `json:"savedAt"`
	ScriptPath  string    `json:"scriptPath"`
	SuccessRate float64   `json:"successRate"`
	RunCount    int       `json:"runCount"`
}

// versionHistory is the on-disk shape: the active version number plus the
// append-mostly version list, rewritten whole on each update.
type versionHistory struct {
	Active   int           `json:"active"`
	Versions []FlowVersion `json:"versions"`
}

// VersionStore persists per-flow version histories as JSON files.
type VersionStore struct {
	root string
}

// NewVersionStore creates a store rooted at dir.
func NewVersionStore(dir string) (*VersionStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("telemetry: init version directory %s: %w", dir, err)
	}
	return &VersionStore{root: dir}, nil
}

func (s *VersionStore) pathFor(flowName string) string {
	return filepath.Join(s.root, flowName+".versions.json")
}

func (s *VersionStore) load(flowName string) (*versionHistory, error) {
	data, err := os.ReadFile(s.pathFor(flowName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &versionHistory{}, nil
		}
		return nil, fmt.Errorf("telemetry: read version history for %s: %w", flowName, err)
	}

	var history versionHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("telemetry: decode version history for %s: %w", flowName, err)
	}
	return &history, nil
}

func (s *VersionStore) save(flowName string, history *versionHistory) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("telemetry: encode version history for %s: %w", flowName, err)
	}
	if err := os.WriteFile(s.pathFor(flowName), data, 0o600); err != nil {
		return fmt.Errorf("telemetry: write version history for %s: %w", flowName, err)
	}
	return nil
}

// Versions returns the recorded versions for a flow, oldest first.
func (s *VersionStore) Versions(flowName string) ([]FlowVersion, error) {
	history, err := s.load(flowName)
	if err != nil {
		return nil, err
	}
	return history.Versions, nil
}

// Active returns the currently active version number (0 when none).
func (s *VersionStore) Active(flowName string) (int, error) {
	history, err := s.load(flowName)
	if err != nil {
		return 0, err
	}
	return history.Active, nil
}

// AddVersion appends a new version entry and makes it active.
func (s *VersionStore) AddVersion(flowName, scriptPath string) (FlowVersion, error) {
	history, err := s.load(flowName)
	if err != nil {
		return FlowVersion{}, err
	}

	next := 1
	for _, v := range history.Versions {
		if v.Version >= next {
			next = v.Version + 1
		}
	}

	version := FlowVersion{
		Version:    next,
		SavedAt:    timeNow(),
		ScriptPath: scriptPath,
	}
	history.Versions = append(history.Versions, version)
	history.Active = version.Version

	if err := s.save(flowName, history); err != nil {
		return FlowVersion{}, err
	}
	return version, nil
}

// RecordRun folds one run outcome into the version's running average:
// newRate = (oldRate x oldRunCount + outcome) / (oldRunCount + 1).
func (s *VersionStore) RecordRun(flowName string, version int, success bool) error {
	history, err := s.load(flowName)
	if err != nil {
		return err
	}

	for i := range history.Versions {
		v := &history.Versions[i]
		if v.Version != version {
			continue
		}
		outcome := 0.0
		if success {
			outcome = 1.0
		}
		v.SuccessRate = (v.SuccessRate*float64(v.RunCount) + outcome) / float64(v.RunCount+1)
		v.RunCount++
		return s.save(flowName, history)
	}

	return fmt.Errorf("telemetry: version %d not recorded for flow %s", version, flowName)
}

// Score rates a version for rollback selection: weighted success rate plus
// a recency term that decays to zero over the scoring window.
func Score(v FlowVersion, now time.Time) float64 {
	age := now.Sub(v.SavedAt)
	recency := 1 - age.Seconds()/recencyWindow.Seconds()
	if recency < 0 {
		recency = 0
	}
	return successWeight*v.SuccessRate + recencyWeight*recency
}

// BestVersion returns the highest-scoring version for a flow.
func (s *VersionStore) BestVersion(flowName string) (FlowVersion, error) {
	history, err := s.load(flowName)
	if err != nil {
		return FlowVersion{}, err
	}
	if len(history.Versions) == 0 {
		return FlowVersion{}, fmt.Errorf("%w: flow %s", ErrNoVersions, flowName)
	}

	now := timeNow()
	best := history.Versions[0]
	bestScore := Score(best, now)
	for _, v := range history.Versions[1:] {
		if score := Score(v, now); score > bestScore {
			best, bestScore = v, score
		}
	}
	return best, nil
}

// Rollback restores the highest-scoring version as the active script. The
// previously active script is archived as a new version first, so rollback
// is never destructive: any version can be returned to later.
func (s *VersionStore) Rollback(flowName string) (FlowVersion, error) {
	history, err := s.load(flowName)
	if err != nil {
		return FlowVersion{}, err
	}
	if len(history.Versions) == 0 {
		return FlowVersion{}, fmt.Errorf("%w: flow %s", ErrNoVersions, flowName)
	}

	now := timeNow()
	best := history.Versions[0]
	bestScore := Score(best, now)
	for _, v := range history.Versions[1:] {
		if score := Score(v, now); score > bestScore {
			best, bestScore = v, score
		}
	}

	// Archive the outgoing active script before switching.
	if active := s.find(history, history.Active); active != nil && active.Version != best.Version {
		next := 1
		for _, v := range history.Versions {
			if v.Version >= next {
				next = v.Version + 1
			}
		}
		history.Versions = append(history.Versions, FlowVersion{
			Version:    next,
			SavedAt:    now,
			ScriptPath: active.ScriptPath,
		})
	}

	history.Active = best.Version
	if err := s.save(flowName, history); err != nil {
		return FlowVersion{}, err
	}
	return best, nil
}

func (s *VersionStore) find(history *versionHistory, version int) *FlowVersion {
	for i := range history.Versions {
		if history.Versions[i].Version == version {
			return &history.Versions[i]
		}
	}
	return nil
}
