package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFrozenClock(t *testing.T, now time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
}

func TestRecordRunRunningAverage(t *testing.T) {
	store, err := NewVersionStore(t.TempDir())
	require.NoError(t, err)

	v, err := store.AddVersion("checkout", "scripts/checkout.v1.js")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Version)

	outcomes := []bool{true, true, false, true}
	for _, success := range outcomes {
		require.NoError(t, store.RecordRun("checkout", 1, success))
	}

	versions, err := store.Versions("checkout")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 4, versions[0].RunCount)
	assert.InDelta(t, 0.75, versions[0].SuccessRate, 1e-9)
}

func TestRecordRunUnknownVersion(t *testing.T) {
	store, err := NewVersionStore(t.TempDir())
	require.NoError(t, err)

	require.Error(t, store.RecordRun("checkout", 7, true))
}

func TestScoreWeighsRateAndRecency(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// A: strong rate but 40 days old, so its recency term is zero.
	a := FlowVersion{Version: 1, SuccessRate: 0.9, SavedAt: now.Add(-40 * 24 * time.Hour)}
	// B: weaker rate but saved yesterday.
	b := FlowVersion{Version: 2, SuccessRate: 0.6, SavedAt: now.Add(-24 * time.Hour)}

	assert.InDelta(t, 0.63, Score(a, now), 1e-9)
	assert.InDelta(t, 0.7*0.6+0.3*(29.0/30.0), Score(b, now), 1e-9)
	assert.Greater(t, Score(b, now), Score(a, now))
}

func TestRollbackSelectsHighestScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := NewVersionStore(t.TempDir())
	require.NoError(t, err)

	withFrozenClock(t, now.Add(-40*24*time.Hour))
	_, err = store.AddVersion("checkout", "scripts/checkout.v1.js")
	require.NoError(t, err)

	withFrozenClock(t, now.Add(-24*time.Hour))
	_, err = store.AddVersion("checkout", "scripts/checkout.v2.js")
	require.NoError(t, err)

	// Make v1 the strong-but-stale candidate from the rollback example.
	seedRate(t, store, "checkout", 1, 0.9, 10)
	seedRate(t, store, "checkout", 2, 0.6, 10)

	withFrozenClock(t, now)
	best, err := store.Rollback("checkout")
	require.NoError(t, err)
	assert.Equal(t, 2, best.Version, "recency should outweigh the stale version's rate")

	active, err := store.Active("checkout")
	require.NoError(t, err)
	assert.Equal(t, 2, active)
}

func TestRollbackArchivesActiveScriptFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := NewVersionStore(t.TempDir())
	require.NoError(t, err)

	withFrozenClock(t, now.Add(-24*time.Hour))
	_, err = store.AddVersion("checkout", "scripts/checkout.v1.js")
	require.NoError(t, err)
	_, err = store.AddVersion("checkout", "scripts/checkout.v2.js")
	require.NoError(t, err)

	// v1 scores higher than the active v2.
	seedRate(t, store, "checkout", 1, 1.0, 10)
	seedRate(t, store, "checkout", 2, 0.0, 10)

	withFrozenClock(t, now)
	best, err := store.Rollback("checkout")
	require.NoError(t, err)
	assert.Equal(t, 1, best.Version)

	versions, err := store.Versions("checkout")
	require.NoError(t, err)
	require.Len(t, versions, 3, "the outgoing active script is archived as a new version")
	archived := versions[2]
	assert.Equal(t, 3, archived.Version)
	assert.Equal(t, "scripts/checkout.v2.js", archived.ScriptPath)
	assert.Zero(t, archived.RunCount)
}

func TestRollbackWithoutVersions(t *testing.T) {
	store, err := NewVersionStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Rollback("ghost")
	require.ErrorIs(t, err, ErrNoVersions)
}

// seedRate drives RecordRun until the version carries the desired rate.
func seedRate(t *testing.T, store *VersionStore, flowName string, version int, rate float64, runs int) {
	t.Helper()
	successes := int(rate * float64(runs))
	for i := 0; i < runs; i++ {
		require.NoError(t, store.RecordRun(flowName, version, i < successes))
	}
}
