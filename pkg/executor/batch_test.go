package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatchIsolatesRuns(t *testing.T) {
	var driversBuilt atomic.Int32
	var cleanups atomic.Int32

	var mu sync.Mutex
	drivers := make([]*fakeDriver, 0)

	factory := func(_ context.Context, _ int) (*Runner, func(), error) {
		driversBuilt.Add(1)
		d := newFakeDriver()
		mu.Lock()
		drivers = append(drivers, d)
		mu.Unlock()
		return NewRunner(d, fastOptions()), func() { cleanups.Add(1) }, nil
	}

	paramSets := []map[string]string{
		{"sku": "A"}, {"sku": "B"}, {"sku": "C"}, {"sku": "D"}, {"sku": "E"},
	}

	batch, err := RunBatch(context.Background(), threeStepFlow(), paramSets, 2, factory)
	require.NoError(t, err)

	assert.Equal(t, 5, batch.Total)
	assert.Equal(t, 5, batch.Passed)
	assert.Equal(t, 0, batch.Failed)
	require.Len(t, batch.Results, 5)
	for _, result := range batch.Results {
		assert.True(t, result.Succeeded())
	}

	// A fresh driver per run, never shared across parameter sets, and
	// every one cleaned up.
	assert.Equal(t, int32(5), driversBuilt.Load())
	assert.Equal(t, int32(5), cleanups.Load())
	for _, d := range drivers {
		assert.Len(t, d.calls, 3, "each driver serves exactly one run's steps")
	}
}

func TestRunBatchCleanupNamesRuns(t *testing.T) {
	var mu sync.Mutex
	cleaned := make(map[int]bool)

	factory := func(_ context.Context, run int) (*Runner, func(), error) {
		return NewRunner(newFakeDriver(), fastOptions()), func() {
			mu.Lock()
			cleaned[run] = true
			mu.Unlock()
		}, nil
	}

	_, err := RunBatch(context.Background(), threeStepFlow(), []map[string]string{{}, {}, {}}, 2, factory)
	require.NoError(t, err)

	// Every run index reaches its own cleanup, so per-run artifacts
	// (traces, screenshots) get distinct names.
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, cleaned)
}

func TestRunBatchCountsFailures(t *testing.T) {
	factory := func(context.Context, int) (*Runner, func(), error) {
		d := newFakeDriver()
		d.failRemaining[1] = -1
		return NewRunner(d, fastOptions()), func() {}, nil
	}

	batch, err := RunBatch(context.Background(), threeStepFlow(), []map[string]string{{}, {}}, 1, factory)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Failed)
	assert.Equal(t, 0, batch.Passed)
}

func TestRunBatchPropagatesDriverFailure(t *testing.T) {
	factory := func(context.Context, int) (*Runner, func(), error) {
		return nil, nil, errors.New("browser unreachable")
	}

	_, err := RunBatch(context.Background(), threeStepFlow(), []map[string]string{{}}, 1, factory)
	require.Error(t, err)
}

func TestRunBatchEmptyParamSets(t *testing.T) {
	batch, err := RunBatch(context.Background(), threeStepFlow(), nil, 4, nil)
	require.NoError(t, err)
	assert.Zero(t, batch.Total)
}
