package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/reflow/pkg/flow"
)

// RunnerFactory builds the runner, and the driver behind it, for one run
// of a batch. Every run owns an entirely separate browser session;
// nothing leaks from one parameter set's run into the next. run is the
// parameter set's index, so cleanup can name per-run artifacts. The
// returned cleanup is called as soon as that run finishes.
type RunnerFactory func(ctx context.Context, run int) (*Runner, func(), error)

// BatchResult aggregates the outcomes of one batch.
type BatchResult struct {
	Total   int
	Passed  int
	Failed  int
	Results []*Result
}

// RunBatch replays the same flow once per parameter set, with at most
// parallelism runs in flight. Work is pulled from a shared queue so early
// finishers pick up remaining sets.
func RunBatch(ctx context.Context, f *flow.Flow, paramSets []map[string]string, parallelism int, newRunner RunnerFactory) (*BatchResult, error) {
	if len(paramSets) == 0 {
		return &BatchResult{}, nil
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	if parallelism > len(paramSets) {
		parallelism = len(paramSets)
	}

	type workItem struct {
		params map[string]string
		index  int
	}

	queue := make(chan workItem, len(paramSets))
	for i, params := range paramSets {
		queue <- workItem{params: params, index: i}
	}
	close(queue)

	results := make([]*Result, len(paramSets))
	errs := make([]error, len(paramSets))
	var wg sync.WaitGroup

	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for item := range queue {
				runner, cleanup, err := newRunner(ctx, item.index)
				if err != nil {
					errs[item.index] = fmt.Errorf("executor: run %d driver: %w", item.index, err)
					continue
				}
				results[item.index] = runner.Run(ctx, f, item.params)
				cleanup()
			}
		}()
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	batch := &BatchResult{Total: len(paramSets), Results: results}
	for _, result := range results {
		if result != nil && result.Succeeded() {
			batch.Passed++
		} else {
			batch.Failed++
		}
	}
	return batch, nil
}
