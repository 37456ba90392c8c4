package storage

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BatchResult contains the outcome of a batch read.
type BatchResult struct {
	Objects map[string][]byte
	Errors  map[string]error
}

// BatchGetter reads many objects in parallel with bounded concurrency.
type BatchGetter struct {
	storage     ObjectStorage
	concurrency int
}

// NewBatchGetter creates a batch getter. Concurrency below 1 means 1.
func NewBatchGetter(storage ObjectStorage, concurrency int) *BatchGetter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchGetter{storage: storage, concurrency: concurrency}
}

// GetAll reads every path. Per-object failures are reported in the result;
// the returned error is non-nil only when the context ends before all reads
// were started.
func (b *BatchGetter) GetAll(ctx context.Context, paths []string) (*BatchResult, error) {
	result := &BatchResult{
		Objects: make(map[string][]byte, len(paths)),
		Errors:  make(map[string]error),
	}

	sem := semaphore.NewWeighted(int64(b.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	var acquireErr error
	for _, p := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			acquireErr = fmt.Errorf("semaphore acquire failed: %w", err)
			mu.Lock()
			result.Errors[p] = acquireErr
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(path string) {
			defer sem.Release(1)
			defer wg.Done()

			data, err := b.storage.Get(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[path] = err
				return
			}
			result.Objects[path] = data
		}(p)
	}

	wg.Wait()
	return result, acquireErr
}
