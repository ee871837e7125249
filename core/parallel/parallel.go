// Package parallel provides CPU-bounded fan-out helpers used for forest and
// cross-validation fitting.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// Parallelize splits [0, items) into contiguous ranges, one per CPU core,
// and runs fn on each range concurrently. It returns after all calls finish.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker cap. workers <= 0
// means one worker per CPU core.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ForEach runs fn(i) for every i in [0, items) across at most workers
// goroutines and returns the first non-nil error by index order. A panic in
// fn is returned as a *errors.PanicError for that index.
func ForEach(items, workers int, fn func(i int) error) error {
	errs := make([]error, items)
	ParallelizeN(items, workers, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = personaErrors.SafeExecute(fmt.Sprintf("parallel.ForEach[%d]", i), func() error {
				return fn(i)
			})
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
