package async

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"lumen/value"
)

// AwaitAll blocks until every promise resolves, returning their outcomes
// in input order (spec.md §3.4, §4.4): the first error wins — once any
// promise rejects, AwaitAll still waits for the rest to settle (so tasks
// aren't abandoned mid-flight) but returns the first error encountered.
// The `await_all` native does not call it; it goes through ParallelMap.
func AwaitAll(promises []*value.Promise) ([]value.Value, *value.ErrorObject) {
	results := make([]value.Value, len(promises))
	var firstErr *value.ErrorObject
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, p := range promises {
		wg.Add(1)
		go func(i int, p *value.Promise) {
			defer wg.Done()
			out := p.Await()
			if out.IsErr() {
				mu.Lock()
				if firstErr == nil {
					firstErr = out.Err
				}
				mu.Unlock()
				return
			}
			results[i] = out.Val
		}(i, p)
	}
	wg.Wait()
	return results, firstErr
}

// ParallelMap applies fn to every element of items concurrently, with at
// most concurrency in flight at once (spec.md §4.4 "concurrency-limit
// bounding"), returning results in input order or the first error.
func ParallelMap(items []value.Value, concurrency int, fn func(value.Value) (value.Value, error)) ([]value.Value, error) {
	if concurrency <= 0 {
		concurrency = len(items)
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	ctx := context.Background()
	results := make([]value.Value, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, it := range items {
		wg.Add(1)
		go func(i int, it value.Value) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				errs[i] = err
				return
			}
			defer sem.Release(1)
			v, err := fn(it)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = v
		}(i, it)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	return results, nil
}

// Race resolves with the first promise to settle (spec.md §4.4
// Promise.race), whether that settlement is a value or an error.
func Race(promises []*value.Promise) value.Outcome {
	out := make(chan value.Outcome, len(promises))
	for _, p := range promises {
		go func(p *value.Promise) { out <- p.Await() }(p)
	}
	return <-out
}
