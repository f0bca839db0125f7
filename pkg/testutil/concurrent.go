package testutil

import (
	"context"
	"errors"
	"sync"

	"roster/internal/sentinel"
)

// ConcurrentResult tallies the outcomes of concurrent test operations,
// bucketed by the sentinel errors the stores hand back.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	NotFounds int32
	Expired   int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds + r.Expired
}

// RunConcurrent executes fn across parallel goroutines and buckets each
// outcome, replacing the WaitGroup plus counter boilerplate that concurrency
// tests otherwise repeat.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	successes, errs := RunConcurrentCollect(goroutines, fn)

	result := &ConcurrentResult{Successes: successes}
	for _, err := range errs {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			result.Conflicts++
		case errors.Is(err, sentinel.ErrNotFound):
			result.NotFounds++
		case errors.Is(err, sentinel.ErrExpired):
			result.Expired++
		default:
			result.Errors++
		}
	}
	return result
}

// RunConcurrentCtx is RunConcurrent for operations that take a context.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}

// RunConcurrentCollect executes fn across parallel goroutines and returns
// every error for tests that inspect failures beyond the standard buckets.
// Each goroutine writes its own result slot, so no lock sits between the
// operations under test.
func RunConcurrentCollect(goroutines int, fn func(idx int) error) (successes int32, errs []error) {
	results := make([]error, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := range results {
		go func() {
			defer wg.Done()
			results[i] = fn(i)
		}()
	}
	wg.Wait()

	for _, err := range results {
		if err == nil {
			successes++
		} else {
			errs = append(errs, err)
		}
	}
	return successes, errs
}
