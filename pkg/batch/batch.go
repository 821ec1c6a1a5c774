// Package batch runs a list of work items through a worker with a bounded
// number of in-flight invocations. Items are processed in consecutive chunks;
// every item of a chunk runs concurrently and the next chunk starts only once
// the whole chunk has finished, with a fixed pause in between to stay under
// upstream rate limits.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Run partitions items into chunks of at most size and invokes worker on every
// item. Results are returned in input order regardless of completion order.
// A failing worker never aborts the rest of the batch: Run always waits for
// every scheduled item, collecting individual errors into the joined error.
// The pause is inserted between chunks but never after the final one.
func Run[T, R any](ctx context.Context, items []T, size int, pause time.Duration, worker func(context.Context, T) (R, error)) ([]R, error) {
	if size <= 0 {
		size = 1
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := min(start+size, len(items))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = worker(ctx, items[i])
			}(i)
		}
		wg.Wait()

		if end < len(items) && pause > 0 {
			timer := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return results, errors.Join(errs...)
}
