package utils

import (
	"context"
	"sync"
)

// RunInWaves fans fn out over item indexes in waves of at most concurrency
// goroutines. A wave fully settles, failures included, before the next wave
// starts. fn is responsible for recording its own per-item outcome; RunInWaves
// only reports cancellation between waves.
func RunInWaves(ctx context.Context, total, concurrency int, fn func(i int)) error {
	if concurrency < 1 {
		concurrency = 1
	}
	for start := 0; start < total; start += concurrency {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + concurrency
		if end > total {
			end = total
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				fn(i)
			}(i)
		}
		wg.Wait()
	}
	return nil
}
