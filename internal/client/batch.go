package client

import (
	"context"
	"sync"
	"sync/atomic"
)

// BatchResult counts the outcome of a batch of task creations.
type BatchResult struct {
	Submitted  int
	Successful int
	Failed     int
	// FirstError is the first failure seen, if any.
	FirstError error
}

// CreateTasks creates one task per title with workers concurrent requests.
// It stops handing out titles when ctx ends.
func (c *Client) CreateTasks(ctx context.Context, titles []string, workers int) BatchResult {
	if workers <= 0 {
		workers = 1
	}

	var (
		submitted  int64
		successful int64
		failed     int64
		errOnce    sync.Once
		firstErr   error
	)

	titleCh := make(chan string, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for title := range titleCh {
				atomic.AddInt64(&submitted, 1)
				if _, err := c.CreateTask(ctx, title); err != nil {
					atomic.AddInt64(&failed, 1)
					errOnce.Do(func() { firstErr = err })
					continue
				}
				atomic.AddInt64(&successful, 1)
			}
		}()
	}

	go func() {
		defer close(titleCh)
		for _, title := range titles {
			select {
			case <-ctx.Done():
				return
			case titleCh <- title:
			}
		}
	}()

	wg.Wait()
	return BatchResult{
		Submitted:  int(atomic.LoadInt64(&submitted)),
		Successful: int(atomic.LoadInt64(&successful)),
		Failed:     int(atomic.LoadInt64(&failed)),
		FirstError: firstErr,
	}
}
