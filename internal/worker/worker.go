// Package worker runs a batch of independent tasks on a fixed number of goroutines.
package worker

import (
	"context"
	"sync"

	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

type Pool struct {
	size   int
	logger *logger_i.Logger
}

// NewPool returns a pool with size workers. A size below one runs tasks one at a time.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size, logger: logger_i.NewLogger("WorkerPool")}
}

func (p *Pool) Size() int {
	return p.size
}

// Run calls task for every index in [0, n) and waits for all started tasks.
// Once ctx is done no new index is dispatched; the skipped indexes are returned in order.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) []int {
	if n == 0 {
		return nil
	}
	workers := min(p.size, n)
	jobChannel := make(chan int)
	var workerWaitGroup sync.WaitGroup

	for w := 0; w < workers; w++ {
		workerWaitGroup.Add(1)
		metrics.IncrementActiveWorkerCount()
		go func() {
			defer workerWaitGroup.Done()
			defer metrics.DecrementActiveWorkerCount()
			for i := range jobChannel {
				task(ctx, i)
			}
		}()
	}

	var skipped []int
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			skipped = append(skipped, i)
			continue
		}
		select {
		case jobChannel <- i:
		case <-ctx.Done():
			skipped = append(skipped, i)
		}
	}
	close(jobChannel)
	workerWaitGroup.Wait()

	if len(skipped) > 0 {
		p.logger.WithTrace(ctx).Warn("batch cancelled before all tasks started", "skipped", len(skipped), "total", n)
	}
	return skipped
}
