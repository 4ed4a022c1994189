package orchestrator

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/quantfold/backtest/internal/core"
	"github.com/quantfold/backtest/internal/metrics"
)

// Runner executes queued runs on a fixed pool of workers. Submitting to
// a full queue fails fast with ErrQueueFull rather than blocking.
type Runner struct {
	orch        *Orchestrator
	queue       chan string
	workerCount int
	metrics     *metrics.Registry
	logger      *zap.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
}

// NewRunner creates a Runner with the given worker count and queue size
func NewRunner(orch *Orchestrator, workerCount, queueSize int, m *metrics.Registry, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		orch:        orch,
		queue:       make(chan string, queueSize),
		workerCount: workerCount,
		metrics:     m,
		logger:      logger,
	}
}

// Start launches the worker goroutines. Workers exit when the context is
// cancelled or Stop drains the queue.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
	r.logger.Info("started run workers", zap.Int("workers", r.workerCount))
}

// Submit enqueues a run for background execution
func (r *Runner) Submit(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return core.WrapError(core.ErrQueueFull, errors.New("runner stopped"))
	}

	select {
	case r.queue <- runID:
		r.metrics.SetQueueDepth(len(r.queue))
		return nil
	default:
		return core.ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight runs to finish. Queued
// runs still execute; new submissions are rejected.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case runID, ok := <-r.queue:
			if !ok {
				return
			}
			r.metrics.SetQueueDepth(len(r.queue))
			if err := r.orch.Execute(ctx, runID); err != nil {
				r.logger.Warn("run execution failed",
					zap.Int("worker_id", id),
					zap.String("run_id", runID),
					zap.Error(err))
			}
		}
	}
}
