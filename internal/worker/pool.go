package worker

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/baharkarakas/fintech-transfers/internal/metrics"
)

var (
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker pool stopped")
)

type task func()

// Pool runs submitted jobs on a fixed set of goroutines behind a bounded queue.
type Pool struct {
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	jobs    chan task
}

func NewPool(n, queue int) *Pool {
	if n <= 0 {
		n = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{jobs: make(chan task, queue)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
				run(job)
			}
		}()
	}
	return p
}

// run keeps a panicking job from taking the worker, and the process, down.
func run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.WorkerPanics.Inc()
			slog.Default().Error("worker job panicked", "err", rec, "stack", string(debug.Stack()))
		}
	}()
	job()
}

// TrySubmit queues f without blocking. It returns ErrQueueFull when every
// worker is busy and the queue has no room.
func (p *Pool) TrySubmit(f task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
		return nil
	default:
		metrics.WorkerRejected.Inc()
		return ErrQueueFull
	}
}

// Stop refuses new jobs, drains the queue and waits for running jobs.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
