package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultJobTimeout = 5 * time.Second

// Job is a best-effort side effect. A failing job is logged and dropped; it
// never unwinds the state change that produced it.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher runs jobs on a fixed pool of workers fed by a buffered queue.
type Dispatcher struct {
	queue   chan Job
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(logger *zap.Logger, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}

	d := &Dispatcher{
		queue:   make(chan Job, queueSize),
		timeout: timeout,
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	d.logger.Info("started side-effect workers", zap.Int("workers", workers), zap.Int("queue_size", queueSize))
	return d
}

// Submit enqueues job without blocking. It reports false and drops the job
// when the dispatcher is closed or the queue is full, so callers holding a
// request or an event in flight never wait on a slow side effect.
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("dispatcher closed, dropping job", zap.String("job", job.Name))
		return false
	}
	select {
	case d.queue <- job:
		return true
	default:
		d.logger.Warn("side-effect queue full, dropping job", zap.String("job", job.Name), zap.Int("queue_size", cap(d.queue)))
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("side-effect workers stopped")
}

func (d *Dispatcher) workerLoop(id int) {
	for job := range d.queue {
		d.run(id, job)
	}
}

func (d *Dispatcher) run(id int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("job panicked",
				zap.Int("worker", id),
				zap.String("job", job.Name),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := job.Run(ctx); err != nil {
		d.logger.Error("job failed", zap.Int("worker", id), zap.String("job", job.Name), zap.Error(err))
		return
	}
	d.logger.Debug("job done", zap.Int("worker", id), zap.String("job", job.Name))
}
