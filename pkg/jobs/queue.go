package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background work, such as one generate-all run.
type Job struct {
	ID       string
	Type     string
	Payload  any
	Enqueued time.Time
}

// Handler processes a job. The context is cancelled on Stop or when the job
// exceeds QueueConfig.JobTimeout.
type Handler func(context.Context, Job) error

// QueueConfig configures a Queue. One worker runs jobs strictly in
// submission order.
type QueueConfig struct {
	Workers    int
	BufferSize int
	JobTimeout time.Duration
	Logger     *zap.Logger
	// OnDone, when set, is called after every job with its outcome.
	OnDone func(job Job, elapsed time.Duration, err error)
}

var (
	// ErrQueueFull is returned by Enqueue when the buffer has no room.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueClosed is returned by Enqueue before Start or after Stop.
	ErrQueueClosed = errors.New("queue closed")
)

// Queue dispatches jobs to a fixed set of goroutines.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs chan Job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	open   bool
}

// NewQueue builds a stopped queue around handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Calling it on a running queue does nothing.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.open {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.open = true
	for i := 1; i <= q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(i)
	}
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers), zap.Int("buffer", q.cfg.BufferSize))
}

// Stop refuses new jobs, cancels the running ones and waits for the workers.
// Jobs still buffered are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.open {
		q.mu.Unlock()
		return
	}
	q.open = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	if dropped := len(q.jobs); dropped > 0 {
		q.logger.Warn("queue stopped with pending jobs", zap.Int("dropped", dropped))
	}
	q.logger.Info("queue stopped")
}

// Depth reports how many jobs wait in the buffer.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Enqueue adds a job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.open {
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) work(id int) {
	defer q.wg.Done()
	for {
		// A cancelled queue must not pick up buffered jobs.
		if q.ctx.Err() != nil {
			return
		}
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(id, job)
		}
	}
}

func (q *Queue) run(worker int, job Job) {
	ctx := q.ctx
	if q.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.JobTimeout)
		defer cancel()
	}
	fields := []zap.Field{zap.Int("worker", worker), zap.String("job_id", job.ID), zap.String("type", job.Type)}

	started := time.Now()
	err := q.invoke(ctx, job)
	elapsed := time.Since(started)
	if q.cfg.OnDone != nil {
		q.cfg.OnDone(job, elapsed, err)
	}
	if err != nil {
		q.logger.Error("job failed", append(fields, zap.Duration("elapsed", elapsed), zap.Error(err))...)
		return
	}
	q.logger.Debug("job finished", append(fields, zap.Duration("elapsed", elapsed))...)
}

// invoke reports a handler panic as the job's error.
func (q *Queue) invoke(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()
	return q.handler(ctx, job)
}
