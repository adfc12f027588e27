package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by Submit once the queue no longer accepts work.
var ErrStopped = errors.New("queue stopped")

// ErrFull is returned by Submit when the buffer has no free slot.
var ErrFull = errors.New("queue full")

// Task is one unit of background work.
type Task struct {
	ID       string
	Kind     string
	Attempt  int
	Enqueued time.Time
}

// Handler runs a task. A non-nil error schedules a retry until the attempt
// budget is spent.
type Handler func(context.Context, Task) error

// Config tunes the worker pool.
type Config struct {
	Workers    int
	Buffer     int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Stats counts task outcomes since Start.
type Stats struct {
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Retried   uint64 `json:"retried"`
}

// Queue dispatches submitted tasks to a fixed pool of goroutines. Retries
// happen inside the worker so Stop leaves nothing running.
type Queue struct {
	name    string
	handler Handler
	cfg     Config

	tasks  chan Task
	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	succeeded atomic.Uint64
	failed    atomic.Uint64
	retried   atomic.Uint64
}

// NewQueue builds a queue; call Start before Submit.
func NewQueue(name string, handler Handler, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		tasks:   make(chan Task, cfg.Buffer),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop cancels in-flight retries and waits for every worker to return.
// Tasks still buffered are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name), zap.Int("dropped", len(q.tasks)))
}

// Submit buffers task without blocking.
func (q *Queue) Submit(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopped {
		return ErrStopped
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrFull
	}
}

// Stats returns the outcome counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Retried:   q.retried.Load(),
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.run(task)
		}
	}
}

func (q *Queue) run(task Task) {
	for {
		err := q.handler(q.ctx, task)
		if err == nil {
			q.succeeded.Add(1)
			return
		}
		if task.Attempt >= q.cfg.MaxRetries || q.ctx.Err() != nil {
			q.failed.Add(1)
			q.cfg.Logger.Error("task failed",
				zap.String("queue", q.name),
				zap.String("task_id", task.ID),
				zap.String("kind", task.Kind),
				zap.Int("attempts", task.Attempt+1),
				zap.Error(err))
			return
		}
		task.Attempt++
		q.retried.Add(1)
		q.cfg.Logger.Warn("task failed, retrying",
			zap.String("queue", q.name),
			zap.String("task_id", task.ID),
			zap.Int("attempt", task.Attempt),
			zap.Error(err))

		timer := time.NewTimer(q.cfg.RetryDelay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			q.failed.Add(1)
			return
		case <-timer.C:
		}
	}
}
