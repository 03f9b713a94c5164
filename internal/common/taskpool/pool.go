// internal/common/taskpool/pool.go

// Package taskpool runs enrichment work detached from the request that
// caused it, on a fixed number of workers over a bounded queue. Submitting
// to a full queue fails fast instead of growing an unbounded goroutine pile.
package taskpool

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/common/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of detached background work. Run must honor ctx and
// return nil for work that should not be retried (best-effort pipelines log
// their own sub-step failures and return nil).
type Task struct {
	ID      string
	Kind    string
	Payload interface{} // serialized into the dead letter on exhaustion
	Run     func(ctx context.Context) error
}

// Config controls pool sizing and retry behavior.
type Config struct {
	Workers       int
	QueueSize     int
	MaxRetries    int           // additional attempts after the first
	RetryBackoff  time.Duration // doubled per attempt
	DeadLetterKey string
}

// Pool is a bounded background worker pool with a Redis dead-letter list.
type Pool struct {
	cfg    Config
	rdb    *redis.Client
	logger logger.Logger
	obs    *observability.Observability

	queue  chan *Task
	group  *errgroup.Group
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

type deadLetterEntry struct {
	TaskID   string      `json:"taskId"`
	Kind     string      `json:"kind"`
	Payload  interface{} `json:"payload,omitempty"`
	Error    string      `json:"error"`
	Attempts int         `json:"attempts"`
	FailedAt time.Time   `json:"failedAt"`
}

func New(cfg Config, rdb *redis.Client, log logger.Logger, obs *observability.Observability) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.DeadLetterKey == "" {
		cfg.DeadLetterKey = "pipeline:deadletter"
	}
	return &Pool{
		cfg:    cfg,
		rdb:    rdb,
		logger: log.With(map[string]interface{}{"component": "taskpool"}),
		obs:    obs,
		queue:  make(chan *Task, cfg.QueueSize),
	}
}

// Start launches the workers. The pool stops when Shutdown is called or the
// parent context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	g, ctx := errgroup.WithContext(ctx)
	p.group = g

	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			p.worker(ctx)
			return nil
		})
	}

	p.logger.Info("task pool started", map[string]interface{}{
		"workers":   p.cfg.Workers,
		"queueSize": p.cfg.QueueSize,
	})
}

// Submit enqueues a task without blocking. A full queue is backpressure:
// the caller gets a typed error and decides what to log.
func (p *Pool) Submit(task *Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	// The lock is held across the send: Shutdown closes the queue under the
	// same lock, so a send can never land on a closed channel. The send is
	// non-blocking, so the lock is never held for long.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return pipeerrors.NewQueueFullError(task.Kind)
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return pipeerrors.NewQueueFullError(task.Kind)
	}
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.runTask(ctx, task)
		}
	}
}

func (p *Pool) runTask(ctx context.Context, task *Task) {
	start := time.Now()
	backoff := p.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var err error
	attempts := 0
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
		}

		attempts++
		err = task.Run(ctx)
		if err == nil {
			p.obs.RecordTaskProcessed(ctx, task.Kind, "ok")
			p.obs.RecordTaskDuration(ctx, task.Kind, time.Since(start))
			return
		}

		if !pipeerrors.IsRetryable(err) {
			break
		}

		p.logger.Warn("task failed, retrying", map[string]interface{}{
			"taskId":  task.ID,
			"kind":    task.Kind,
			"attempt": attempts,
			"error":   err.Error(),
		})
	}

	p.obs.RecordTaskProcessed(ctx, task.Kind, "failed")
	p.obs.RecordTaskDuration(ctx, task.Kind, time.Since(start))
	p.deadLetter(ctx, task, err, attempts)
}

func (p *Pool) deadLetter(ctx context.Context, task *Task, cause error, attempts int) {
	p.logger.Error("task exhausted retries", map[string]interface{}{
		"taskId":   task.ID,
		"kind":     task.Kind,
		"attempts": attempts,
		"error":    cause.Error(),
	})
	p.obs.RecordDeadLetter(ctx, task.Kind)

	if p.rdb == nil {
		return
	}

	entry, err := json.Marshal(deadLetterEntry{
		TaskID:   task.ID,
		Kind:     task.Kind,
		Payload:  task.Payload,
		Error:    cause.Error(),
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := p.rdb.LPush(ctx, p.cfg.DeadLetterKey, entry).Err(); err != nil {
		p.logger.Error("dead letter push failed", map[string]interface{}{
			"taskId": task.ID,
			"error":  err.Error(),
		})
	}
}

// Shutdown stops accepting tasks, drains the queue, and waits for workers.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	if p.group != nil {
		_ = p.group.Wait()
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("task pool stopped", nil)
}
