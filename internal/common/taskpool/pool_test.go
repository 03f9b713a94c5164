// internal/common/taskpool/pool_test.go
package taskpool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/common/observability"
)

func newTestPool(t *testing.T, cfg Config, rdb *redis.Client) *Pool {
	return New(cfg, rdb, logger.NewTestLogger(t), observability.New("test"))
}

func TestSubmitAndRun(t *testing.T) {
	pool := newTestPool(t, Config{Workers: 2, QueueSize: 4}, nil)
	pool.Start(context.Background())
	defer pool.Shutdown()

	done := make(chan string, 1)
	err := pool.Submit(&Task{
		Kind: "test",
		Run: func(ctx context.Context) error {
			done <- "ran"
			return nil
		},
	})
	require.NoError(t, err)

	select {
	case msg := <-done:
		assert.Equal(t, "ran", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	// Pool never started, so the queue cannot drain.
	pool := newTestPool(t, Config{Workers: 1, QueueSize: 1}, nil)

	blocked := func(ctx context.Context) error { return nil }
	require.NoError(t, pool.Submit(&Task{Kind: "test", Run: blocked}))

	err := pool.Submit(&Task{Kind: "test", Run: blocked})
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeQueueFull, pipeerrors.CodeOf(err))
}

func TestSubmit_AfterShutdown(t *testing.T) {
	pool := newTestPool(t, Config{Workers: 1, QueueSize: 4}, nil)
	pool.Start(context.Background())
	pool.Shutdown()

	err := pool.Submit(&Task{Kind: "test", Run: func(ctx context.Context) error { return nil }})
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeQueueFull, pipeerrors.CodeOf(err))
}

func TestSubmitConcurrentWithShutdown(t *testing.T) {
	// Submissions racing Shutdown must resolve to either an accepted task or
	// a typed rejection, never a send on the closed queue.
	for i := 0; i < 200; i++ {
		pool := newTestPool(t, Config{Workers: 2, QueueSize: 4}, nil)
		pool.Start(context.Background())

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 8; j++ {
					err := pool.Submit(&Task{
						Kind: "racer",
						Run:  func(ctx context.Context) error { return nil },
					})
					if err != nil {
						assert.Equal(t, pipeerrors.ErrCodeQueueFull, pipeerrors.CodeOf(err))
					}
				}
			}()
		}

		pool.Shutdown()
		wg.Wait()
	}
}

func TestRetryableErrorIsRetried(t *testing.T) {
	pool := newTestPool(t, Config{
		Workers:      1,
		QueueSize:    4,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, nil)
	pool.Start(context.Background())
	defer pool.Shutdown()

	var attempts int32
	done := make(chan struct{}, 1)
	err := pool.Submit(&Task{
		Kind: "flaky",
		Run: func(ctx context.Context) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return pipeerrors.NewExternalTimeoutError("flaky call")
			}
			done <- struct{}{}
			return nil
		},
	})
	require.NoError(t, err)

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("task never succeeded")
	}
}

func TestNonRetryableErrorGoesStraightToDeadLetter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	pool := newTestPool(t, Config{
		Workers:       1,
		QueueSize:     4,
		MaxRetries:    3,
		RetryBackoff:  time.Millisecond,
		DeadLetterKey: "test:deadletter",
	}, rdb)
	pool.Start(context.Background())

	var attempts int32
	err := pool.Submit(&Task{
		ID:   "task-1",
		Kind: "broken",
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&attempts, 1)
			return pipeerrors.NewMalformedResponseError("call", "bad body")
		},
	})
	require.NoError(t, err)
	pool.Shutdown()

	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "non-retryable errors must not retry")

	entries, err := rdb.LRange(context.Background(), "test:deadletter", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var entry struct {
		TaskID   string `json:"taskId"`
		Kind     string `json:"kind"`
		Error    string `json:"error"`
		Attempts int    `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal([]byte(entries[0]), &entry))
	assert.Equal(t, "task-1", entry.TaskID)
	assert.Equal(t, "broken", entry.Kind)
	assert.Equal(t, 1, entry.Attempts)
	assert.Contains(t, entry.Error, "MALFORMED_RESPONSE")
}

func TestExhaustedRetriesDeadLetter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	pool := newTestPool(t, Config{
		Workers:       1,
		QueueSize:     4,
		MaxRetries:    2,
		RetryBackoff:  time.Millisecond,
		DeadLetterKey: "test:deadletter",
	}, rdb)
	pool.Start(context.Background())

	var attempts int32
	err := pool.Submit(&Task{
		Kind: "always-timing-out",
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&attempts, 1)
			return pipeerrors.NewExternalTimeoutError("call")
		},
	})
	require.NoError(t, err)
	pool.Shutdown()

	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts), "initial attempt plus two retries")

	count, err := rdb.LLen(context.Background(), "test:deadletter").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestForeignErrorIsNotRetried(t *testing.T) {
	pool := newTestPool(t, Config{
		Workers:      1,
		QueueSize:    4,
		MaxRetries:   5,
		RetryBackoff: time.Millisecond,
	}, nil)
	pool.Start(context.Background())

	var attempts int32
	err := pool.Submit(&Task{
		Kind: "plain-error",
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&attempts, 1)
			return errors.New("plain failure")
		},
	})
	require.NoError(t, err)
	pool.Shutdown()

	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}
