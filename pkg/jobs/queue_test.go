package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobsSequentiallyWithOneWorker(t *testing.T) {
	var (
		mu      sync.Mutex
		order   []string
		running int32
		overlap int32
		done    = make(chan struct{}, 3)
	)
	q := NewQueue("generation", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		order = append(order, job.ID)
		mu.Unlock()
		atomic.AddInt32(&running, -1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "generate_all"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job did not finish")
		}
	}

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, int32(0), atomic.LoadInt32(&overlap))
}

func TestQueueRejectsWhenClosed(t *testing.T) {
	q := NewQueue("generation", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "a"}), ErrQueueClosed)

	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{ID: "b"}), ErrQueueClosed)
}

func TestQueueReportsOutcomeAndRecoversPanics(t *testing.T) {
	type outcome struct {
		id  string
		err error
	}
	results := make(chan outcome, 2)
	q := NewQueue("generation", func(ctx context.Context, job Job) error {
		if job.ID == "boom" {
			panic("nil grid")
		}
		return nil
	}, QueueConfig{
		OnDone: func(job Job, _ time.Duration, err error) {
			results <- outcome{id: job.ID, err: err}
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "boom"}))
	require.NoError(t, q.Enqueue(Job{ID: "ok"}))

	first := <-results
	assert.Equal(t, "boom", first.id)
	assert.ErrorContains(t, first.err, "panicked")
	second := <-results
	assert.Equal(t, "ok", second.id)
	assert.NoError(t, second.err)
}

func TestQueueAppliesJobTimeout(t *testing.T) {
	errs := make(chan error, 1)
	q := NewQueue("generation", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{
		JobTimeout: 10 * time.Millisecond,
		OnDone:     func(_ Job, _ time.Duration, err error) { errs <- err },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "slow"}))
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled")
	}
}

func TestQueueReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("generation", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "running"}))
	require.Eventually(t, func() bool { return q.Depth() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "waiting"}))
	err := q.Enqueue(Job{ID: "overflow"})
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestQueueStopLeavesBufferedJobsUnrun(t *testing.T) {
	var ran []string
	var mu sync.Mutex
	started := make(chan struct{}, 1)
	q := NewQueue("generation", func(ctx context.Context, job Job) error {
		mu.Lock()
		ran = append(ran, job.ID)
		mu.Unlock()
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{Workers: 1, BufferSize: 2})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "running"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "waiting"}))
	q.Stop()

	assert.Equal(t, []string{"running"}, ran)
	assert.Equal(t, 1, q.Depth())
}
