package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("cleanup", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("busy")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "delete_file", Payload: "resumes/a.pdf"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueGiveUpHook(t *testing.T) {
	gaveUp := make(chan Job, 1)
	q := NewQueue("cleanup", func(ctx context.Context, job Job) error {
		return errors.New("permission denied")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond, OnGiveUp: func(j Job, _ error) { gaveUp <- j }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "2", Payload: "logos/x.png"}))

	select {
	case job := <-gaveUp:
		assert.Equal(t, "logos/x.png", job.Payload)
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("give up hook not called")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("cleanup", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}
