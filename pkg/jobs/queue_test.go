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

func TestQueueRoutesByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan string, 1)
	q.Register("reading.completed", func(_ context.Context, job Job) error {
		done <- job.Payload.(string)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "reading.completed", Payload: "user-1"}))

	select {
	case got := <-done:
		assert.Equal(t, "user-1", got)
	case <-time.After(time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRejectsUnknownTypeAndUnstarted(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	q.Register("known", func(context.Context, Job) error { return nil })

	assert.Error(t, q.Enqueue(Job{Type: "known"}))

	q.Start(context.Background())
	defer q.Stop()
	assert.Error(t, q.Enqueue(Job{Type: "unknown"}))
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	var calls int32
	outcome := make(chan error, 1)
	q := NewQueue("test", QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Observer: func(_ string, err error) {
			outcome <- err
		},
	})
	q.Register("flaky", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))

	select {
	case err := <-outcome:
		assert.EqualError(t, err, "boom")
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job outcome not reported")
	}
}
