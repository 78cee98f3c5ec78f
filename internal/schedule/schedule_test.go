package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_RunsPeriodically(t *testing.T) {
	r := NewRunner(nil, time.UTC)
	var calls atomic.Int32
	_, err := r.Every("tick", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	r.Start()
	defer r.Stop()
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestEvery_RejectsBadRegistrations(t *testing.T) {
	r := NewRunner(nil, nil)
	_, err := r.Every("x", 0, func(context.Context) error { return nil })
	assert.Error(t, err)

	_, err = r.Every("x", time.Minute, func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = r.Every("x", time.Minute, func(context.Context) error { return nil })
	assert.ErrorContains(t, err, "already registered")
}

func TestRunNow(t *testing.T) {
	r := NewRunner(nil, nil)
	boom := errors.New("boom")
	_, err := r.Every("fail", time.Hour, func(context.Context) error { return boom })
	require.NoError(t, err)

	assert.ErrorIs(t, r.RunNow("fail"), boom)
	assert.ErrorContains(t, r.RunNow("missing"), "unknown job")
}

func TestStop_CancelsJobContext(t *testing.T) {
	r := NewRunner(nil, nil)
	started := make(chan struct{})
	done := make(chan error, 1)
	_, err := r.Every("wait", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	go func() { done <- r.RunNow("wait") }()
	<-started
	r.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job did not observe cancellation")
	}
}
