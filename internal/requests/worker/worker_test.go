package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicledger/internal/requests/service"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) (*service.RefreshResult, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &service.RefreshResult{Fetched: 1}, nil
}

func TestWorker_RunsUntilCancelled(t *testing.T) {
	engine := &countingRefresher{}
	w := NewWorker(engine, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return engine.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_KeepsGoingAfterFailures(t *testing.T) {
	engine := &countingRefresher{err: errors.New("node unreachable")}
	w := NewWorker(engine, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return engine.calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestWorker_DisabledInterval(t *testing.T) {
	engine := &countingRefresher{}
	w := NewWorker(engine, 0, nil)

	require.NoError(t, w.Run(context.Background()))
	assert.Zero(t, engine.calls.Load())
}
