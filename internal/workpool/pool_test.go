package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_ReturnsTaskResult(t *testing.T) {
	p := New(nil, WithWorkers(2))
	defer p.Shutdown(context.Background())

	boom := errors.New("boom")
	assert.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, p.Do(context.Background(), func(context.Context) error { return boom }), boom)
}

func TestDo_BoundsConcurrency(t *testing.T) {
	p := New(nil, WithWorkers(2), WithQueueSize(16))
	defer p.Shutdown(context.Background())

	var running, peak int32
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			errs <- p.Do(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errs)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestDo_TaskTimeout(t *testing.T) {
	p := New(nil, WithWorkers(1), WithTaskTimeout(10*time.Millisecond))
	defer p.Shutdown(context.Background())

	err := p.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_PanicBecomesError(t *testing.T) {
	p := New(nil, WithWorkers(1))
	defer p.Shutdown(context.Background())

	err := p.Do(context.Background(), func(context.Context) error { panic("oops") })
	assert.Error(t, err)

	// worker survives
	assert.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestTryDo_QueueFull(t *testing.T) {
	p := New(nil, WithWorkers(1), WithQueueSize(1))
	defer p.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	go func() {
		_ = p.Do(context.Background(), func(context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return len(p.ch) == 1 }, time.Second, time.Millisecond)

	err := p.TryDo(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)
}

func TestShutdown_RejectsNewWork(t *testing.T) {
	p := New(nil)
	p.Shutdown(context.Background())
	p.Shutdown(context.Background())

	err := p.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmit_ReturnsValue(t *testing.T) {
	p := New(nil, WithWorkers(2))
	defer p.Shutdown(context.Background())

	var finished int32
	got, err := Submit(context.Background(), p, func(context.Context) (string, error) {
		return "HSBC", nil
	}, func() { atomic.AddInt32(&finished, 1) })
	require.NoError(t, err)
	assert.Equal(t, "HSBC", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))

	boom := errors.New("boom")
	got, err = Submit(context.Background(), p, func(context.Context) (string, error) {
		return "ignored", boom
	}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, got)
}

func TestSubmit_CancelledCallerDoesNotWaitForFinish(t *testing.T) {
	p := New(nil, WithWorkers(1))
	defer p.Shutdown(context.Background())

	proceed := make(chan struct{})
	started := make(chan struct{})
	finished := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := Submit(ctx, p, func(context.Context) (int, error) {
			close(started)
			<-proceed
			return 42, nil
		}, func() { close(finished) })
		errs <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)

	select {
	case <-finished:
		t.Fatal("finish ran while the task was still running")
	default:
	}

	close(proceed)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("finish never ran")
	}
}

func TestSubmit_FinishRunsWhenRejected(t *testing.T) {
	p := New(nil)
	p.Shutdown(context.Background())

	var finished int32
	_, err := Submit(context.Background(), p, func(context.Context) (int, error) {
		t.Error("task ran on a closed pool")
		return 0, nil
	}, func() { atomic.AddInt32(&finished, 1) })
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))
}
