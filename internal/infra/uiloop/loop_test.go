package uiloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/fringeproc/pkg/common/logger"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc, <-chan error) {
	t.Helper()
	l := New(16, logger.Noop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	t.Cleanup(cancel)
	return l, cancel, errc
}

func TestLoop_RunsTasksInPostOrder(t *testing.T) {
	t.Parallel()

	l, _, _ := startLoop(t)

	var got []int
	for i := range 50 {
		require.True(t, l.Post(func(context.Context) { got = append(got, i) }))
	}
	require.NoError(t, l.Call(context.Background(), func(context.Context) {}))

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_TasksRunOnOneGoroutineAtATime(t *testing.T) {
	t.Parallel()

	l, _, _ := startLoop(t)

	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = l.Call(context.Background(), func(context.Context) { counter++ })
			}
		}()
	}
	wg.Wait()

	var final int
	require.NoError(t, l.Call(context.Background(), func(context.Context) { final = counter }))
	assert.Equal(t, 800, final)
}

func TestLoop_StopRejectsWork(t *testing.T) {
	t.Parallel()

	l, _, errc := startLoop(t)
	l.Stop()
	l.Stop()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.False(t, l.Post(func(context.Context) {}))
	assert.ErrorIs(t, l.Call(context.Background(), func(context.Context) {}), ErrStopped)
}

func TestLoop_ContextCancelStops(t *testing.T) {
	t.Parallel()

	l, cancel, errc := startLoop(t)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	<-l.Done()
}
