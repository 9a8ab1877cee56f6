package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"semtok/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestSubmit(t *testing.T) {
	s := scheduler.New(4)
	s.Run()

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		require.NoError(t, s.Submit(scheduler.Task{Name: name, Execute: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}}))
	}
	s.Stop()

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestFailingTaskDoesNotStopWorker(t *testing.T) {
	s := scheduler.New(4)
	s.Run()

	var ran atomic.Bool
	require.NoError(t, s.Submit(scheduler.Task{Name: "fail", Execute: func(context.Context) error {
		return errors.New("boom")
	}}))
	require.NoError(t, s.Submit(scheduler.Task{Name: "ok", Execute: func(context.Context) error {
		ran.Store(true)
		return nil
	}}))
	s.Stop()

	assert.True(t, ran.Load())
}

func TestEvery(t *testing.T) {
	s := scheduler.New(1)
	s.Run()

	var runs atomic.Int32
	s.Every(5*time.Millisecond, scheduler.Task{Name: "tick", Execute: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 5*time.Second, time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestSubmitAfterStop(t *testing.T) {
	s := scheduler.New(1)
	s.Run()
	s.Stop()
	s.Stop()

	err := s.Submit(scheduler.Task{Name: "late", Execute: func(context.Context) error { return nil }})
	assert.True(t, errors.Is(err, scheduler.ErrStopped))
}
