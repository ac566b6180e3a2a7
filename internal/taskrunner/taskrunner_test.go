package taskrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerExecutesDispatchedTasks(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		wg   sync.WaitGroup
	)
	wg.Add(3)
	runner := NewWithFunc(func(ctx context.Context, taskId string) error {
		defer wg.Done()
		mu.Lock()
		seen = append(seen, taskId)
		mu.Unlock()
		if taskId == "b" {
			return errors.New("boom")
		}
		return nil
	}, Config{QueueSize: 4, Concurrency: 2})
	t.Cleanup(runner.Close)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, runner.Dispatch(id))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestRunnerQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	runner := NewWithFunc(func(ctx context.Context, taskId string) error {
		started <- struct{}{}
		<-release
		return nil
	}, Config{QueueSize: 1, Concurrency: 1})
	t.Cleanup(func() {
		close(release)
		runner.Close()
	})

	require.NoError(t, runner.Dispatch("running"))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up the task")
	}

	require.NoError(t, runner.Dispatch("queued"))
	assert.Equal(t, 1, runner.Pending())
	assert.ErrorIs(t, runner.Dispatch("overflow"), ErrQueueFull)
}

func TestRunnerRecoversFromPanic(t *testing.T) {
	done := make(chan struct{})
	runner := NewWithFunc(func(ctx context.Context, taskId string) error {
		if taskId == "panic" {
			panic("bad frame")
		}
		close(done)
		return nil
	}, Config{QueueSize: 2, Concurrency: 1})
	t.Cleanup(runner.Close)

	require.NoError(t, runner.Dispatch("panic"))
	require.NoError(t, runner.Dispatch("ok"))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker died after panic")
	}
}

func TestRunnerRejectsAfterClose(t *testing.T) {
	runner := NewWithFunc(func(ctx context.Context, taskId string) error { return nil }, Config{})
	runner.Close()
	runner.Close()

	assert.ErrorIs(t, runner.Dispatch("late"), ErrRunnerStopped)
	assert.Error(t, runner.Dispatch(""))
}

func TestNormalizeConfig(t *testing.T) {
	assert.Equal(t, DefaultConfig(), normalizeConfig(Config{}))
	assert.Equal(t, Config{QueueSize: 3, Concurrency: 5}, normalizeConfig(Config{QueueSize: 3, Concurrency: 5}))
}
