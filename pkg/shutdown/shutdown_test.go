package shutdown

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func reset() {
	mu.Lock()
	defer mu.Unlock()
	isShuttingDown = false
	cleanupJobs = nil
	cancels = map[int]context.CancelFunc{}
	jobs = sync.WaitGroup{}
}

func TestWaitJobsCancelsAndCleansUp(t *testing.T) {
	reset()
	t.Cleanup(reset)
	ctx, cancel := Context(context.Background())
	defer cancel()
	released, releaseCancel := Context(context.Background())
	releaseCancel()
	require.Error(t, released.Err())

	order := []string{}
	AddCleanupJob("first", func(bool) { order = append(order, "first") })
	AddCleanupJob("second", func(bool) { order = append(order, "second") })
	AddCleanupJob("gone", func(bool) { order = append(order, "gone") })
	DeleteCleanupJob("gone")

	done := false
	AddJob()
	go func() {
		<-ctx.Done()
		done = true
		DoneJob()
	}()

	require.False(t, IsShuttingDown())
	WaitJobs()
	require.True(t, IsShuttingDown())
	require.True(t, done)
	require.Equal(t, []string{"second", "first"}, order)

	late, lateCancel := Context(context.Background())
	defer lateCancel()
	require.Error(t, late.Err())
}
