// Package shutdown coordinates interrupts with long-running stack operations.
//
// The first SIGINT or SIGTERM cancels every context handed out by Context and
// runs the cleanup jobs; registered jobs are then waited for before the process exits.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
)

var (
	jobs           sync.WaitGroup
	mu             sync.Mutex
	isShuttingDown bool
	cleanupJobs    []cleanupJob
	cancels        = map[int]context.CancelFunc{}
	nextCancel     int
)

type cleanupJob struct {
	name string
	fn   func(isSignal bool)
}

// IsShuttingDown returns true once shutdown has started.
func IsShuttingDown() bool {
	mu.Lock()
	defer mu.Unlock()
	return isShuttingDown
}

// AddJob registers work that must finish before exit. Pair with DoneJob.
func AddJob() {
	mu.Lock()
	jobs.Add(1)
	mu.Unlock()
}

func DoneJob() {
	jobs.Done()
}

// AddCleanupJob registers fn to run on shutdown. Jobs run in reverse order of registration.
func AddCleanupJob(name string, fn func(isSignal bool)) {
	mu.Lock()
	defer mu.Unlock()
	cleanupJobs = append(cleanupJobs, cleanupJob{name: name, fn: fn})
}

func DeleteCleanupJob(name string) {
	mu.Lock()
	defer mu.Unlock()
	cleanupJobs = slices.DeleteFunc(cleanupJobs, func(j cleanupJob) bool {
		return j.name == name
	})
}

// Context returns a child of parent that is cancelled when shutdown starts.
// The returned cancel func releases it early.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	mu.Lock()
	if isShuttingDown {
		mu.Unlock()
		cancel()
		return ctx, cancel
	}
	id := nextCancel
	nextCancel++
	cancels[id] = cancel
	mu.Unlock()
	return ctx, func() {
		mu.Lock()
		delete(cancels, id)
		mu.Unlock()
		cancel()
	}
}

// WaitJobs starts shutdown, runs the cleanup jobs and waits for registered jobs.
// Call it from main before exiting.
func WaitJobs() {
	waitJobs(false)
}

func waitJobs(isSignal bool) {
	mu.Lock()
	if isShuttingDown {
		mu.Unlock()
		jobs.Wait()
		return
	}
	isShuttingDown = true
	for _, cancel := range cancels {
		cancel()
	}
	clear(cancels)
	run := slices.Clone(cleanupJobs)
	mu.Unlock()
	for i := len(run) - 1; i >= 0; i-- {
		run[i].fn(isSignal)
	}
	jobs.Wait()
}

func init() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		waitJobs(true)
		os.Exit(130)
	}()
}
