package scans

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobLocksSerializePerJob(t *testing.T) {
	t.Parallel()

	l := newJobLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.acquire("job-a")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestJobLocksDropIdleEntries(t *testing.T) {
	t.Parallel()

	l := newJobLocks()
	unlockA := l.acquire("job-a")
	unlockB := l.acquire("job-b")

	l.mu.Lock()
	assert.Len(t, l.locks, 2)
	l.mu.Unlock()

	unlockA()
	unlockB()

	l.mu.Lock()
	assert.Empty(t, l.locks)
	l.mu.Unlock()
}

func TestJobLocksIndependentJobsDoNotBlock(t *testing.T) {
	t.Parallel()

	l := newJobLocks()
	unlockA := l.acquire("job-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := l.acquire("job-b")
		unlockB()
		close(done)
	}()
	<-done
}
