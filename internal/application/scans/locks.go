package scans

import (
	"sync"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
)

// jobLocks hands out one mutex per scan id so status transitions and
// source deletion serialize per job while unrelated jobs proceed
// independently.
type jobLocks struct {
	mu    sync.Mutex
	locks map[domain.ScanID]*jobLock
}

type jobLock struct {
	sync.Mutex
	refs int
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[domain.ScanID]*jobLock)}
}

// acquire blocks until the job's lock is held. The returned func releases
// it; the entry is dropped once nobody holds or waits on it.
func (l *jobLocks) acquire(id domain.ScanID) func() {
	l.mu.Lock()
	jl, ok := l.locks[id]
	if !ok {
		jl = &jobLock{}
		l.locks[id] = jl
	}
	jl.refs++
	l.mu.Unlock()

	jl.Lock()
	return func() {
		jl.Unlock()
		l.mu.Lock()
		jl.refs--
		if jl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
