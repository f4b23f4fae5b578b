package service

import (
	"context"
	"sync"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// flight is one submission run shared by every concurrent caller of the
// same claim. Its context outlives any single caller and is cancelled once
// the last waiter leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters map[int]domain.ProgressFunc
	nextID  int
	done    bool
}

// flights tracks the runs in progress, keyed by claim ID.
type flights struct {
	mu   sync.Mutex
	runs map[string]*flight
}

// join registers a waiter, creating the run when none is in progress. The
// run inherits ctx's values (trace span, request ID) but not its cancellation.
func (fs *flights) join(ctx context.Context, claimID string, progress domain.ProgressFunc) (*flight, int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.runs == nil {
		fs.runs = make(map[string]*flight)
	}
	f, ok := fs.runs[claimID]
	if !ok {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: runCtx, cancel: cancel, waiters: make(map[int]domain.ProgressFunc)}
		fs.runs[claimID] = f
	}
	id := f.nextID
	f.nextID++
	f.waiters[id] = progress
	return f, id
}

// leave removes a waiter. It reports true when the waiter was the last one
// of an unfinished run, which is then cancelled.
func (fs *flights) leave(claimID string, f *flight, id int) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(f.waiters, id)
	if len(f.waiters) > 0 {
		return false
	}
	f.cancel()
	if fs.runs[claimID] == f {
		delete(fs.runs, claimID)
	}
	return !f.done
}

// finish marks the run complete so later callers start a new one.
func (fs *flights) finish(claimID string, f *flight) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f.done = true
	if fs.runs[claimID] == f {
		delete(fs.runs, claimID)
	}
}

// emitter returns a ProgressFunc that forwards to every current waiter.
func (fs *flights) emitter(f *flight) domain.ProgressFunc {
	return func(ev domain.ProgressEvent) {
		fs.mu.Lock()
		subs := make([]domain.ProgressFunc, 0, len(f.waiters))
		for _, p := range f.waiters {
			if p != nil {
				subs = append(subs, p)
			}
		}
		fs.mu.Unlock()

		for _, p := range subs {
			p(ev)
		}
	}
}
