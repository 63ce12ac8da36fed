package filetree

import (
	"context"
	"sync"
)

// join counts outstanding asynchronous reads and fires once when the count
// returns to zero. New work may be started at any time before that, so it
// is an open-ended counter rather than a fixed-size barrier.
type join struct {
	mu      sync.Mutex
	pending int
	err     error
	fired   bool
	done    chan struct{}
	cancel  context.CancelCauseFunc
	onFire  func()
}

func newJoin(cancel context.CancelCauseFunc) *join {
	return &join{done: make(chan struct{}), cancel: cancel}
}

func (j *join) start() {
	j.mu.Lock()
	j.pending++
	j.mu.Unlock()
}

// finish ends one operation. commit runs under the lock and only while no
// operation has failed, so a failed traversal never publishes more results.
func (j *join) finish(err error, commit func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.pending <= 0 {
		panic("filetree: finish called without matching start")
	}
	switch {
	case err != nil && j.err == nil:
		j.err = err
		if j.cancel != nil {
			j.cancel(err)
		}
	case err == nil && j.err == nil && commit != nil:
		commit()
	}

	j.pending--
	if j.pending == 0 && !j.fired {
		j.fired = true
		if j.onFire != nil {
			j.onFire()
		}
		close(j.done)
	}
}

// wait blocks until the join fires or ctx ends.
func (j *join) wait(ctx context.Context) error {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
