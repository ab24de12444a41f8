package host

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

var errThreadStopped = errors.New("guest thread stopped")

// guestThread runs jobs one at a time on a single locked OS thread. The
// interpreter ties thread states to OS threads, so every guest call has to
// come from here. Handing a job to the thread is taking the execution
// token; the unbuffered channel makes other callers wait their turn.
type guestThread struct {
	jobs    chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func startGuestThread() *guestThread {
	t := &guestThread{
		jobs:    make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	ready := make(chan struct{})
	go func() {
		// Never unlocked: the thread exits with the goroutine, taking any
		// leftover thread-local guest state with it.
		runtime.LockOSThread()
		defer close(t.stopped)
		close(ready)
		for {
			select {
			case job := <-t.jobs:
				job()
			case <-t.quit:
				return
			}
		}
	}()
	<-ready
	return t
}

// run executes fn on the guest thread. Waiting for the thread honours ctx;
// once fn has started it runs to completion.
func (t *guestThread) run(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}
	select {
	case t.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopped:
		return errThreadStopped
	}
	<-done
	return nil
}

// stop ends the thread after the running job, if any. It must not be
// called from a job.
func (t *guestThread) stop() {
	t.once.Do(func() { close(t.quit) })
	<-t.stopped
}
