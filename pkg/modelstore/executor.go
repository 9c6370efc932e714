package modelstore

import "sync"

// executor is the single serialization point for one database handle.
// Every unit of work — migrations, reads, writes, deletes — is appended
// to an unbounded FIFO queue and drained by one dedicated goroutine, so
// work for a handle executes one at a time in strict submission order.
//
// A unit of work must never block on a synchronous wrapper for the same
// handle: the wrapper would wait for a completion only this goroutine can
// deliver.
type executor struct {
	mu     sync.Mutex
	jobs   []func()
	closed bool
	signal chan struct{} // buffered size 1, coalesces wake-ups
	done   chan struct{}
}

func newExecutor() *executor {
	e := &executor{
		jobs:   make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

// submit appends a unit of work. Returns false once the executor is
// closed; the caller then owns completion delivery.
func (e *executor) submit(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	e.jobs = append(e.jobs, fn)

	select {
	case e.signal <- struct{}{}:
	default:
	}
	return true
}

func (e *executor) tryDequeue() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.jobs) == 0 {
		return nil, false
	}
	fn := e.jobs[0]
	// Nil the slot so the closure (and whatever it captures) is
	// collectable before the backing array is reused.
	e.jobs[0] = nil
	if len(e.jobs) == 1 {
		e.jobs = e.jobs[:0]
	} else {
		e.jobs = e.jobs[1:]
	}
	return fn, true
}

func (e *executor) run() {
	defer close(e.done)
	for {
		if fn, ok := e.tryDequeue(); ok {
			fn()
			continue
		}

		e.mu.Lock()
		closed := e.closed
		empty := len(e.jobs) == 0
		e.mu.Unlock()
		if closed && empty {
			return
		}
		if !empty {
			continue
		}
		<-e.signal
	}
}

// close stops accepting work and wakes the run loop. Already-queued work
// still runs to completion; close blocks until the queue drains.
func (e *executor) close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	close(e.signal)
	e.mu.Unlock()

	<-e.done
}
