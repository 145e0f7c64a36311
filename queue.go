package fixedpool

import (
	"fmt"
	"sync"
)

// errQueueClosed is returned by receive once the queue is closed and drained.
var errQueueClosed = fmt.Errorf("fixedpool: dispatch queue closed")

// message is either a job or a terminate signal.
type message struct {
	job       Job
	terminate bool
}

// dispatchQueue is an unbounded FIFO shared by all the workers of a pool.
//
// The lock is the "receiving end": a worker holds it while it waits for and
// takes the next message, so every message reaches exactly one worker.
type dispatchQueue struct {
	lock     sync.Mutex
	nonempty *sync.Cond
	messages []message
	njobs    int

	consumers int
	sealed    bool // No more jobs accepted.
	closed    bool // Receivers return errQueueClosed once drained.
}

func newDispatchQueue() *dispatchQueue {
	q := &dispatchQueue{}
	q.nonempty = sync.NewCond(&q.lock)
	return q
}

// attach registers a live consumer.
func (q *dispatchQueue) attach() {
	q.lock.Lock()
	q.consumers++
	q.lock.Unlock()
}

// detach unregisters a consumer, after which it must not call receive again.
func (q *dispatchQueue) detach() {
	q.lock.Lock()
	q.consumers--
	q.lock.Unlock()
}

// send enqueues msg without blocking. It fails if nobody will ever receive it.
func (q *dispatchQueue) send(msg message) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.sealed || q.closed || q.consumers == 0 {
		return ErrPoolClosed
	}
	q.push(msg)
	q.nonempty.Signal()
	return nil
}

// terminate seals the queue and appends n terminate messages behind
// every job already queued.
func (q *dispatchQueue) terminate(n int) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.sealed = true
	for i := 0; i < n; i++ {
		q.push(message{terminate: true})
	}
	q.nonempty.Broadcast()
}

// close wakes up all the blocked receivers; messages still queued
// can be received before errQueueClosed is returned.
func (q *dispatchQueue) close() {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.sealed = true
	q.closed = true
	q.nonempty.Broadcast()
}

// receive blocks until a message is available or the queue is closed.
func (q *dispatchQueue) receive() (message, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	for len(q.messages) == 0 {
		if q.closed {
			return message{}, errQueueClosed
		}
		q.nonempty.Wait()
	}

	msg := q.messages[0]
	q.messages[0] = message{} // Release the closure.
	q.messages = q.messages[1:]
	if len(q.messages) == 0 {
		q.messages = nil
	}
	if !msg.terminate {
		q.njobs--
	}
	return msg, nil
}

func (q *dispatchQueue) push(msg message) {
	q.messages = append(q.messages, msg)
	if !msg.terminate {
		q.njobs++
	}
}

// pendingJobs returns the number of queued jobs, terminate messages excluded.
func (q *dispatchQueue) pendingJobs() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.njobs
}

func (q *dispatchQueue) liveConsumers() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.consumers
}
