// Package fixedpool provides a fixed-size implementation of worker(goroutine) pool.
//
// All the workers drain one shared FIFO queue, so whichever worker is idle first
// takes the next job. Go has no destructors: Close MUST be called to stop the
// workers, it blocks until every queued job has run and every worker has exited.
package fixedpool

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrInvalidSize is returned by New if the size is not positive.
	ErrInvalidSize = fmt.Errorf("fixedpool: pool size must be positive")
	// ErrPoolClosed is returned by Execute if the pool has been closed
	// or no worker is alive to run the job.
	ErrPoolClosed = fmt.Errorf("fixedpool: pool closed")
	// ErrNilJob is returned by Execute if the job is nil.
	ErrNilJob = fmt.Errorf("fixedpool: nil job")
)

// Job is the type of the function called by worker in the pool.
// It runs exactly once on one of the workers.
type Job func()

// PanicHandler is called on the worker goroutine with the value recovered
// from a panicking Job. The worker keeps running afterwards.
type PanicHandler func(workerID int, recovered interface{})

// Options configurates the WorkerPool.
type Options struct {
	// Logger receives worker lifecycle and fault logs, nil discards them.
	Logger *slog.Logger
	// PanicHandler is notified of every panicking Job.
	PanicHandler PanicHandler
	// Metrics is updated if not nil, see NewMetrics.
	Metrics *Metrics
}

// WorkerPool runs jobs on a fixed number of workers(goroutines).
//
// NOTE that jobs queued before Close are always executed,
// there is no way to cancel them.
type WorkerPool struct {
	logger       *slog.Logger
	panicHandler PanicHandler
	metrics      *Metrics

	queue   *dispatchQueue
	workers []*worker

	nidles     atomic.Int32
	nsubmitted atomic.Uint64
	ncompleted atomic.Uint64
	npanicked  atomic.Uint64

	closeOnce sync.Once
}

// New creates a WorkerPool with size workers.
func New(size int) (*WorkerPool, error) {
	return NewWith(size, Options{})
}

// NewWith creates a WorkerPool with size workers and Options.
// The workers are identified by 0..size-1 and start immediately.
func NewWith(size int, opts Options) (*WorkerPool, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &WorkerPool{
		logger:       logger,
		panicHandler: opts.PanicHandler,
		metrics:      opts.Metrics,

		queue:   newDispatchQueue(),
		workers: make([]*worker, 0, size),
	}
	for id := 0; id < size; id++ {
		p.workers = append(p.workers, spawnWorker(id, p))
	}
	p.logger.Debug("worker pool started", slog.Int("workers", size))
	return p, nil
}

// Size returns the number of workers the pool was created with.
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// Execute queues the job, it never blocks.
// The job will be run by exactly one worker at some point before Close returns.
// It is safe to call Execute from multiple goroutines.
func (p *WorkerPool) Execute(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	p.metrics.jobQueued()
	if err := p.queue.send(message{job: job}); err != nil {
		p.metrics.jobRejected()
		return err
	}
	p.nsubmitted.Add(1)
	p.metrics.jobSubmitted()
	return nil
}

// Close sends a terminate message per worker behind the queued jobs and waits
// until all workers exit. Execute fails with ErrPoolClosed once Close is called.
//
// Calling Close more than once is fine, the later calls wait for the first one.
func (p *WorkerPool) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Debug("sending terminate messages", slog.Int("workers", len(p.workers)))
		p.queue.terminate(len(p.workers))

		for _, w := range p.workers {
			p.logger.Debug("waiting for worker", slog.Int("worker", w.id))
			w.join()
		}
		p.queue.close()
		p.logger.Debug("worker pool closed")
	})
	return nil
}

// Stats contains a list of worker and job counters.
type Stats struct {
	Workers       int
	IdleWorkers   int
	QueuedJobs    int
	SubmittedJobs uint64
	CompletedJobs uint64
	PanickedJobs  uint64
}

// Stats returns the current stats.
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Workers:       p.queue.liveConsumers(),
		IdleWorkers:   int(p.nidles.Load()),
		QueuedJobs:    p.queue.pendingJobs(),
		SubmittedJobs: p.nsubmitted.Load(),
		CompletedJobs: p.ncompleted.Load(),
		PanickedJobs:  p.npanicked.Load(),
	}
}
