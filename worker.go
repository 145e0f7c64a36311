package fixedpool

import (
	"log/slog"
	"time"
)

type worker struct {
	id   int
	pool *WorkerPool
	// done is the join handle, closed when the goroutine exits and
	// set to nil once joined.
	done chan struct{}
}

// spawnWorker registers a consumer on the pool's queue and starts the
// worker goroutine right away.
func spawnWorker(id int, pool *WorkerPool) *worker {
	w := &worker{
		id:   id,
		pool: pool,
		done: make(chan struct{}),
	}
	pool.queue.attach()
	go w.run()
	return w
}

func (w *worker) run() {
	defer func() {
		w.pool.queue.detach()
		close(w.done)
	}()

	logger := w.pool.logger.With(slog.Int("worker", w.id))
	for {
		w.pool.nidles.Add(1)
		msg, err := w.pool.queue.receive()
		w.pool.nidles.Add(-1)
		if err != nil {
			logger.Error("receive failed, worker exits", slog.Any("error", err))
			return
		}

		if msg.terminate {
			logger.Debug("worker was told to terminate")
			return
		}
		w.pool.metrics.jobDequeued()
		w.execute(logger, msg.job)
	}
}

// execute runs the job on the current goroutine and recovers its panic.
func (w *worker) execute(logger *slog.Logger, job Job) {
	returned := false
	w.pool.metrics.workerBusy()
	start := time.Now()
	defer func() {
		w.pool.metrics.workerIdle(time.Since(start))
		if returned {
			w.pool.ncompleted.Add(1)
			w.pool.metrics.jobCompleted()
			return
		}

		r := recover()
		if r == nil {
			logger.Error("job called runtime.Goexit, worker exits")
			return
		}
		w.pool.npanicked.Add(1)
		w.pool.metrics.jobPanicked()
		logger.Error("job panicked", slog.Any("panic", r))
		if w.pool.panicHandler != nil {
			w.pool.panicHandler(w.id, r)
		}
	}()

	job()
	returned = true
}

// join waits for the goroutine to exit. Subsequent calls return immediately.
func (w *worker) join() {
	if w.done == nil {
		return
	}
	<-w.done
	w.done = nil
}
