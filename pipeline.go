package fixedpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrPipelineFrozen means the pipeline does not accept any further operations
	// since Pipeline.Join has been called.
	ErrPipelineFrozen = fmt.Errorf("fixedpool: pipeline is frozen")
)

// AsyncExecutor runs a Job asynchronously, (*WorkerPool).Execute is one.
type AsyncExecutor func(job Job) error

// GoSpawn is an AsyncExecutor that runs the job in a new goroutine.
func GoSpawn(job Job) error {
	go job()
	return nil
}

// PipelineOptions configure the Pipeline.
//
// NOTE that every feeder and every stage worker occupies a pool worker until it returns.
// A WorkerPool used as executor needs at least as many workers as the feeders and stage
// workers started on it, otherwise the stage workers never run and Join never finishes.
type PipelineOptions struct {
	// FeederExecutor is the AsyncExecutor used by feeders.
	FeederExecutor AsyncExecutor
	// WorkerExecutor is the AsyncExecutor used by stage workers.
	WorkerExecutor AsyncExecutor
	// InputBufferSize is the buffer size of input channel.
	InputBufferSize int
	// OutputBufferSize is the buffer size of output channel.
	OutputBufferSize int
}

// Pipeline connects feeders, stage workers and a consumer through an input and an output channel.
type Pipeline[In, Out any] struct {
	feederGo AsyncExecutor
	workerGo AsyncExecutor
	feederWg sync.WaitGroup
	workerWg sync.WaitGroup
	inputc   chan In
	outputc  chan Out

	processed atomic.Uint32
	joined    atomic.Bool
}

// NewPipeline creates a new pipeline running on plain goroutines.
func NewPipeline[In, Out any]() *Pipeline[In, Out] {
	return NewPipelineWith[In, Out](PipelineOptions{})
}

// NewPipelineWith creates a new Pipeline with PipelineOptions,
// a nil executor defaults to GoSpawn.
func NewPipelineWith[In, Out any](opts PipelineOptions) *Pipeline[In, Out] {
	if opts.FeederExecutor == nil {
		opts.FeederExecutor = GoSpawn
	}
	if opts.WorkerExecutor == nil {
		opts.WorkerExecutor = GoSpawn
	}
	return &Pipeline[In, Out]{
		feederGo: opts.FeederExecutor,
		workerGo: opts.WorkerExecutor,
		inputc:   make(chan In, opts.InputBufferSize),
		outputc:  make(chan Out, opts.OutputBufferSize),
	}
}

// StartFeeder feeds the items into the pipeline, it stops early if ctx is done.
//
// This method must be invoked prior to Join, failing which ErrPipelineFrozen will be returned.
func (p *Pipeline[In, Out]) StartFeeder(ctx context.Context, items []In) error {
	return p.StartFeederFunc(ctx, func(ctx context.Context, inc chan<- In) {
		for _, e := range items {
			select {
			case <-ctx.Done():
				return
			case inc <- e:
			}
		}
	})
}

// StartFeederFunc runs feedLoop through the feeder executor.
// feedLoop should return once ctx is done.
//
// This method must be invoked prior to Join, failing which ErrPipelineFrozen will be returned.
func (p *Pipeline[In, Out]) StartFeederFunc(ctx context.Context, feedLoop func(context.Context, chan<- In)) error {
	if p.joined.Load() {
		return ErrPipelineFrozen
	}

	p.feederWg.Add(1)
	err := p.feederGo(func() {
		defer p.feederWg.Done()

		feedLoop(ctx, p.inputc)
	})
	if err != nil {
		p.feederWg.Done()
	}
	return err
}

// StartWorkerN starts n stage workers, see StartWorker.
func (p *Pipeline[In, Out]) StartWorkerN(ctx context.Context, n int, workOne func(context.Context, In) Out) error {
	for i := 0; i < n; i++ {
		if err := p.StartWorker(ctx, workOne); err != nil {
			return err
		}
	}
	return nil
}

// StartWorker starts a stage worker which stops once ctx is done or
// all inputs have been processed.
//
// This method must be invoked prior to Join, failing which ErrPipelineFrozen will be returned.
func (p *Pipeline[In, Out]) StartWorker(ctx context.Context, workOne func(context.Context, In) Out) error {
	if p.joined.Load() {
		return ErrPipelineFrozen
	}

	p.workerWg.Add(1)
	err := p.workerGo(func() {
		defer p.workerWg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case in, ok := <-p.inputc:
				if !ok {
					return
				}
				output := workOne(ctx, in)
				p.processed.Add(1)
				p.outputc <- output
			}
		}
	})
	if err != nil {
		p.workerWg.Done()
	}
	return err
}

// Join returns the output channel, which is closed after all feeders and
// stage workers return. Compare ProcessedCount with the number of inputs
// to find out whether anything was skipped.
// The pipeline is frozen after the join.
func (p *Pipeline[In, Out]) Join() <-chan Out {
	if !p.joined.CompareAndSwap(false, true) {
		return p.outputc
	}

	go func() {
		p.feederWg.Wait()
		close(p.inputc)
		p.workerWg.Wait()
		close(p.outputc)
	}()
	return p.outputc
}

// ProcessedCount returns the number of inputs processed so far.
// The count is stable once the output channel has been closed.
func (p *Pipeline[In, Out]) ProcessedCount() int {
	return int(p.processed.Load())
}
