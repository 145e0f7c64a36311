package fixedpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipeline_AsyncExecutor(t *testing.T) {
	t.Parallel()

	makeExecutor := func() (*atomic.Int32, AsyncExecutor) {
		counter := &atomic.Int32{}
		return counter, func(job Job) error {
			counter.Add(1)
			go job()
			return nil
		}
	}
	feederCount, feederExecutor := makeExecutor()
	workerCount, workerExecutor := makeExecutor()

	pipeline := NewPipelineWith[int, int](PipelineOptions{
		FeederExecutor: feederExecutor,
		WorkerExecutor: workerExecutor,
	})

	double := func(_ context.Context, i int) int { return i * 2 }
	require.NoError(t, pipeline.StartFeeder(context.Background(), []int{1, 2}))
	require.NoError(t, pipeline.StartFeeder(context.Background(), []int{3, 4}))
	require.NoError(t, pipeline.StartWorker(context.Background(), double))
	require.NoError(t, pipeline.StartWorkerN(context.Background(), 3, double))

	require.Equal(t, int32(2), feederCount.Load())
	require.Equal(t, int32(4), workerCount.Load())
	sum := 0
	for v := range pipeline.Join() {
		sum += v
	}
	require.Equal(t, 20, sum)
	require.Equal(t, 4, pipeline.ProcessedCount())

	require.ErrorIs(t, pipeline.StartFeeder(context.Background(), []int{5}), ErrPipelineFrozen)
	require.ErrorIs(t, pipeline.StartWorker(context.Background(), double), ErrPipelineFrozen)
}

func TestPipeline_WorkerPool(t *testing.T) {
	t.Parallel()

	pool, err := New(4)
	require.NoError(t, err)
	defer pool.Close()

	pipeline := NewPipelineWith[int, int](PipelineOptions{
		FeederExecutor: pool.Execute,
		WorkerExecutor: pool.Execute,
	})
	inputs := make([]int, 100)
	for i := range inputs {
		inputs[i] = i + 1
	}
	require.NoError(t, pipeline.StartFeeder(context.Background(), inputs))
	require.NoError(t, pipeline.StartWorkerN(context.Background(), 3, func(_ context.Context, i int) int {
		return i
	}))

	sum := 0
	for v := range pipeline.Join() {
		sum += v
	}
	require.Equal(t, 5050, sum)
	require.Equal(t, len(inputs), pipeline.ProcessedCount())
}

func TestPipeline_ExecutorError(t *testing.T) {
	t.Parallel()

	pool, err := New(1)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	pipeline := NewPipelineWith[int, int](PipelineOptions{
		FeederExecutor: pool.Execute,
		WorkerExecutor: pool.Execute,
	})
	require.ErrorIs(t, pipeline.StartFeeder(context.Background(), []int{1}), ErrPoolClosed)
	require.ErrorIs(t, pipeline.StartWorker(context.Background(), func(_ context.Context, i int) int {
		return i
	}), ErrPoolClosed)

	// Join must not wait for the executors that were never started.
	n := 0
	for range pipeline.Join() {
		n++
	}
	require.Equal(t, 0, n)
}

func TestPipeline_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := NewPipeline[int, int]()
	require.NoError(t, pipeline.StartFeederFunc(ctx, func(ctx context.Context, inc chan<- int) {
		<-ctx.Done()
	}))
	require.NoError(t, pipeline.StartWorker(ctx, func(_ context.Context, i int) int { return i }))

	for range pipeline.Join() {
		t.Fatalf("no output expected")
	}
	require.Equal(t, 0, pipeline.ProcessedCount())
}
