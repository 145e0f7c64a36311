package fixedpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatchQueue_SendWithoutConsumers(t *testing.T) {
	q := newDispatchQueue()
	require.ErrorIs(t, q.send(message{job: emptyJob}), ErrPoolClosed)

	q.attach()
	require.NoError(t, q.send(message{job: emptyJob}))
	q.detach()
	require.ErrorIs(t, q.send(message{job: emptyJob}), ErrPoolClosed)
	require.Equal(t, 1, q.pendingJobs())
}

func TestDispatchQueue_FIFO(t *testing.T) {
	q := newDispatchQueue()
	q.attach()

	got := []int{}
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, q.send(message{job: func() { got = append(got, i) }}))
	}
	require.Equal(t, 10, q.pendingJobs())
	q.terminate(2)
	require.ErrorIs(t, q.send(message{job: emptyJob}), ErrPoolClosed)

	for i := 0; i < 10; i++ {
		msg, err := q.receive()
		require.NoError(t, err)
		require.False(t, msg.terminate)
		msg.job()
	}
	for i := 0; i < 2; i++ {
		msg, err := q.receive()
		require.NoError(t, err)
		require.True(t, msg.terminate)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	require.Equal(t, 0, q.pendingJobs())
}

func TestDispatchQueue_ReceiveBlocks(t *testing.T) {
	q := newDispatchQueue()
	q.attach()

	received := make(chan message)
	go func() {
		msg, err := q.receive()
		require.NoError(t, err)
		received <- msg
	}()

	select {
	case <-received:
		t.Fatalf("receive returned on an empty queue")
	case <-time.After(20 * time.Millisecond):
	}
	require.NoError(t, q.send(message{terminate: true}))
	select {
	case msg := <-received:
		require.True(t, msg.terminate)
	case <-time.After(time.Second):
		t.Fatalf("receive not woken up")
	}
}

func TestDispatchQueue_Close(t *testing.T) {
	q := newDispatchQueue()
	q.attach()
	require.NoError(t, q.send(message{job: emptyJob}))

	wg := sync.WaitGroup{}
	errs := make(chan error, 3)
	q.close()
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.receive()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	nclosed := 0
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, errQueueClosed)
			nclosed++
		}
	}
	// The queued job is still delivered to exactly one receiver.
	require.Equal(t, 2, nclosed)
	require.ErrorIs(t, q.send(message{job: emptyJob}), ErrPoolClosed)
}

func TestDispatchQueue_ExclusiveDelivery(t *testing.T) {
	q := newDispatchQueue()
	const (
		nconsumers = 8
		nmessages  = 2000
	)
	counts := make([]int, nmessages)
	wg := sync.WaitGroup{}
	for i := 0; i < nconsumers; i++ {
		q.attach()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, err := q.receive()
				if err != nil || msg.terminate {
					return
				}
				msg.job()
			}
		}()
	}

	lock := sync.Mutex{}
	for i := 0; i < nmessages; i++ {
		i := i
		require.NoError(t, q.send(message{job: func() {
			lock.Lock()
			counts[i]++
			lock.Unlock()
		}}))
	}
	q.terminate(nconsumers)
	wg.Wait()

	for i, c := range counts {
		require.Equal(t, 1, c, "message %d", i)
	}
}
