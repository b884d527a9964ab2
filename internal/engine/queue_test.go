package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/reducer"
)

func TestActionQueue_FIFO(t *testing.T) {
	q := newActionQueue()

	require.True(t, q.Enqueue(reducer.SetTopic{Topic: "sm"}))
	require.True(t, q.Enqueue(reducer.Tick{DT: 100}))
	require.True(t, q.Enqueue(reducer.ResetState{}))
	assert.Equal(t, 3, q.Len())

	var kinds []string
	for {
		a, ok := q.TryDequeue()
		if !ok {
			break
		}
		kinds = append(kinds, a.Kind())
	}
	assert.Equal(t, []string{"setTopic", "tick", "resetState"}, kinds)
	assert.Zero(t, q.Len())
}

func TestActionQueue_WaitSignals(t *testing.T) {
	q := newActionQueue()

	select {
	case <-q.Wait():
		t.Fatal("signal on empty queue")
	default:
	}

	q.Enqueue(reducer.Tick{DT: 1})
	q.Enqueue(reducer.Tick{DT: 2})

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("no signal after enqueue")
	}

	// two enqueues coalesce into one signal
	select {
	case <-q.Wait():
		t.Fatal("signal was not coalesced")
	default:
	}
}

func TestActionQueue_Close(t *testing.T) {
	q := newActionQueue()
	q.Enqueue(reducer.Tick{DT: 1})

	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(reducer.Tick{DT: 2}), "closed queue rejects actions")

	_, ok := q.TryDequeue()
	assert.True(t, ok, "queued actions survive Close")

	select {
	case _, open := <-q.Wait():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("Wait not closed")
	}
}

func TestActionQueue_ConcurrentProducers(t *testing.T) {
	q := newActionQueue()
	const producers, each = 8, 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				q.Enqueue(reducer.Tick{DT: 1})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*each, q.Len())
}
