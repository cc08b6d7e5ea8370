package junction

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgEvent(ch ChannelID, v any) event {
	return event{typ: eventMessage, channel: ch, msg: message{payload: v}}
}

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(msgEvent(1, "hello"))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, eventMessage, got.typ)
	assert.Equal(t, ChannelID(1), got.channel)
	assert.Equal(t, "hello", got.msg.payload)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for i := 1; i <= 3; i++ {
		q.Enqueue(msgEvent(ChannelID(i), i))
	}

	for i := 1; i <= 3; i++ {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, e.msg.payload)
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_Wait_SignalsOnEnqueue(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(msgEvent(1, "late"))
	}()

	select {
	case <-q.Wait():
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, "late", e.msg.payload)
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	assert.False(t, q.Closed())

	q.Close()
	q.Close() // idempotent

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(msgEvent(1, "after close")), "enqueue after close should return false")

	select {
	case <-q.Wait():
	default:
		t.Fatal("wait channel should be closed")
	}
}

func TestEventQueue_Drain(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(msgEvent(1, "a"))
	q.Enqueue(msgEvent(2, "b"))
	q.Close()

	rest := q.Drain()
	require.Len(t, rest, 2)
	assert.Equal(t, "a", rest[0].msg.payload)
	assert.Equal(t, "b", rest[1].msg.payload)
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(msgEvent(1, 1))
	assert.Equal(t, 1, q.Len())

	q.Enqueue(msgEvent(1, 2))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(msgEvent(ChannelID(producerID), i))
			}
		}(p)
	}
	wg.Wait()

	// Per-producer order is preserved.
	last := make(map[ChannelID]int)
	count := 0
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		count++
		v := e.msg.payload.(int)
		if prev, seen := last[e.channel]; seen {
			assert.Greater(t, v, prev)
		}
		last[e.channel] = v
	}
	assert.Equal(t, producers*eventsPerProducer, count)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "add_pattern", eventAddPattern.String())
	assert.Equal(t, "message", eventMessage.String())
	assert.Equal(t, "inspect", eventInspect.String())
	assert.Equal(t, "unknown", eventType(99).String())
}
