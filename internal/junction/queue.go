package junction

import "sync"

// eventType distinguishes between control events.
type eventType int

const (
	// eventAddPattern registers a JoinPattern.
	eventAddPattern eventType = iota + 1
	// eventMessage delivers a message to a channel's pending queue.
	eventMessage
	// eventInspect asks the worker for a Snapshot.
	eventInspect
)

func (t eventType) String() string {
	switch t {
	case eventAddPattern:
		return "add_pattern"
	case eventMessage:
		return "message"
	case eventInspect:
		return "inspect"
	default:
		return "unknown"
	}
}

// event is the unit of the junction's control stream.
type event struct {
	typ     eventType
	pattern *JoinPattern    // eventAddPattern
	channel ChannelID       // eventMessage
	msg     message         // eventMessage
	inspect chan<- Snapshot // eventInspect
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded: Send never blocks, and channels have no
// backpressure.
//
// Any goroutine may enqueue; only the junction worker dequeues.
// The queue uses a channel for signaling to enable context-aware waiting
// in the worker loop.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array does not pin payloads and patterns.
	q.events[0] = event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed once the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Drain removes and returns every queued event.
// Used on abrupt shutdown to fail reply slots that were never processed.
func (q *eventQueue) Drain() []event {
	q.mu.Lock()
	defer q.mu.Unlock()

	rest := q.events
	q.events = nil
	return rest
}
