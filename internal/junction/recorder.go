package junction

import (
	"context"
	"fmt"
	"sync"
)

// Recorder receives one FiringRecord per firing.
//
// RecordFiring is called synchronously from the junction worker, in firing
// order, before the reaction is spawned. Errors are logged and otherwise
// ignored: a failing journal must not stop matching.
//
// The worker does nothing else while RecordFiring runs, so implementations
// must return quickly. Wrap a recorder that does I/O (such as the SQLite
// journal) in an AsyncRecorder.
type Recorder interface {
	RecordFiring(ctx context.Context, rec FiringRecord) error
}

// FiringRecord describes one firing.
type FiringRecord struct {
	Junction JunctionID  `json:"junction"`
	Seq      int64       `json:"seq"`
	Pattern  int         `json:"pattern"`
	Trigger  ChannelID   `json:"trigger"`  // channel whose arrival completed the match
	Channels []ChannelID `json:"channels"` // members in construction order
	Args     []string    `json:"args"`     // rendered payloads; "" for receive members
}

// MemoryRecorder keeps firing records in memory.
// Safe for concurrent reads while the junction records.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []FiringRecord
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// RecordFiring appends rec.
func (r *MemoryRecorder) RecordFiring(_ context.Context, rec FiringRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Records returns a copy of the records so far.
func (r *MemoryRecorder) Records() []FiringRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FiringRecord, len(r.records))
	copy(out, r.records)
	return out
}

// newFiringRecord renders a firing for a Recorder.
func newFiringRecord(f *Firing, trigger ChannelID) FiringRecord {
	rec := FiringRecord{
		Junction: f.junction,
		Seq:      f.seq,
		Pattern:  f.pattern,
		Trigger:  trigger,
		Channels: make([]ChannelID, len(f.members)),
		Args:     make([]string, len(f.members)),
	}
	for i, m := range f.members {
		rec.Channels[i] = m.ID
		if m.Capability != CapabilityRecv {
			rec.Args[i] = fmt.Sprint(f.args[i].payload)
		}
	}
	return rec
}

// AsyncRecorder forwards records to another Recorder on its own goroutine.
//
// RecordFiring only appends to an unbounded in-memory queue, so a slow sink
// never holds up matching. Records reach the sink in firing order. Close
// flushes the queue and must be called once the junction has stopped.
type AsyncRecorder struct {
	next Recorder
	ctx  context.Context

	mu      sync.Mutex
	records []FiringRecord
	closed  bool
	err     error         // first error returned by next
	signal  chan struct{} // buffered, size 1
	done    chan struct{}
}

// NewAsyncRecorder starts a goroutine that forwards records to next.
// ctx is passed to next.RecordFiring.
func NewAsyncRecorder(ctx context.Context, next Recorder) *AsyncRecorder {
	r := &AsyncRecorder{
		next:   next,
		ctx:    ctx,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// RecordFiring queues rec. It fails with ErrClosed after Close.
func (r *AsyncRecorder) RecordFiring(_ context.Context, rec FiringRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.records = append(r.records, rec)
	select {
	case r.signal <- struct{}{}:
	default:
	}
	return nil
}

// Close forwards every queued record and stops the goroutine. It returns the
// first error the sink reported. Close is idempotent.
func (r *AsyncRecorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.signal)
	}
	r.mu.Unlock()

	<-r.done
	return r.err
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for {
		_, open := <-r.signal

		r.mu.Lock()
		batch := r.records
		r.records = nil
		r.mu.Unlock()

		for _, rec := range batch {
			if err := r.next.RecordFiring(r.ctx, rec); err != nil && r.err == nil {
				r.err = fmt.Errorf("record firing %s/%d: %w", rec.Junction, rec.Seq, err)
			}
		}

		if !open {
			return
		}
	}
}
