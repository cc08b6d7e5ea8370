package junction

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc"
)

// Junction is the join-calculus engine.
//
// A Junction owns the pending queue of every channel created on it and every
// join pattern registered with it. One worker goroutine consumes the control
// stream (pattern registrations and message arrivals) one event at a time and
// is the only writer of that state. Reactions never run on the worker; each
// firing gets its own goroutine.
//
// Thread-safety model:
//   - channel operations, When/ThenDo, Snapshot, Stop: safe from any goroutine
//   - patterns, pending queues: touched only by the worker
//
// INVARIANTS:
//   - patterns slice order never changes (registration order is the tie-break)
//   - a message is popped from its pending queue by at most one firing
//   - ChannelIDs are never reused
type Junction struct {
	id       JunctionID
	queue    *eventQueue
	channels *Clock // ChannelID source
	clock    *Clock // firing seq
	logger   *slog.Logger
	recorder Recorder
	ctx      context.Context
	idGen    IDGenerator
	inflight conc.WaitGroup
	done     chan struct{}

	// Worker-owned state.
	patterns  []*JoinPattern
	byChannel map[ChannelID][]*JoinPattern
	pending   map[ChannelID]*pendingQueue
	firings   int64
}

// Option configures a Junction.
type Option func(*Junction)

// WithContext ties the junction's lifetime to ctx: cancelling it shuts the
// junction down as Stop does, except that events still queued are discarded
// rather than processed.
func WithContext(ctx context.Context) Option {
	return func(j *Junction) {
		j.ctx = ctx
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(j *Junction) {
		j.logger = l
	}
}

// WithRecorder installs a Recorder that sees every firing.
func WithRecorder(r Recorder) Option {
	return func(j *Junction) {
		j.recorder = r
	}
}

// WithIDGenerator overrides the JunctionID generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(j *Junction) {
		j.idGen = g
	}
}

// New creates a Junction and starts its worker.
func New(opts ...Option) *Junction {
	j := &Junction{
		queue:     newEventQueue(),
		channels:  NewClock(),
		clock:     NewClock(),
		logger:    slog.Default(),
		ctx:       context.Background(),
		idGen:     UUIDv7Generator{},
		done:      make(chan struct{}),
		byChannel: make(map[ChannelID][]*JoinPattern),
		pending:   make(map[ChannelID]*pendingQueue),
	}

	for _, opt := range opts {
		opt(j)
	}

	j.id = JunctionID(j.idGen.Generate())
	j.logger = j.logger.With("junction", string(j.id))

	go j.run(j.ctx)
	return j
}

// ID returns the junction id.
func (j *Junction) ID() JunctionID {
	return j.id
}

// Stop shuts the junction down and returns once the worker has exited.
//
// Events accepted before Stop are still processed in order. After that every
// reply slot left in a pending queue is failed with a closed fault, so no
// Recv or SendRecv caller waits forever. Reactions already fired keep running;
// use Wait to join them. Stop is idempotent.
func (j *Junction) Stop() {
	j.queue.Close()
	<-j.done
}

// Done returns a channel that is closed once the worker has exited.
func (j *Junction) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the junction has stopped and every reaction it fired has
// returned.
func (j *Junction) Wait() {
	<-j.done
	j.inflight.Wait()
}

// Snapshot is a point-in-time view of the worker's state.
type Snapshot struct {
	Junction JunctionID
	Patterns int
	Pending  map[ChannelID]int // only channels with queued messages
	Firings  int64
}

// Snapshot asks the worker for its state. The request is ordered with the
// rest of the control stream, so it observes every event enqueued before it.
func (j *Junction) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !j.queue.Enqueue(event{typ: eventInspect, inspect: reply}) {
		return Snapshot{}, closedFault(j.id, 0)
	}

	select {
	case s := <-reply:
		return s, nil
	case <-j.done:
		select {
		case s := <-reply:
			return s, nil
		default:
			return Snapshot{}, closedFault(j.id, 0)
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (j *Junction) nextChannelID() ChannelID {
	return ChannelID(j.channels.Next())
}

// arrive puts a message into the control stream.
func (j *Junction) arrive(ch ChannelID, msg message) error {
	if !j.queue.Enqueue(event{typ: eventMessage, channel: ch, msg: msg}) {
		return closedFault(j.id, ch)
	}
	return nil
}

// run is the single-writer worker loop.
func (j *Junction) run(ctx context.Context) {
	defer close(j.done)
	j.logger.Info("junction starting")

	for {
		ev, ok := j.queue.TryDequeue()
		if ok {
			j.process(ev)
			continue
		}

		select {
		case <-ctx.Done():
			j.logger.Info("junction stopping: context cancelled")
			j.queue.Close()
			j.abandon(j.queue.Drain())
			j.shutdown()
			return

		case <-j.queue.Wait():
			// The signal channel is closed once the queue is, so this case
			// keeps firing until the backlog is empty.
			if j.queue.Closed() && j.queue.Len() == 0 {
				j.logger.Info("junction stopping: closed")
				j.shutdown()
				return
			}
		}
	}
}

// process routes an event to its handler.
// Called only from the worker goroutine.
func (j *Junction) process(ev event) {
	switch ev.typ {
	case eventAddPattern:
		j.addPattern(ev.pattern)
	case eventMessage:
		j.pendingFor(ev.channel).push(ev.msg)
		j.match(ev.channel)
	case eventInspect:
		ev.inspect <- j.snapshot()
	default:
		j.logger.Error("unknown event type", "type", ev.typ.String())
	}
}

// addPattern appends p to the pattern list.
// No retroactive matching: p only competes for messages that arrive later.
func (j *Junction) addPattern(p *JoinPattern) {
	p.index = len(j.patterns)
	j.patterns = append(j.patterns, p)
	for _, m := range p.members {
		j.byChannel[m.ID] = append(j.byChannel[m.ID], p)
	}

	j.logger.Debug("join pattern registered",
		"pattern", p.index,
		"arity", len(p.members),
	)
}

// match fires the first pattern, in registration order, that references ch
// and has a message on every member. At most one pattern fires per arrival.
func (j *Junction) match(ch ChannelID) {
	for _, p := range j.byChannel[ch] {
		if !j.satisfied(p) {
			continue
		}

		args := make([]message, len(p.members))
		for i, m := range p.members {
			args[i] = j.pending[m.ID].pop()
		}
		j.fire(p, ch, args)
		return
	}
}

func (j *Junction) satisfied(p *JoinPattern) bool {
	for _, m := range p.members {
		q, ok := j.pending[m.ID]
		if !ok || q.size() == 0 {
			return false
		}
	}
	return true
}

func (j *Junction) fire(p *JoinPattern, trigger ChannelID, args []message) {
	j.firings++
	f := newFiring(j, p, j.clock.Next(), args)

	j.logger.Debug("join pattern fired",
		"pattern", p.index,
		"seq", f.seq,
		"trigger", int64(trigger),
	)

	if j.recorder != nil {
		if err := j.recorder.RecordFiring(j.ctx, newFiringRecord(f, trigger)); err != nil {
			j.logger.Error("record firing failed",
				"error", err,
				"pattern", p.index,
				"seq", f.seq,
			)
		}
	}

	p.fire(j, f)
}

func (j *Junction) pendingFor(ch ChannelID) *pendingQueue {
	q, ok := j.pending[ch]
	if !ok {
		q = &pendingQueue{}
		j.pending[ch] = q
	}
	return q
}

func (j *Junction) snapshot() Snapshot {
	s := Snapshot{
		Junction: j.id,
		Patterns: len(j.patterns),
		Pending:  make(map[ChannelID]int),
		Firings:  j.firings,
	}
	for ch, q := range j.pending {
		if n := q.size(); n > 0 {
			s.Pending[ch] = n
		}
	}
	return s
}

// shutdown fails every reply slot still waiting in a pending queue.
func (j *Junction) shutdown() {
	failed := 0
	for ch, q := range j.pending {
		for _, msg := range q.msgs {
			if msg.reply != nil && msg.reply.deliver(nil, closedFault(j.id, ch)) {
				failed++
			}
		}
		delete(j.pending, ch)
	}

	j.logger.Info("junction stopped",
		"firings", j.firings,
		"failed_replies", failed,
	)
}

// abandon fails the reply slots of events that were never processed.
func (j *Junction) abandon(events []event) {
	for _, ev := range events {
		switch ev.typ {
		case eventMessage:
			if ev.msg.reply != nil {
				ev.msg.reply.deliver(nil, closedFault(j.id, ev.channel))
			}
		case eventAddPattern, eventInspect:
			// Nothing is waiting on these.
		}
	}
}

// pendingQueue is one channel's FIFO of arrived messages.
type pendingQueue struct {
	msgs []message
}

func (q *pendingQueue) push(m message) {
	q.msgs = append(q.msgs, m)
}

func (q *pendingQueue) pop() message {
	m := q.msgs[0]
	q.msgs[0] = message{}
	q.msgs = q.msgs[1:]
	return m
}

func (q *pendingQueue) size() int {
	return len(q.msgs)
}
