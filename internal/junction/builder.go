package junction

import "fmt"

// PatternBuilder accumulates the channels of a join pattern.
//
// Builders have move semantics: every growth step returns a new builder of
// arity n+1 and consumes the receiver, and ThenDo consumes the final one.
// Touching a consumed builder panics. Every step checks that the channel
// belongs to the builder's junction.
//
//	j.When(a).And(b).AndRecv(total).ThenDo(func(f *Firing) {
//		Reply(f, total, Value(f, a)+Value(f, b))
//	})
type PatternBuilder struct {
	j        *Junction
	members  []StrippedChannel
	consumed bool
}

// When starts a pattern of arity 1 on ch.
//
// Panics with ErrCodeJunctionMismatch if ch belongs to another junction.
func (j *Junction) When(ch Port) *PatternBuilder {
	b := &PatternBuilder{j: j}
	return b.grow(ch)
}

// And adds a send channel to the pattern.
func (b *PatternBuilder) And(ch SendPort) *PatternBuilder {
	return b.grow(ch)
}

// AndRecv adds a receive channel to the pattern.
func (b *PatternBuilder) AndRecv(ch RecvPort) *PatternBuilder {
	return b.grow(ch)
}

// AndBidir adds a bidirectional channel to the pattern.
func (b *PatternBuilder) AndBidir(ch BidirPort) *PatternBuilder {
	return b.grow(ch)
}

// Arity returns the number of channels bound so far.
func (b *PatternBuilder) Arity() int {
	return len(b.members)
}

// ThenDo finalizes the pattern with reaction and submits it to the junction.
//
// Submission is asynchronous: ThenDo returns once the registration is in the
// junction's event stream. The pattern only matches messages that arrive
// after the registration is processed.
//
// Panics with ErrCodeJunctionUnreachable if the junction has stopped.
func (b *PatternBuilder) ThenDo(reaction func(*Firing)) {
	b.take()
	if reaction == nil {
		panic("junction: ThenDo called with nil reaction")
	}

	p := newJoinPattern(b.members, reaction)
	if !b.j.queue.Enqueue(event{typ: eventAddPattern, pattern: p}) {
		panic(&Fault{
			Code:     ErrCodeJunctionUnreachable,
			Message:  "cannot register join pattern: junction has stopped",
			Junction: b.j.id,
		})
	}
}

// grow returns a new builder holding the receiver's channels plus ch.
//
// Ownership is checked by junction instance: two junctions may share an id
// (WithIDGenerator) and channel ids restart at 1 on every junction.
func (b *PatternBuilder) grow(ch Port) *PatternBuilder {
	b.take()

	sc := ch.Strip()
	if ch.owner() != b.j {
		panic(mismatchFault(b.j.id, sc.Junction, sc.ID))
	}
	for _, m := range b.members {
		if m.ID == sc.ID {
			panic(&Fault{
				Code:     ErrCodeDuplicateChannel,
				Message:  fmt.Sprintf("channel %d already bound in this pattern", sc.ID),
				Junction: b.j.id,
				Channel:  sc.ID,
			})
		}
	}

	members := make([]StrippedChannel, len(b.members), len(b.members)+1)
	copy(members, b.members)
	return &PatternBuilder{j: b.j, members: append(members, sc)}
}

func (b *PatternBuilder) take() {
	if b.consumed {
		panic(&Fault{
			Code:     ErrCodeBuilderConsumed,
			Message:  "pattern builder already consumed",
			Junction: b.j.id,
		})
	}
	b.consumed = true
}
