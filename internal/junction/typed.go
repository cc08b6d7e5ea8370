package junction

import "fmt"

// Input is a channel whose messages carry a value into a reaction:
// a SendChannel or a BidirChannel.
type Input[T any] interface {
	Port
	read(f *Firing) T
}

// Output is a channel whose caller waits for a reaction's result:
// a RecvChannel or a BidirChannel.
type Output[R any] interface {
	Port
	write(f *Firing, v R)
}

func (c *SendChannel[T]) read(f *Firing) T { return Value(f, c) }

func (c *BidirChannel[T, R]) read(f *Firing) T { return Request(f, c) }

func (c *RecvChannel[R]) write(f *Firing, v R) { Reply(f, c, v) }

func (c *BidirChannel[T, R]) write(f *Firing, v R) { Respond(f, c, v) }

// ThenDo1 finalizes a pattern whose only member is the send channel a.
//
// The typed finalizers check the reaction's signature against the builder
// before anything is registered: every input and output must be a member,
// every send member must be an input and every receive or bidirectional
// member must be the output. A mismatch panics with ErrCodeNotMember or
// ErrCodeSignatureMismatch. Patterns with more members, or with more than one
// waiting caller, use ThenDo and the Firing accessors.
func ThenDo1[A any](b *PatternBuilder, a Input[A], fn func(A)) {
	b.then([]Port{a}, nil, func(f *Firing) {
		fn(a.read(f))
	})
}

// ThenDo2 finalizes a pattern of two inputs and no waiting caller.
func ThenDo2[A, B any](b *PatternBuilder, a Input[A], c Input[B], fn func(A, B)) {
	b.then([]Port{a, c}, nil, func(f *Firing) {
		fn(a.read(f), c.read(f))
	})
}

// ThenDo3 finalizes a pattern of three inputs and no waiting caller.
func ThenDo3[A, B, C any](b *PatternBuilder, a Input[A], c Input[B], d Input[C], fn func(A, B, C)) {
	b.then([]Port{a, c, d}, nil, func(f *Firing) {
		fn(a.read(f), c.read(f), d.read(f))
	})
}

// ThenReturn0 finalizes a pattern whose only member is out; fn's result is
// handed to the caller waiting on it.
func ThenReturn0[R any](b *PatternBuilder, out Output[R], fn func() R) {
	b.then(nil, out, func(f *Firing) {
		out.write(f, fn())
	})
}

// ThenReturn1 finalizes a pattern of one input and one waiting caller. The
// input and the output may be the same bidirectional channel.
//
//	twice := NewBidirChannel[int, int](j)
//	ThenReturn1(j.When(twice), twice, twice, func(x int) int { return 2 * x })
func ThenReturn1[A, R any](b *PatternBuilder, a Input[A], out Output[R], fn func(A) R) {
	b.then([]Port{a}, out, func(f *Firing) {
		out.write(f, fn(a.read(f)))
	})
}

// ThenReturn2 finalizes a pattern of two inputs and one waiting caller.
//
//	ThenReturn2(j.When(a).And(b).AndRecv(total), a, b, total,
//		func(x, y int) int { return x + y })
func ThenReturn2[A, B, R any](b *PatternBuilder, a Input[A], c Input[B], out Output[R], fn func(A, B) R) {
	b.then([]Port{a, c}, out, func(f *Firing) {
		out.write(f, fn(a.read(f), c.read(f)))
	})
}

// ThenReturn3 finalizes a pattern of three inputs and one waiting caller.
func ThenReturn3[A, B, C, R any](b *PatternBuilder, a Input[A], c Input[B], d Input[C], out Output[R], fn func(A, B, C) R) {
	b.then([]Port{a, c, d}, out, func(f *Firing) {
		out.write(f, fn(a.read(f), c.read(f), d.read(f)))
	})
}

// then checks a typed signature against the members and submits reaction.
// out is nil when the reaction answers no caller.
func (b *PatternBuilder) then(inputs []Port, out Port, reaction func(*Firing)) {
	if b.consumed {
		b.take() // panics with ErrCodeBuilderConsumed
	}
	b.checkSignature(inputs, out)
	b.ThenDo(reaction)
}

// checkSignature panics unless inputs and out cover the members exactly.
func (b *PatternBuilder) checkSignature(inputs []Port, out Port) {
	pos := func(p Port) int {
		id := p.Strip().ID
		if p.owner() == b.j {
			for i, m := range b.members {
				if m.ID == id {
					return i
				}
			}
		}
		panic(&Fault{
			Code:     ErrCodeNotMember,
			Message:  fmt.Sprintf("reaction signature names channel %d, which is not in the pattern", id),
			Junction: b.j.id,
			Channel:  id,
		})
	}

	read := make([]bool, len(b.members))
	for _, in := range inputs {
		i := pos(in)
		if read[i] {
			panic(b.signatureFault(b.members[i].ID, "channel %d is read twice by the reaction"))
		}
		read[i] = true
	}

	answered := -1
	if out != nil {
		answered = pos(out)
	}

	for i, m := range b.members {
		switch {
		case m.Capability == CapabilitySend && !read[i]:
			panic(b.signatureFault(m.ID, "send channel %d is not read by the reaction"))
		case m.Capability.carriesReply() && i != answered:
			panic(b.signatureFault(m.ID, "channel %d waits for a reply the reaction does not produce"))
		}
	}
}

func (b *PatternBuilder) signatureFault(ch ChannelID, format string) *Fault {
	return &Fault{
		Code:     ErrCodeSignatureMismatch,
		Message:  fmt.Sprintf(format, ch),
		Junction: b.j.id,
		Channel:  ch,
	}
}
