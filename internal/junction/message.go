package junction

import (
	"context"
	"sync"
)

// message is a type-erased payload waiting in a channel's pending queue.
// Recv and Bidir messages carry the reply slot their caller is blocked on.
type message struct {
	payload any
	reply   *replySlot
}

// outcome is what a reply slot delivers: a value or a fault.
type outcome struct {
	value any
	err   error
}

// replySlot is a one-shot delivery point for a reaction's output.
//
// The first deliver wins; later calls are ignored. The buffered channel means
// delivery never blocks, even if the caller stopped waiting.
type replySlot struct {
	once sync.Once
	ch   chan outcome
}

func newReplySlot() *replySlot {
	return &replySlot{ch: make(chan outcome, 1)}
}

// deliver fills the slot. Returns false if it was already filled.
func (s *replySlot) deliver(v any, err error) bool {
	delivered := false
	s.once.Do(func() {
		s.ch <- outcome{value: v, err: err}
		delivered = true
	})
	return delivered
}

// wait blocks until the slot is filled or ctx is done.
func (s *replySlot) wait(ctx context.Context) (any, error) {
	select {
	case o := <-s.ch:
		// Put it back so a second Wait observes the same outcome.
		s.ch <- o
		return o.value, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// restore converts an erased value back to its static type.
// The pattern builder already tied the channel's type to the value, so the
// assertion only fails on a programming error inside this package.
func restore[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// Pending is an outstanding answer to a Recv or SendRecv request.
//
// It is returned by RecvChannel.Submit and BidirChannel.SubmitValue, which
// enqueue the request without blocking. Wait may be called any number of
// times, from any goroutine.
type Pending[R any] struct {
	slot *replySlot
}

// Wait blocks until a reaction replies, the junction shuts down, or ctx is
// done. Cancelling ctx only stops this wait: the request stays queued and may
// still be consumed by a later firing.
func (r *Pending[R]) Wait(ctx context.Context) (R, error) {
	v, err := r.slot.wait(ctx)
	if err != nil {
		var zero R
		return zero, err
	}
	return restore[R](v), nil
}
