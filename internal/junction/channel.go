package junction

import "context"

// Capability says whether a channel may be sent to, received from, or both.
type Capability int

const (
	// CapabilitySend channels carry values into the junction.
	CapabilitySend Capability = iota + 1
	// CapabilityRecv channels carry reaction outputs back to blocked callers.
	CapabilityRecv
	// CapabilityBidir channels do both in one request/response round trip.
	CapabilityBidir
)

func (c Capability) String() string {
	switch c {
	case CapabilitySend:
		return "send"
	case CapabilityRecv:
		return "recv"
	case CapabilityBidir:
		return "bidir"
	default:
		return "unknown"
	}
}

// carriesReply reports whether messages on the channel hold a reply slot.
func (c Capability) carriesReply() bool {
	return c == CapabilityRecv || c == CapabilityBidir
}

// StrippedChannel is a channel with its payload types erased.
// The builder and the engine store channels in this form.
type StrippedChannel struct {
	Junction   JunctionID
	ID         ChannelID
	Capability Capability
}

// Port is any channel that can take part in a join pattern.
type Port interface {
	Strip() StrippedChannel
	owner() *Junction
}

// SendPort is a Port whose messages carry a value and no reply.
type SendPort interface {
	Port
	isSend()
}

// RecvPort is a Port whose messages carry only a reply slot.
type RecvPort interface {
	Port
	isRecv()
}

// BidirPort is a Port whose messages carry a value and a reply slot.
type BidirPort interface {
	Port
	isBidir()
}

// SendChannel is a send-only channel carrying values of type T.
type SendChannel[T any] struct {
	j  *Junction
	id ChannelID
}

// NewSendChannel creates a send-only channel on j.
func NewSendChannel[T any](j *Junction) *SendChannel[T] {
	return &SendChannel[T]{j: j, id: j.nextChannelID()}
}

// JunctionID returns the id of the junction the channel belongs to.
func (c *SendChannel[T]) JunctionID() JunctionID { return c.j.id }

// ID returns the channel id.
func (c *SendChannel[T]) ID() ChannelID { return c.id }

// Strip erases the payload type.
func (c *SendChannel[T]) Strip() StrippedChannel {
	return StrippedChannel{Junction: c.j.id, ID: c.id, Capability: CapabilitySend}
}

func (c *SendChannel[T]) owner() *Junction { return c.j }

func (c *SendChannel[T]) isSend() {}

// Send enqueues v. It never blocks and fails only if the junction is closed.
func (c *SendChannel[T]) Send(v T) error {
	return c.j.arrive(c.id, message{payload: v})
}

// RecvChannel is a receive-only channel producing values of type R.
type RecvChannel[R any] struct {
	j  *Junction
	id ChannelID
}

// NewRecvChannel creates a receive-only channel on j.
func NewRecvChannel[R any](j *Junction) *RecvChannel[R] {
	return &RecvChannel[R]{j: j, id: j.nextChannelID()}
}

// JunctionID returns the id of the junction the channel belongs to.
func (c *RecvChannel[R]) JunctionID() JunctionID { return c.j.id }

// ID returns the channel id.
func (c *RecvChannel[R]) ID() ChannelID { return c.id }

// Strip erases the payload type.
func (c *RecvChannel[R]) Strip() StrippedChannel {
	return StrippedChannel{Junction: c.j.id, ID: c.id, Capability: CapabilityRecv}
}

func (c *RecvChannel[R]) owner() *Junction { return c.j }

func (c *RecvChannel[R]) isRecv() {}

// Submit enqueues a receive request and returns without blocking.
func (c *RecvChannel[R]) Submit() (*Pending[R], error) {
	slot := newReplySlot()
	if err := c.j.arrive(c.id, message{reply: slot}); err != nil {
		return nil, err
	}
	return &Pending[R]{slot: slot}, nil
}

// Recv blocks until a matched pattern replies on this channel.
// Returns a closed fault if the junction shuts down first.
func (c *RecvChannel[R]) Recv() (R, error) {
	return c.RecvContext(context.Background())
}

// RecvContext is Recv with a bound on the wait. Cancelling ctx abandons the
// wait only; the request stays queued until consumed or the junction stops.
func (c *RecvChannel[R]) RecvContext(ctx context.Context) (R, error) {
	r, err := c.Submit()
	if err != nil {
		var zero R
		return zero, err
	}
	return r.Wait(ctx)
}

// BidirChannel is a request/response channel taking T and producing R.
type BidirChannel[T, R any] struct {
	j  *Junction
	id ChannelID
}

// NewBidirChannel creates a bidirectional channel on j.
func NewBidirChannel[T, R any](j *Junction) *BidirChannel[T, R] {
	return &BidirChannel[T, R]{j: j, id: j.nextChannelID()}
}

// JunctionID returns the id of the junction the channel belongs to.
func (c *BidirChannel[T, R]) JunctionID() JunctionID { return c.j.id }

// ID returns the channel id.
func (c *BidirChannel[T, R]) ID() ChannelID { return c.id }

// Strip erases the payload types.
func (c *BidirChannel[T, R]) Strip() StrippedChannel {
	return StrippedChannel{Junction: c.j.id, ID: c.id, Capability: CapabilityBidir}
}

func (c *BidirChannel[T, R]) owner() *Junction { return c.j }

func (c *BidirChannel[T, R]) isBidir() {}

// SubmitValue enqueues v with a reply slot and returns without blocking.
func (c *BidirChannel[T, R]) SubmitValue(v T) (*Pending[R], error) {
	slot := newReplySlot()
	if err := c.j.arrive(c.id, message{payload: v, reply: slot}); err != nil {
		return nil, err
	}
	return &Pending[R]{slot: slot}, nil
}

// SendRecv sends v and blocks until a matched pattern replies.
func (c *BidirChannel[T, R]) SendRecv(v T) (R, error) {
	return c.SendRecvContext(context.Background(), v)
}

// SendRecvContext is SendRecv with a bound on the wait; see RecvContext.
func (c *BidirChannel[T, R]) SendRecvContext(ctx context.Context, v T) (R, error) {
	r, err := c.SubmitValue(v)
	if err != nil {
		var zero R
		return zero, err
	}
	return r.Wait(ctx)
}
