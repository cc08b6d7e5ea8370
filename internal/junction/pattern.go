package junction

import (
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// JoinPattern is an immutable set of member channels plus the reaction to run
// once every member holds a message.
//
// Member order fixes argument and reply positions only; matching treats the
// members as a set.
type JoinPattern struct {
	index    int // registration order, assigned by the worker
	members  []StrippedChannel
	reaction func(*Firing)
}

func newJoinPattern(members []StrippedChannel, reaction func(*Firing)) *JoinPattern {
	return &JoinPattern{index: -1, members: members, reaction: reaction}
}

// Index returns the registration position of the pattern, or -1 before the
// junction has processed the registration.
func (p *JoinPattern) Index() int {
	return p.index
}

// Channels returns the member channel ids in construction order.
func (p *JoinPattern) Channels() []ChannelID {
	ids := make([]ChannelID, len(p.members))
	for i, m := range p.members {
		ids[i] = m.ID
	}
	return ids
}

// Firing is the assembled argument tuple handed to a reaction.
//
// Inputs are read with Value and Request; outputs are written with Reply and
// Respond. Outputs are held until the reaction returns and then routed to the
// reply slots of the consumed messages.
type Firing struct {
	owner    *Junction
	junction JunctionID
	pattern  int
	seq      int64
	members  []StrippedChannel
	args     []message

	mu      sync.Mutex
	outputs []any
	replied []bool
}

func newFiring(j *Junction, p *JoinPattern, seq int64, args []message) *Firing {
	return &Firing{
		owner:    j,
		junction: j.id,
		pattern:  p.index,
		seq:      seq,
		members:  p.members,
		args:     args,
		outputs:  make([]any, len(p.members)),
		replied:  make([]bool, len(p.members)),
	}
}

// Seq returns the junction-wide sequence number of this firing.
func (f *Firing) Seq() int64 { return f.seq }

// Pattern returns the registration index of the fired pattern.
func (f *Firing) Pattern() int { return f.pattern }

// Junction returns the id of the junction that fired.
func (f *Firing) Junction() JunctionID { return f.junction }

// slot returns the member position of ch, panicking if ch is not a member.
func (f *Firing) slot(ch Port) int {
	id := ch.Strip().ID
	if ch.owner() == f.owner {
		for i, m := range f.members {
			if m.ID == id {
				return i
			}
		}
	}
	panic(&Fault{
		Code:     ErrCodeNotMember,
		Message:  fmt.Sprintf("channel %d is not a member of pattern %d", id, f.pattern),
		Junction: f.junction,
		Channel:  id,
	})
}

func (f *Firing) setOutput(ch Port, v any) {
	i := f.slot(ch)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[i] = v
	f.replied[i] = true
}

// Value returns the message consumed from send channel ch.
func Value[T any](f *Firing, ch *SendChannel[T]) T {
	return restore[T](f.args[f.slot(ch)].payload)
}

// Request returns the value sent on bidirectional channel ch.
func Request[T, R any](f *Firing, ch *BidirChannel[T, R]) T {
	return restore[T](f.args[f.slot(ch)].payload)
}

// Reply sets the value handed to the caller blocked in ch.Recv.
// A later call for the same channel overwrites an earlier one.
func Reply[R any](f *Firing, ch *RecvChannel[R], v R) {
	f.setOutput(ch, v)
}

// Respond sets the value handed to the caller blocked in ch.SendRecv.
// A later call for the same channel overwrites an earlier one.
func Respond[T, R any](f *Firing, ch *BidirChannel[T, R], v R) {
	f.setOutput(ch, v)
}

// route delivers outputs to the reply slots of the consumed messages.
// Members that carry a reply slot but received no output get ErrCodeNoReply.
func (f *Firing) route() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, m := range f.members {
		slot := f.args[i].reply
		if slot == nil {
			continue
		}
		if f.replied[i] {
			slot.deliver(f.outputs[i], nil)
			continue
		}
		slot.deliver(nil, &Fault{
			Code:     ErrCodeNoReply,
			Message:  fmt.Sprintf("pattern %d returned without replying", f.pattern),
			Junction: f.junction,
			Channel:  m.ID,
		})
	}
}

// fail delivers err to every reply slot of the firing.
func (f *Firing) fail(err error) {
	for _, a := range f.args {
		if a.reply != nil {
			a.reply.deliver(nil, err)
		}
	}
}

// fire runs the reaction on its own goroutine and routes its outputs.
//
// A panicking reaction is contained here: it is logged, every reply slot of
// the firing receives ErrCodeReactionPanic, and the worker never sees it.
func (p *JoinPattern) fire(j *Junction, f *Firing) {
	j.inflight.Go(func() {
		var pc panics.Catcher
		pc.Try(func() { p.reaction(f) })

		if r := pc.Recovered(); r != nil {
			j.logger.Error("reaction panicked",
				"pattern", p.index,
				"seq", f.seq,
				"panic", fmt.Sprint(r.Value),
				"stack", string(r.Stack),
			)
			f.fail(&Fault{
				Code:     ErrCodeReactionPanic,
				Message:  fmt.Sprintf("reaction panicked: %v", r.Value),
				Junction: j.id,
			})
			return
		}

		f.route()
	})
}
