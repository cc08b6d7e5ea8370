package harness

import "github.com/roach88/junction/internal/junction"

// binding is a declared scenario channel with its typed handle.
// Exactly one of send, recv and bidir is set, according to kind.
type binding struct {
	name  string
	kind  ChannelKind
	send  *junction.SendChannel[int64]
	recv  *junction.RecvChannel[int64]
	bidir *junction.BidirChannel[int64, int64]
}

func newBinding(j *junction.Junction, decl ChannelDecl) *binding {
	b := &binding{name: decl.Name, kind: decl.Kind}
	switch decl.Kind {
	case KindSend:
		b.send = junction.NewSendChannel[int64](j)
	case KindRecv:
		b.recv = junction.NewRecvChannel[int64](j)
	case KindBidir:
		b.bidir = junction.NewBidirChannel[int64, int64](j)
	default:
		panic("harness: unknown channel kind " + string(decl.Kind))
	}
	return b
}

func (b *binding) port() junction.Port {
	switch b.kind {
	case KindSend:
		return b.send
	case KindRecv:
		return b.recv
	default:
		return b.bidir
	}
}

func (b *binding) id() junction.ChannelID {
	return b.port().Strip().ID
}

// join grows builder by this channel.
func (b *binding) join(builder *junction.PatternBuilder) *junction.PatternBuilder {
	switch b.kind {
	case KindSend:
		return builder.And(b.send)
	case KindRecv:
		return builder.AndRecv(b.recv)
	default:
		return builder.AndBidir(b.bidir)
	}
}

// input returns the value this member carried into the firing.
// Receive members carry none.
func (b *binding) input(f *junction.Firing) (int64, bool) {
	switch b.kind {
	case KindSend:
		return junction.Value(f, b.send), true
	case KindBidir:
		return junction.Request(f, b.bidir), true
	default:
		return 0, false
	}
}

// answer replies to this member if it carries a reply slot.
func (b *binding) answer(f *junction.Firing, v int64) {
	switch b.kind {
	case KindRecv:
		junction.Reply(f, b.recv, v)
	case KindBidir:
		junction.Respond(f, b.bidir, v)
	}
}
