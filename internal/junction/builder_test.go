package junction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catchFault runs fn and returns the *Fault it panicked with.
func catchFault(t *testing.T, fn func()) (fault *Fault) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		f, ok := r.(*Fault)
		require.True(t, ok, "expected *Fault, got %T: %v", r, r)
		fault = f
	}()
	fn()
	return nil
}

func TestPatternBuilder_Arity(t *testing.T) {
	j := newTestJunction(t)
	a := NewSendChannel[int](j)
	r := NewRecvChannel[string](j)
	bi := NewBidirChannel[int, bool](j)

	b1 := j.When(a)
	assert.Equal(t, 1, b1.Arity())

	b2 := b1.AndRecv(r)
	assert.Equal(t, 2, b2.Arity())

	b3 := b2.AndBidir(bi)
	assert.Equal(t, 3, b3.Arity())
	assert.Equal(t, []StrippedChannel{a.Strip(), r.Strip(), bi.Strip()}, b3.members)
}

func TestPatternBuilder_GrowthConsumesReceiver(t *testing.T) {
	j := newTestJunction(t)
	a := NewSendChannel[int](j)
	b := NewSendChannel[int](j)
	c := NewSendChannel[int](j)

	b1 := j.When(a)
	_ = b1.And(b)

	fault := catchFault(t, func() { b1.And(c) })
	assert.Equal(t, ErrCodeBuilderConsumed, fault.Code)
	assert.True(t, IsConstructionFault(fault))
}

func TestPatternBuilder_ThenDoConsumes(t *testing.T) {
	j := newTestJunction(t)
	a := NewSendChannel[int](j)

	b := j.When(a)
	b.ThenDo(func(*Firing) {})

	fault := catchFault(t, func() { b.ThenDo(func(*Firing) {}) })
	assert.Equal(t, ErrCodeBuilderConsumed, fault.Code)

	assert.Equal(t, 1, snapshot(t, j).Patterns)
}

func TestPatternBuilder_DuplicateChannel(t *testing.T) {
	j := newTestJunction(t)
	a := NewSendChannel[int](j)

	fault := catchFault(t, func() { j.When(a).And(a) })
	assert.Equal(t, ErrCodeDuplicateChannel, fault.Code)
	assert.Equal(t, a.ID(), fault.Channel)
}

func TestPatternBuilder_MismatchOnEveryGrowthStep(t *testing.T) {
	j1 := newTestJunction(t)
	j2 := newTestJunction(t)
	a := NewSendChannel[int](j1)

	tests := []struct {
		name string
		grow func(b *PatternBuilder)
	}{
		{"send", func(b *PatternBuilder) { b.And(NewSendChannel[int](j2)) }},
		{"recv", func(b *PatternBuilder) { b.AndRecv(NewRecvChannel[int](j2)) }},
		{"bidir", func(b *PatternBuilder) { b.AndBidir(NewBidirChannel[int, int](j2)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := j1.When(a)
			fault := catchFault(t, func() { tt.grow(b) })
			assert.Equal(t, ErrCodeJunctionMismatch, fault.Code)
			assert.Contains(t, fault.Error(), string(j2.ID()))
		})
	}

	assert.Equal(t, 0, snapshot(t, j1).Patterns)
	assert.Equal(t, 0, snapshot(t, j2).Patterns)
}

func TestPatternBuilder_NilReaction(t *testing.T) {
	j := newTestJunction(t)
	a := NewSendChannel[int](j)

	assert.Panics(t, func() { j.When(a).ThenDo(nil) })
}
