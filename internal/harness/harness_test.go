package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/junction/internal/junction"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustValid(t *testing.T, s *Scenario) *Scenario {
	t.Helper()
	require.NoError(t, s.Validate())
	return s
}

func TestRun_SumPair(t *testing.T) {
	firings := 1
	s := mustValid(t, &Scenario{
		Name:        "inline",
		Description: "inline sum",
		Channels: []ChannelDecl{
			{Name: "a", Kind: KindSend},
			{Name: "b", Kind: KindSend},
			{Name: "total", Kind: KindRecv},
		},
		Patterns: []PatternDecl{{Name: "add", When: []string{"a", "b", "total"}, Reaction: "sum"}},
		Steps: []Step{
			{Op: OpSend, Channel: "a", Value: i64(40)},
			{Op: OpSend, Channel: "b", Value: i64(2)},
			{Op: OpRecv, Channel: "total", Expect: i64(42)},
		},
		Expect: &Expect{Firings: &firings},
	})

	result, err := Run(testContext(t), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "inline", result.Junction)
	require.Len(t, result.Firings, 1)
	assert.Equal(t, []string{"40", "2", ""}, result.Firings[0].Args)
}

func TestRun_ReportsMismatches(t *testing.T) {
	firings := 3
	s := mustValid(t, &Scenario{
		Name:        "wrong",
		Description: "every expectation is wrong",
		Channels: []ChannelDecl{
			{Name: "q", Kind: KindBidir},
			{Name: "idle", Kind: KindSend},
		},
		Patterns: []PatternDecl{{Name: "d", When: []string{"q"}, Reaction: "double"}},
		Steps: []Step{
			{Op: OpSendRecv, Channel: "q", Value: i64(2), Expect: i64(5)},
			{Op: OpSendRecv, Channel: "q", Value: i64(2), Error: "NO_REPLY"},
			{Op: OpSend, Channel: "idle", Value: i64(1)},
		},
		Expect: &Expect{
			Firings:  &firings,
			Patterns: map[string]int{"d": 1},
			Pending:  map[string]int{"idle": 0},
		},
	})

	result, err := Run(testContext(t), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"step 0 (send_recv q): expected reply 5, got reply 4",
		"step 1 (send_recv q): expected error NO_REPLY, got reply 4",
		"expected 3 firings, got 2",
		"pattern d: expected 1 firings, got 2",
		"channel idle: expected 0 pending, got 1",
	}, result.Errors)
}

func TestRun_ReactionPanic(t *testing.T) {
	s := mustValid(t, &Scenario{
		Name:        "boom",
		Description: "panicking reaction",
		Channels:    []ChannelDecl{{Name: "r", Kind: KindRecv}},
		Patterns:    []PatternDecl{{Name: "p", When: []string{"r"}, Reaction: "panic"}},
		Steps: []Step{
			{Op: OpRecv, Channel: "r", Error: string(junction.ErrCodeReactionPanic)},
			{Op: OpRecv, Channel: "r", Error: string(junction.ErrCodeReactionPanic)},
		},
	})

	result, err := Run(testContext(t), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Firings, 2)
}

func TestRun_StepTimeout(t *testing.T) {
	s := mustValid(t, &Scenario{
		Name:        "starved",
		Description: "recv with nothing to join",
		Channels: []ChannelDecl{
			{Name: "a", Kind: KindSend},
			{Name: "r", Kind: KindRecv},
		},
		Patterns: []PatternDecl{{Name: "p", When: []string{"a", "r"}, Reaction: "first"}},
		Steps:    []Step{{Op: OpRecv, Channel: "r", Error: CodeTimeout}},
		Expect:   &Expect{Pending: map[string]int{"r": 1}},
	})

	result, err := Run(testContext(t), s, WithStepTimeout(20*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Firings)
}

func TestRun_UnawaitedAsyncFailsClosed(t *testing.T) {
	s := mustValid(t, &Scenario{
		Name:        "dangling",
		Description: "async request that never matches",
		Channels: []ChannelDecl{
			{Name: "a", Kind: KindSend},
			{Name: "r", Kind: KindRecv},
		},
		Patterns: []PatternDecl{{Name: "p", When: []string{"a", "r"}, Reaction: "first"}},
		Steps:    []Step{{ID: "w", Op: OpRecv, Channel: "r", Async: true}},
	})

	result, err := Run(testContext(t), s)
	require.NoError(t, err)
	require.Len(t, result.Steps, 2)
	last := result.Steps[1]
	assert.Equal(t, OpAwait, last.Op)
	assert.Equal(t, "w", last.Ref)
	assert.Equal(t, string(junction.ErrCodeClosed), last.Error)
	assert.Equal(t, map[string]int{"r": 1}, result.Pending)
}

func TestRun_ForwardsToRecorder(t *testing.T) {
	rec := junction.NewMemoryRecorder()
	s := mustValid(t, &Scenario{
		Name:        "journaled",
		Description: "firings reach the downstream recorder",
		Channels:    []ChannelDecl{{Name: "q", Kind: KindBidir}},
		Patterns:    []PatternDecl{{Name: "d", When: []string{"q"}, Reaction: "double"}},
		Steps: []Step{
			{Op: OpSendRecv, Channel: "q", Value: i64(1), Expect: i64(2)},
			{Op: OpSendRecv, Channel: "q", Value: i64(2), Expect: i64(4)},
		},
	})

	result, err := Run(testContext(t), s,
		WithRecorder(rec),
		WithIDGenerator(junction.NewFixedGenerator("custom-id")),
	)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "custom-id", result.Junction)

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, junction.JunctionID("custom-id"), records[0].Junction)
	assert.Equal(t, []string{"2"}, records[1].Args)
}

func TestRun_CancelledContext(t *testing.T) {
	s := mustValid(t, validScenario())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReactions(t *testing.T) {
	tests := []struct {
		name   string
		inputs []int64
		want   int64
		reply  bool
	}{
		{"sum", []int64{1, 2, 3}, 6, true},
		{"sum", nil, 0, true},
		{"product", []int64{2, 3, 4}, 24, true},
		{"product", nil, 1, true},
		{"max", []int64{3, 9, 1}, 9, true},
		{"max", nil, 0, true},
		{"double", []int64{2, 3}, 10, true},
		{"first", []int64{7, 8}, 7, true},
		{"first", nil, 0, true},
		{"noop", []int64{1}, 0, false},
	}

	for _, tt := range tests {
		got, ok := reactions[tt.name](tt.inputs)
		assert.Equal(t, tt.reply, ok, tt.name)
		assert.Equal(t, tt.want, got, "%s(%v)", tt.name, tt.inputs)
	}

	assert.Panics(t, func() { reactions["panic"](nil) })
	assert.Equal(t, []string{"double", "first", "max", "noop", "panic", "product", "sum"}, ReactionNames())
}
