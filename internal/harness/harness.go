package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/junction/internal/junction"
)

// DefaultStepTimeout bounds every blocking step.
const DefaultStepTimeout = 5 * time.Second

// Fault codes the harness reports for failures that are not junction faults.
const (
	CodeTimeout = "TIMEOUT"
)

// Option configures Run.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	recorder    junction.Recorder
	idGen       junction.IDGenerator
	stepTimeout time.Duration
}

// WithLogger sets the logger handed to the junction.
// Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder forwards every firing to r as well as to the trace.
func WithRecorder(r junction.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithIDGenerator overrides the junction id.
// By default the junction is named after the scenario.
func WithIDGenerator(g junction.IDGenerator) Option {
	return func(o *options) { o.idGen = g }
}

// WithStepTimeout bounds every blocking step.
func WithStepTimeout(d time.Duration) Option {
	return func(o *options) { o.stepTimeout = d }
}

// Harness executes one scenario against one junction.
type Harness struct {
	scenario    *Scenario
	junction    *junction.Junction
	channels    map[string]*binding
	trace       *traceRecorder
	async       map[string]*asyncStep
	asyncOrder  []string
	stepTimeout time.Duration
	logger      *slog.Logger
}

// asyncStep is a submitted request that has not been awaited yet.
type asyncStep struct {
	index   int
	step    Step
	pending *junction.Pending[int64]
}

// Run executes a scenario and returns the result.
//
// The scenario must already be valid (LoadScenario validates). Each run uses
// a fresh junction, so scenarios are isolated from each other.
//
// Execution flow:
//  1. Create the junction and declare channels in order
//  2. Register patterns in order
//  3. Execute steps in order
//  4. Snapshot pending queues once every step's events have been processed
//  5. Stop the junction and resolve async steps nobody awaited
//  6. Evaluate expectations
//
// A non-nil error means the run itself could not complete (for example ctx
// was cancelled). Expectation failures are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{stepTimeout: DefaultStepTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.idGen == nil {
		o.idGen = junction.NewFixedGenerator(scenario.Name)
	}

	h := &Harness{
		scenario:    scenario,
		channels:    make(map[string]*binding, len(scenario.Channels)),
		trace:       newTraceRecorder(o.recorder),
		async:       make(map[string]*asyncStep),
		stepTimeout: o.stepTimeout,
		logger:      o.logger.With("scenario", scenario.Name),
	}

	h.junction = junction.New(
		junction.WithLogger(o.logger),
		junction.WithRecorder(h.trace),
		junction.WithIDGenerator(o.idGen),
	)
	defer h.junction.Stop()

	h.declare()
	if err := h.register(); err != nil {
		return nil, err
	}

	result := NewResult()
	result.Junction = string(h.junction.ID())

	for i, st := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		ev := h.execute(ctx, i, st)
		checkStep(result, st, ev)
		result.Steps = append(result.Steps, ev)
	}

	snap, err := h.junction.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	for id, n := range snap.Pending {
		result.Pending[h.trace.channelName(id)] = n
	}

	h.junction.Stop()
	h.junction.Wait()

	for _, id := range h.asyncOrder {
		a, ok := h.async[id]
		if !ok {
			continue
		}
		ev := StepEvent{Index: a.index, Op: OpAwait, Ref: id}
		h.await(ctx, a, &ev)
		result.Steps = append(result.Steps, ev)
	}

	result.Firings = h.trace.events()
	evaluateExpect(result, scenario.Expect)

	h.logger.Debug("scenario finished",
		"pass", result.Pass,
		"firings", len(result.Firings),
		"errors", len(result.Errors))

	return result, nil
}

// declare creates the scenario's channels in declaration order.
func (h *Harness) declare() {
	for _, decl := range h.scenario.Channels {
		b := newBinding(h.junction, decl)
		h.channels[decl.Name] = b
		h.trace.nameChannel(b.id(), decl.Name)
	}
}

// register builds one join pattern per declaration.
func (h *Harness) register() error {
	for i, decl := range h.scenario.Patterns {
		react, ok := reactions[decl.Reaction]
		if !ok {
			return fmt.Errorf("pattern %q: unknown reaction %q", decl.Name, decl.Reaction)
		}
		members := make([]*binding, len(decl.When))
		for k, name := range decl.When {
			b, ok := h.channels[name]
			if !ok {
				return fmt.Errorf("pattern %q: unknown channel %q", decl.Name, name)
			}
			members[k] = b
		}

		builder := h.junction.When(members[0].port())
		for _, m := range members[1:] {
			builder = m.join(builder)
		}
		builder.ThenDo(reactWith(react, members))
		h.trace.namePattern(i, decl.Name)
	}
	return nil
}

// reactWith adapts a Reaction to the members of one pattern.
func reactWith(react Reaction, members []*binding) func(*junction.Firing) {
	return func(f *junction.Firing) {
		inputs := make([]int64, 0, len(members))
		for _, m := range members {
			if v, ok := m.input(f); ok {
				inputs = append(inputs, v)
			}
		}
		out, ok := react(inputs)
		if !ok {
			return
		}
		for _, m := range members {
			m.answer(f, out)
		}
	}
}

// execute runs one step and records its outcome.
func (h *Harness) execute(ctx context.Context, index int, st Step) StepEvent {
	ev := StepEvent{
		Index:   index,
		Op:      st.Op,
		Channel: st.Channel,
		ID:      st.ID,
		Ref:     st.Ref,
		Value:   st.Value,
		Async:   st.Async,
	}

	if st.Op == OpAwait {
		a, ok := h.async[st.Ref]
		if !ok {
			ev.Error = fmt.Sprintf("no pending async step %q", st.Ref)
			return ev
		}
		delete(h.async, st.Ref)
		h.await(ctx, a, &ev)
		return ev
	}

	b := h.channels[st.Channel]
	switch st.Op {
	case OpSend:
		if err := b.send.Send(*st.Value); err != nil {
			ev.Error = errorCode(err)
		}

	case OpRecv, OpSendRecv:
		var (
			pending *junction.Pending[int64]
			err     error
		)
		if st.Op == OpRecv {
			pending, err = b.recv.Submit()
		} else {
			pending, err = b.bidir.SubmitValue(*st.Value)
		}
		if err != nil {
			ev.Error = errorCode(err)
			return ev
		}
		a := &asyncStep{index: index, step: st, pending: pending}
		if st.Async {
			h.async[st.ID] = a
			h.asyncOrder = append(h.asyncOrder, st.ID)
			return ev
		}
		h.await(ctx, a, &ev)
	}
	return ev
}

// await blocks on a submitted request for at most the step timeout.
func (h *Harness) await(ctx context.Context, a *asyncStep, ev *StepEvent) {
	waitCtx, cancel := context.WithTimeout(ctx, h.stepTimeout)
	defer cancel()

	v, err := a.pending.Wait(waitCtx)
	if err != nil {
		ev.Error = errorCode(err)
		h.logger.Debug("step failed", "index", a.index, "channel", a.step.Channel, "error", err)
		return
	}
	ev.Reply = &v
}

// errorCode renders err as the fault code scenarios expect.
func errorCode(err error) string {
	if code := junction.FaultCodeOf(err); code != "" {
		return string(code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return err.Error()
}
