// Package harness runs declarative junction scenarios.
//
// A scenario declares int64 channels, join patterns built from them with a
// named built-in reaction, and a list of steps that drive the channels. The
// harness builds a fresh junction, executes the steps in order, and checks
// the expectations against what actually fired.
//
// # Scenario Format
//
// Scenarios are YAML (.yaml, .yml) or CUE (.cue) files:
//
//	name: sum_pair
//	description: "a and b join with a receive and reply with their sum"
//	channels:
//	  - { name: a, kind: send }
//	  - { name: b, kind: send }
//	  - { name: total, kind: recv }
//	patterns:
//	  - { name: add, when: [a, b, total], reaction: sum }
//	steps:
//	  - { op: send, channel: a, value: 2 }
//	  - { op: send, channel: b, value: 3 }
//	  - { op: recv, channel: total, expect: 5 }
//	expect:
//	  firings: 1
//
// # Steps
//
//   - send: deliver value on a send channel (never blocks)
//   - recv: block on a recv channel until a reaction replies
//   - send_recv: send value on a bidir channel and block for the reply
//   - await: wait for an earlier async recv or send_recv (by id)
//
// A recv or send_recv marked async is submitted without waiting. Blocking
// steps may set expect (the reply value) or error (the fault code).
//
// # Reactions
//
// Reactions read the payloads of the send and bidir members (construction
// order) and reply to every recv and bidir member with one value:
//
//   - sum, product, max: fold over the inputs
//   - double: twice the sum
//   - first: the first input
//   - noop: never replies (callers get NO_REPLY)
//   - panic: panics (callers get REACTION_PANIC)
//
// # Traces
//
// Every run produces a Trace of firings and step outcomes, rendered with
// channel and pattern names. Traces are deterministic for a given scenario
// and are compared against golden files with RunWithGolden.
package harness
