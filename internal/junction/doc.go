// Package junction implements the Join Calculus.
//
// A Junction owns a set of typed channels and a list of join patterns. A join
// pattern names a fixed set of channels and a reaction; the reaction fires
// once every one of those channels holds a message, consuming exactly one
// message from each.
//
// ARCHITECTURE:
//
// Single-Writer Worker:
// Every channel operation and pattern registration becomes an event on one
// unbounded FIFO control stream. A single worker goroutine consumes it and is
// the only code that touches pending queues or the pattern list. There are no
// locks around matching state because there is exactly one writer.
//
// Event Processing Flow:
//  1. Send / Recv / SendRecv / ThenDo enqueue an event (never blocks)
//  2. The worker dequeues events one at a time
//  3. A registration appends to the pattern list (no retroactive matching)
//  4. An arrival is pushed onto its channel's pending queue, then the patterns
//     that reference the channel are scanned in registration order
//  5. The first pattern with a message on every member pops one message per
//     member and fires; at most one pattern fires per arrival
//  6. The reaction runs on its own goroutine; its outputs are routed to the
//     reply slots of the consumed Recv/Bidir messages when it returns
//
// Channels come in three capabilities:
//
//	send  := junction.NewSendChannel[int](j)        // Send(v) error
//	get   := junction.NewRecvChannel[int](j)        // Recv() (int, error)
//	twice := junction.NewBidirChannel[int, int](j)  // SendRecv(v) (int, error)
//
// Patterns are built with When and grown with And, AndRecv and AndBidir. The
// channel handles carry the payload types, so reactions read and write them
// with the typed accessors Value, Request, Reply and Respond:
//
//	j.When(twice).ThenDo(func(f *junction.Firing) {
//		junction.Respond(f, twice, 2*junction.Request(f, twice))
//	})
//
// For patterns of up to three inputs and one waiting caller, the typed
// finalizers ThenDo1..3 and ThenReturn0..3 take a plain function instead. Its
// signature is checked against the pattern's members before registration:
//
//	junction.ThenReturn1(j.When(twice), twice, twice, func(x int) int { return 2 * x })
//
// Mixing channels of two junctions in one pattern is a wiring defect and
// panics with a Fault before anything reaches either engine. Stopping a
// junction fails every outstanding reply slot with a closed fault.
package junction
