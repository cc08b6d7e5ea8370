package junction

import (
	"errors"
	"fmt"
)

// Fault is an error raised by the junction or its builder.
//
// Faults come in two classes:
//   - Construction faults signal a wiring defect. They are raised with panic
//     while a pattern is being built or submitted, never returned.
//   - Lifecycle faults are returned to callers blocked in Recv or SendRecv
//     (closed junction, missing reply, panicking reaction).
type Fault struct {
	// Code identifies the fault category.
	Code FaultCode

	// Message is a human-readable description.
	Message string

	// Junction identifies the affected junction, if known.
	Junction JunctionID

	// Channel identifies the affected channel, if any.
	Channel ChannelID
}

// FaultCode categorizes faults.
type FaultCode string

const (
	// ErrCodeJunctionMismatch: a channel from another junction was added to a pattern.
	ErrCodeJunctionMismatch FaultCode = "JUNCTION_MISMATCH"

	// ErrCodeDuplicateChannel: the same channel was added to one pattern twice.
	ErrCodeDuplicateChannel FaultCode = "DUPLICATE_CHANNEL"

	// ErrCodeBuilderConsumed: a builder was used after ThenDo.
	ErrCodeBuilderConsumed FaultCode = "BUILDER_CONSUMED"

	// ErrCodeJunctionUnreachable: a pattern was submitted to a stopped junction.
	ErrCodeJunctionUnreachable FaultCode = "JUNCTION_UNREACHABLE"

	// ErrCodeNotMember: a reaction accessed a channel outside its pattern.
	ErrCodeNotMember FaultCode = "NOT_MEMBER"

	// ErrCodeSignatureMismatch: a typed reaction does not cover the pattern's members.
	ErrCodeSignatureMismatch FaultCode = "SIGNATURE_MISMATCH"

	// ErrCodeClosed: the junction shut down before the request was answered.
	ErrCodeClosed FaultCode = "CLOSED"

	// ErrCodeNoReply: the reaction returned without replying to a member.
	ErrCodeNoReply FaultCode = "NO_REPLY"

	// ErrCodeReactionPanic: the reaction panicked before replying.
	ErrCodeReactionPanic FaultCode = "REACTION_PANIC"
)

// ErrClosed is returned by channel operations on a junction that has shut down.
var ErrClosed = &Fault{Code: ErrCodeClosed, Message: "junction is closed"}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Junction != "" && f.Channel != 0 {
		return fmt.Sprintf("%s: %s (junction=%s, channel=%d)", f.Code, f.Message, f.Junction, f.Channel)
	}
	if f.Junction != "" {
		return fmt.Sprintf("%s: %s (junction=%s)", f.Code, f.Message, f.Junction)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Is reports whether target is a Fault with the same code.
// This lets errors.Is(err, ErrClosed) match closed faults that carry ids.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return f.Code == t.Code
}

// IsClosed returns true if the error is a closed-junction fault.
// Uses errors.As to handle wrapped errors.
func IsClosed(err error) bool {
	return hasCode(err, ErrCodeClosed)
}

// IsConstructionFault returns true for faults that indicate a wiring defect.
func IsConstructionFault(err error) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	switch f.Code {
	case ErrCodeJunctionMismatch, ErrCodeDuplicateChannel, ErrCodeBuilderConsumed,
		ErrCodeJunctionUnreachable, ErrCodeNotMember, ErrCodeSignatureMismatch:
		return true
	}
	return false
}

// FaultCodeOf returns the fault code carried by err, or "" if err is not a Fault.
func FaultCodeOf(err error) FaultCode {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

func hasCode(err error, code FaultCode) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code == code
	}
	return false
}

func closedFault(id JunctionID, ch ChannelID) *Fault {
	return &Fault{
		Code:     ErrCodeClosed,
		Message:  "junction shut down before the request was answered",
		Junction: id,
		Channel:  ch,
	}
}

func mismatchFault(pattern, channel JunctionID, ch ChannelID) *Fault {
	return &Fault{
		Code:     ErrCodeJunctionMismatch,
		Message:  fmt.Sprintf("channel belongs to another junction instance (id %s)", channel),
		Junction: pattern,
		Channel:  ch,
	}
}
