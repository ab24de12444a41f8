package entities

import "os"

// AVErrorExternal is the generic "external library failure" code reported to
// the dispatcher when a guest call fails. It equals FFmpeg's AVERROR_EXTERNAL.
const AVErrorExternal = -542398533

// OutcomeKind classifies the result of one guest invocation.
type OutcomeKind int

const (
	// OutcomeSuccess means the guest call returned normally.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeInterrupt means the guest raised an interrupt-class exception.
	OutcomeInterrupt
	// OutcomeFailure means the guest raised any other exception.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeInterrupt:
		return "interrupt"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of invoking the filter object on one frame pair.
type Outcome struct {
	// Err carries the drained guest error for interrupts and failures.
	Err error
	// Signal is the host signal to re-raise for an interrupt.
	Signal os.Signal
	Kind   OutcomeKind
	// Code is 0 on success and AVErrorExternal on failure.
	Code int
}

// OK reports whether the invocation succeeded.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}
