// Package errs defines the unified error taxonomy shared by every layer
// of junta: the connection driver, the service/middleware algebra, and
// the protocol framing. Callers branch on Kind with errs.Is, which finds
// the *Error in a wrapped chain via errors.As and compares its Kind, the
// way rig's service code branches on wrapped sentinel errors (e.g.
// internal/server/validate.go).
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into the taxonomy from the design's error
// handling section. It has no wire representation — the protocol layer
// only ever sends a reserved, unexamined code alongside a message.
type Kind int

const (
	// Unknown covers failures that don't fit another kind.
	Unknown Kind = iota
	// Transport indicates an underlying socket/WebSocket failure.
	Transport
	// Encoding indicates a CBOR or JSON encode/decode failure.
	Encoding
	// ReceiverClosed indicates a Next continuation's peer was dropped
	// before the stage completed.
	ReceiverClosed
	// NullFuture indicates Next was invoked after being consumed already.
	NullFuture
	// InvalidRequest indicates no arm in a chain matched the input.
	InvalidRequest
	// NotFound indicates a lookup (e.g. in a registry) found nothing.
	NotFound
	// MissingOption indicates a required configuration value was absent.
	MissingOption
	// IO indicates address resolution or socket setup failure.
	IO
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Encoding:
		return "encoding"
	case ReceiverClosed:
		return "receiver closed"
	case NullFuture:
		return "null future"
	case InvalidRequest:
		return "invalid request"
	case NotFound:
		return "not found"
	case MissingOption:
		return "missing option"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return fmt.Sprintf("junta: %s: %s: %v", e.Kind, e.Msg, e.Err)
		}
		return fmt.Sprintf("junta: %s: %v", e.Kind, e.Err)
	}
	if e.Msg != "" {
		return fmt.Sprintf("junta: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("junta: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an Error of the given kind around an existing cause.
func Wrap(kind Kind, msg string, err error) *Error {
	if err == nil {
		return New(kind, msg)
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// MissingOptionf builds a MissingOption error naming the missing field.
func MissingOptionf(format string, args ...any) *Error {
	return New(MissingOption, fmt.Sprintf(format, args...))
}
