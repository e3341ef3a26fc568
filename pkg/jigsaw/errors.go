package jigsaw

import (
	"errors"
	"fmt"
)

// Kind classifies a jigsaw failure.
type Kind string

const (
	InvalidConfiguration Kind = "INVALID_CONFIGURATION"
	ImageDecodeFailure   Kind = "IMAGE_DECODE_FAILURE"
	IOFailure            Kind = "IO_FAILURE"
	AlreadyConnected     Kind = "ALREADY_CONNECTED"
)

// Error is a jigsaw failure with an optional offending piece and cause.
type Error struct {
	Kind    Kind
	Piece   *Position // nil unless the failure is tied to one piece
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Piece != nil {
		msg = fmt.Sprintf("piece %s: %s", e.Piece, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind to cause. Collaborators such as image loaders use it
// to report failures in the same shape as the core.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether any error in err's chain is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
