package retry

import (
	"errors"
	"fmt"

	"github.com/jonathan/apply-agent/internal/types"
)

// Error is a classified automation failure
type Error struct {
	Kind     types.ErrorKind
	Op       string
	Selector string
	Attempts int
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	var where string
	if e.Op != "" {
		where = " " + e.Op
	}
	if e.Selector != "" {
		where += fmt.Sprintf(" [%s]", e.Selector)
	}
	msg := fmt.Sprintf("automation error (%s)%s", e.Kind, where)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Errorf creates an Error of the given kind
func Errorf(kind types.ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind
func Wrap(kind types.ErrorKind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the taxonomy kind carried by err, or "" when err is not classified.
func KindOf(err error) types.ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether a failure of this kind is retried locally.
// Everything else is surfaced to the caller on first occurrence.
func Retryable(kind types.ErrorKind) bool {
	switch kind {
	case types.ErrElementNotFound, types.ErrTimeout:
		return true
	default:
		return false
	}
}
