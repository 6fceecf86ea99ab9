package session

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned by Load when there is no usable persisted session.
var ErrNoSession = errors.New("no persisted session")

// StoreError represents a failure reading or writing the session file
type StoreError struct {
	Path    string
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session store error: %s (%s): %v", e.Message, e.Path, e.Cause)
	}
	return fmt.Sprintf("session store error: %s (%s)", e.Message, e.Path)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
