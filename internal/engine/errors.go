package engine

import (
	"errors"
	"fmt"
)

// ErrAuthentication is returned when no authenticated session could be established.
var ErrAuthentication = errors.New("authentication failed")

// ScanError represents a failure of the listing scan that ends the run
type ScanError struct {
	Message string
	Cause   error
}

func (e *ScanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scan error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("scan error: %s", e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Cause
}
