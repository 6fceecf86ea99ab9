package browser

import "fmt"

// Error represents a failed browser operation
type Error struct {
	Op       string
	Selector string
	Cause    error
}

func (e *Error) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("browser error: %s %s: %v", e.Op, e.Selector, e.Cause)
	}
	return fmt.Sprintf("browser error: %s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func opError(op, selector string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Selector: selector, Cause: err}
}
