package listing

import "fmt"

// ExtractionError represents an error parsing a results snapshot
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("listing extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("listing extraction error: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
