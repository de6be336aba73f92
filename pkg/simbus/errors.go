package simbus

import (
	"errors"
	"fmt"
)

// ErrBusClosed indicates the bus has been stopped.
var ErrBusClosed = errors.New("simbus: bus closed")

// ValidationError is returned from Publish when a validator rejects an
// event. The event never enters the log.
type ValidationError struct {
	EventID   string // may be empty when the ID itself is missing
	Validator string // name of the rejecting validator
	Reason    string
	Err       error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("simbus: event %s rejected by %s: %s", e.EventID, e.Validator, e.Reason)
	}
	return fmt.Sprintf("simbus: event rejected by %s: %s", e.Validator, e.Reason)
}

// Unwrap returns the underlying validator error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
