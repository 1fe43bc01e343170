// internal/app/admission/errors.go
package admission

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the event, registration, request, or entry
// an operation names does not exist.
var ErrNotFound = errors.New("admission: not found")

// InvalidStateError reports an operation attempted from a state that does
// not permit it.
type InvalidStateError struct {
	Op     string
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("admission: %s not permitted from %s", e.Op, e.Status)
}

// AdmissionDeniedError reports that an admission would exceed the event's
// capacity. Remaining is the slot count at the time of the check and may
// be negative. Callers racing for capacity should treat this as a normal
// outcome.
type AdmissionDeniedError struct {
	Remaining int64
}

func (e *AdmissionDeniedError) Error() string {
	return fmt.Sprintf("admission denied: %d slots remaining", e.Remaining)
}

// ValidationError reports malformed input: a declared guest count that
// does not match the submitted entries, or required fields missing.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "admission: " + e.Msg
}

// PersistenceError reports a commit that modified zero rows when rows
// were expected, usually because a concurrent writer got there first.
type PersistenceError struct {
	Op string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("admission: %s modified no rows", e.Op)
}
