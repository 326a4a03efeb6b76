package record

import (
	"errors"
	"fmt"
)

// Upstream contract violations. They surface to the caller wrapped in an
// *InputError and are never coerced away.
var (
	// ErrMissingEvidence means a candidate record carries no evidence snippet.
	ErrMissingEvidence = errors.New("missing evidence snippet")

	// ErrNonNumeric means a numeric slot holds a non-numeric value.
	ErrNonNumeric = errors.New("non-numeric value in numeric field")

	// ErrMalformed means the payload is not a JSON object or list of objects.
	ErrMalformed = errors.New("malformed candidate record")
)

// InputError ties a contract violation to the offending record and field.
type InputError struct {
	Index int // position in the decoded list, -1 when unknown
	Field string
	Err   error
}

func (e *InputError) Error() string {
	where := "record"
	if e.Index >= 0 {
		where = fmt.Sprintf("record %d", e.Index)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %v", where, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
