package valerr

import (
	"errors"
	"fmt"
)

// Error marks an input-validation failure. Callers pick these out with
// errors.As to distinguish a bad request from an infrastructure fault.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(field, format string, args ...interface{}) *Error {
	return &Error{Field: field, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err carries a validation error anywhere in its chain.
func Is(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}
