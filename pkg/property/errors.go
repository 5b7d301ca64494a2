package property

import (
	"errors"
	"fmt"
)

// Error taxonomy. Operations wrap these in a *PropertyError; match with errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrTypeMismatch     = errors.New("value type mismatch")
	ErrValidationFailed = errors.New("value failed validation")
	ErrUnauthorized     = errors.New("read-only property requires its key")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrNotFound         = errors.New("not found")

	// ErrAlreadyRegistered also matches ErrInvalidOperation.
	ErrAlreadyRegistered = fmt.Errorf("%w: already registered", ErrInvalidOperation)
)

// PropertyError describes a failed registry or value operation.
type PropertyError struct {
	Op       string // operation name, e.g. "SetValue"
	Property string // property name, empty when not applicable
	Type     string // type name, empty when not applicable
	Detail   string
	Err      error
}

func (e *PropertyError) Error() string {
	msg := e.Op
	if e.Property != "" {
		msg += " " + e.Property
	}
	if e.Type != "" {
		msg += " on " + e.Type
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *PropertyError) Unwrap() error {
	return e.Err
}

func newError(op string, p *Property, t *Type, err error, format string, args ...any) *PropertyError {
	e := &PropertyError{Op: op, Err: err}
	if p != nil {
		e.Property = p.name
	}
	if t != nil {
		e.Type = t.name
	}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}
