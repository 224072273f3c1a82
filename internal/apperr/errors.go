// Package apperr defines the error taxonomy shared by the game core. Errors
// carry a Kind so callers can branch with errors.Is against the sentinels.
package apperr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindCapacity
	KindNotFound
	KindConflict
	KindTransient
	KindDesync
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCapacity:
		return "capacity"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindDesync:
		return "desync"
	default:
		return "unknown"
	}
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrCapacity   = &Error{Kind: KindCapacity}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrTransient  = &Error{Kind: KindTransient}
	ErrDesync     = &Error{Kind: KindDesync}
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match on Kind, so any *Error matches the sentinel of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Validation(op, format string, args ...interface{}) error {
	return newf(KindValidation, op, format, args...)
}

func Capacity(op, format string, args ...interface{}) error {
	return newf(KindCapacity, op, format, args...)
}

func NotFound(op, format string, args ...interface{}) error {
	return newf(KindNotFound, op, format, args...)
}

func Conflict(op, format string, args ...interface{}) error {
	return newf(KindConflict, op, format, args...)
}

func Desync(op, format string, args ...interface{}) error {
	return newf(KindDesync, op, format, args...)
}

// Transient wraps a transport failure. A nil err yields nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransient, Op: op, Message: "transport failure", Err: err}
}

func IsRetriable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// KindOf returns the kind of the first *Error in the chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
