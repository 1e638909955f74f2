// Package syserror marks errors that indicate a bug in metapath itself
// rather than bad input: a broken internal invariant.
package syserror

import (
	"errors"
	"fmt"
)

// Error is a system error.
type Error struct {
	Underlying error
}

func (e *Error) Error() string {
	if e == nil || e.Underlying == nil {
		return ""
	}
	return "system error: " + e.Underlying.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Underlying
}

func New(text string) *Error {
	return &Error{Underlying: errors.New(text)}
}

func Newf(format string, args ...any) *Error {
	return &Error{Underlying: fmt.Errorf(format, args...)}
}

// Wrap returns err unchanged if it already is a system error.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if Is(err) {
		return err
	}
	return &Error{Underlying: err}
}

// Is reports whether err is, or wraps, a system error.
func Is(err error) bool {
	var sysErr *Error
	return errors.As(err, &sysErr)
}

// Recover converts a panic carrying a system error back into an error.
// Panics with other values are re-raised. Use it as the deferred call
// itself:
//
//	defer syserror.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if err, ok := r.(error); ok && Is(err) {
		*errp = err
		return
	}
	panic(r)
}
