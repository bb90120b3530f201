package fetch

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrBadURL          = errors.New("bad url")
	ErrRequestFailed   = errors.New("request failed")
	ErrInvalidResponse = errors.New("invalid response")
	ErrInvalidData     = errors.New("invalid data")
	ErrStatusCode      = errors.New("unexpected status")
	ErrFileNotFound    = errors.New("file not found")
)

// Error is returned by every Client call that fails.
type Error struct {
	Kind       error
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AsError attempts to unwrap err into an *Error.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if fe, ok := AsError(err); ok {
		return fe.StatusCode
	}
	return 0
}
