package api

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks failures to reach the service at all.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse marks 2xx replies whose body lacks the expected fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUnsupported is returned by backends that cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: service returned status %d: %s", e.Op, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: service returned status %d", e.Op, e.Code)
}
