package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrDestroyed         = errors.New("file destroyed")
	ErrRejected          = errors.New("request rejected")
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is a non-2xx answer. Message is the service's {"error": ...}
// text and may be empty. It unwraps to ErrUnauthorized (401),
// ErrDestroyed (410) or ErrRejected.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusGone:
		return ErrDestroyed
	}
	return ErrRejected
}

// mapError turns a transport failure into ErrUnavailable, keeping the cause.
// Context errors are passed through so callers can tell cancellation apart.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
