package posts

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreClosed is returned when a request reaches a store that has been closed.
	ErrStoreClosed = errors.New("posts: store closed")

	// ErrBridgeClosed is returned when a request is sent through a closed bridge.
	ErrBridgeClosed = errors.New("posts: bridge closed")
)

// RequestError records a request the store refused to queue.
type RequestError struct {
	Kind string
	Err  error
}

// Error returns the error message with the request kind.
func (e *RequestError) Error() string {
	return fmt.Sprintf("posts: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}
