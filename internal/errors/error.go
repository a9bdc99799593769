package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryStore   Category = "store"
	CategoryCLI     Category = "cli"
	CategoryRuntime Category = "runtime"
)

// PostboardError is a structured error with a code, detail and suggestion.
type PostboardError struct {
	// Code is a unique error identifier (e.g., "E120").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PostboardError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PostboardError) Unwrap() error {
	return e.Wrapped
}

// Is matches another PostboardError with the same code.
func (e *PostboardError) Is(target error) bool {
	t, ok := target.(*PostboardError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithDetail adds a detailed explanation to the error.
func (e *PostboardError) WithDetail(d string) *PostboardError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PostboardError) WithSuggestion(s string) *PostboardError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *PostboardError) Wrap(err error) *PostboardError {
	e.Wrapped = err
	return e
}

// New creates a PostboardError from a registered error code.
func New(code string) *PostboardError {
	template, ok := registry[code]
	if !ok {
		return &PostboardError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PostboardError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new PostboardError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *PostboardError {
	return &PostboardError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a PostboardError.
// An error that already is (or wraps) a PostboardError is returned as is.
func FromError(err error, code string) *PostboardError {
	if err == nil {
		return nil
	}
	var pe *PostboardError
	if stderrors.As(err, &pe) {
		return pe
	}
	return New(code).Wrap(err)
}
