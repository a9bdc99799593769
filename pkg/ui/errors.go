package ui

import "errors"

// ErrUnmounted is returned when an operation targets an unmounted component.
var ErrUnmounted = errors.New("ui: component unmounted")
