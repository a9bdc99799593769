// Package errors provides coded, actionable errors for the postboard CLI and
// configuration layer.
//
// Each error has a code (e.g. "E120") registered with a category, a short
// message and a longer detail. Call sites add context with the builder
// methods and wrap the underlying cause:
//
//	err := errors.New("E120").
//	    WithDetail("Failed to parse postboard.yaml: " + cause.Error()).
//	    WithSuggestion("Check the YAML indentation").
//	    Wrap(cause)
//
// Format renders the error for a terminal; FormatCompact renders one line for
// logs.
//
// # Error Codes
//
//   - E1xx: configuration
//   - E2xx: store and bridge
//   - E3xx: command line
package errors
