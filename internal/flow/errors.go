// Package flow implements the shipping assistant's dialogue engine.
//
// This file defines the error taxonomy. Recoverable errors carry the exact
// prompt shown to the user; the turn that produced them leaves state unchanged.
package flow

import "fmt"

// ValidationError reports user input that failed a slot validator.
type ValidationError struct {
	Prompt string
}

func (e *ValidationError) Error() string { return e.Prompt }

// SelectionError reports a numbered-menu selection that was out of range or
// referenced a list that is no longer displayed.
type SelectionError struct {
	Prompt string
}

func (e *SelectionError) Error() string { return e.Prompt }

// NotFoundError reports an empty collaborator result the flow cannot proceed
// without, such as an account with no warehouses.
type NotFoundError struct {
	Prompt string
}

func (e *NotFoundError) Error() string { return e.Prompt }

// UpstreamError wraps a collaborator failure. It is never shown to the user
// verbatim; the router renders a generic retry message instead.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

// FallbackParseError reports tool-call arguments from the LLM that could not
// be decoded. It is handled like a validation failure.
type FallbackParseError struct {
	Tool string
	Err  error
}

func (e *FallbackParseError) Error() string {
	return fmt.Sprintf("failed to parse %s arguments: %v", e.Tool, e.Err)
}

func (e *FallbackParseError) Unwrap() error { return e.Err }
