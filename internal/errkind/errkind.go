// Package errkind implements the closed, tagged error set the core's
// stages return on their failure paths. Errors are values, never
// exceptional control flow across a stage boundary; each stage wraps its
// underlying cause with the Kind that names which stage raised it and why.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is one of the nine closed error categories.
type Kind string

const (
	ProviderUnavailable Kind = "provider_unavailable"
	SchemaInvalid       Kind = "schema_invalid"
	AmbiguousUtterance  Kind = "ambiguous_utterance"
	NoCapability        Kind = "no_capability"
	ValidationFailed    Kind = "validation_failed"
	NoTool              Kind = "no_tool"
	PreconditionUnmet   Kind = "precondition_unmet"
	ToolFailure         Kind = "tool_failure"
	Cancelled           Kind = "cancelled"
)

// Error wraps an underlying cause with the stage that raised it and its
// Kind. Callers match on Kind, not on string content.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error wrapping err (which may be nil) with stage and kind.
func New(stage string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Is reports whether err carries the given Kind, unwrapping through any
// number of wrapping errors.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
