// Package prepper defines the candidate-normalizer capability exercised by
// the harness, the validation-failure type candidates use to reject input,
// and a registry of named candidates.
//
// A candidate that rejects an input must return a *ValidationError (possibly
// wrapped). Any other error, a panic, or a hang is treated by the harness as
// an invocation defect, never as a correct rejection.
package prepper

import (
	"errors"
	"fmt"

	"github.com/lattice-substrate/jid-conformance/jiderr"
)

// Prepper is one implementation of JID preparation under test.
//
// Prepare must be free of side effects observable by the harness and must
// return the same result for the same input.
type Prepper interface {
	Name() string
	Prepare(raw string) (string, error)
}

// Part identifies which JID part a violation was found in.
type Part int

const (
	PartNone Part = iota
	PartLocal
	PartDomain
	PartResource
)

func (p Part) String() string {
	switch p {
	case PartLocal:
		return "localpart"
	case PartDomain:
		return "domainpart"
	case PartResource:
		return "resourcepart"
	default:
		return "jid"
	}
}

// ValidationError is the deliberate rejection of an invalid input.
type ValidationError struct {
	Class   jiderr.FailureClass
	Part    Part
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil validation error>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Part, e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Part, e.Class, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Reject returns a validation failure for part.
func Reject(class jiderr.FailureClass, part Part, message string) *ValidationError {
	return &ValidationError{Class: class, Part: part, Message: message}
}

// RejectWrap returns a validation failure wrapping the cause reported by an
// underlying implementation.
func RejectWrap(class jiderr.FailureClass, part Part, message string, cause error) *ValidationError {
	return &ValidationError{Class: class, Part: part, Message: message, Cause: cause}
}

// AsValidation extracts the first *ValidationError in err's chain. A typed
// nil *ValidationError carries no detail and does not count.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) && ve != nil {
		return ve, true
	}
	return nil, false
}

type funcPrepper struct {
	name string
	fn   func(string) (string, error)
}

// Func adapts fn into a Prepper called name.
func Func(name string, fn func(raw string) (string, error)) Prepper {
	return funcPrepper{name: name, fn: fn}
}

func (f funcPrepper) Name() string { return f.name }

func (f funcPrepper) Prepare(raw string) (string, error) { return f.fn(raw) }
