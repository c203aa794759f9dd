// Package jiderr defines the failure taxonomy for jid-conformance.
//
// A FailureClass names either a JID violation kind, carried by a candidate's
// validation failure, or a harness-level problem such as an invocation defect
// or a malformed corpus. Harness classes determine the process exit code.
package jiderr

import (
	"errors"
	"fmt"
)

// FailureClass is a stable failure category.
type FailureClass string

// Violation kinds reported by candidates when they reject an input.
const (
	InvalidUTF8         FailureClass = "INVALID_UTF8"
	EmptyPart           FailureClass = "EMPTY_PART"
	PartTooLong         FailureClass = "PART_TOO_LONG"
	ProhibitedCodepoint FailureClass = "PROHIBITED_CODEPOINT"
	BidiRule            FailureClass = "BIDI_RULE"
	MalformedDomain     FailureClass = "MALFORMED_DOMAIN"
	ProfileRejected     FailureClass = "PROFILE_REJECTED"
)

// Harness classes.
const (
	InvocationDefect  FailureClass = "INVOCATION_DEFECT"
	InvocationTimeout FailureClass = "INVOCATION_TIMEOUT"
	CorpusInvalid     FailureClass = "CORPUS_INVALID"
	RegistryInvalid   FailureClass = "REGISTRY_INVALID"
	ConfigInvalid     FailureClass = "CONFIG_INVALID"
	CLIUsage          FailureClass = "CLI_USAGE"
	InternalIO        FailureClass = "INTERNAL_IO"
	InternalError     FailureClass = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for this failure class.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case CorpusInvalid, RegistryInvalid, ConfigInvalid, CLIUsage:
		return 2
	case InternalIO, InternalError:
		return 10
	default:
		return 1
	}
}

// IsViolation reports whether fc describes why a JID is invalid rather than a
// harness problem.
func (fc FailureClass) IsViolation() bool {
	switch fc {
	case InvalidUTF8, EmptyPart, PartTooLong, ProhibitedCodepoint, BidiRule, MalformedDomain, ProfileRejected:
		return true
	default:
		return false
	}
}

// Error is the structured error type for harness failures.
type Error struct {
	Class   FailureClass
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jiderr: %s: %s: %v", e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("jiderr: %s: %s", e.Class, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class FailureClass, message string) *Error {
	return &Error{Class: class, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(class FailureClass, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, message string, cause error) *Error {
	return &Error{Class: class, Message: message, Cause: cause}
}

// ClassOf returns the class of the first *Error in err's chain, or
// InternalError when err carries no class. A nil error has no class.
func ClassOf(err error) FailureClass {
	if err == nil {
		return ""
	}
	var je *Error
	if errors.As(err, &je) {
		return je.Class
	}
	return InternalError
}
