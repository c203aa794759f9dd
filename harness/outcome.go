// Package harness runs candidate JID preppers against invalid-JID vectors and
// classifies each invocation.
//
// Every (prepper, vector) pair resolves to exactly one Result. A Result holds
// either an Outcome, which is Rejected (the prepper correctly failed, a pass)
// or Accepted (the prepper produced output for an invalid input, a fail), or a
// *Defect, which attributes a panic, a non-validation error, or a timeout to
// the pair. Defects are never counted as passes or fails.
package harness

import (
	"fmt"

	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/prepper"
	"github.com/lattice-substrate/jid-conformance/vector"
)

// Case is one (prepper, vector) pairing.
type Case struct {
	Prepper prepper.Prepper
	Vector  vector.InvalidJID
}

// Outcome is the closed union of Rejected and Accepted. The unexported method
// keeps other packages from adding variants, so a type switch over the two is
// exhaustive.
type Outcome interface {
	Case() Case
	Passed() bool
	outcome()
}

// Rejected is the pass variant: the prepper signalled a validation failure.
type Rejected struct {
	c      Case
	detail *prepper.ValidationError
}

// Case returns the evaluated pairing.
func (r Rejected) Case() Case { return r.c }

// Detail returns the captured validation failure.
func (r Rejected) Detail() *prepper.ValidationError { return r.detail }

// Passed is always true.
func (Rejected) Passed() bool { return true }

func (Rejected) outcome() {}

// Accepted is the fail variant: the prepper returned output for an input it
// should have rejected. Output is the diagnostic artifact.
type Accepted struct {
	c      Case
	output string
}

// Case returns the evaluated pairing.
func (a Accepted) Case() Case { return a.c }

// Output returns what the prepper produced instead of failing.
func (a Accepted) Output() string { return a.output }

// Passed is always false.
func (Accepted) Passed() bool { return false }

func (Accepted) outcome() {}

// Defect attributes an invocation problem unrelated to correct rejection to
// its pair: a panic, an error that is not a *prepper.ValidationError, or an
// invocation that did not finish in time.
type Defect struct {
	Case  Case
	Err   *jiderr.Error
	Panic any
	Stack []byte
}

// Class is INVOCATION_DEFECT or INVOCATION_TIMEOUT.
func (d *Defect) Class() jiderr.FailureClass { return d.Err.Class }

func (d *Defect) Error() string {
	return fmt.Sprintf("%s on input %s: %v", d.Case.Prepper.Name(), d.Case.Vector.ID(), d.Err)
}

// Unwrap returns the classified error.
func (d *Defect) Unwrap() error { return d.Err }

// Kind names the three ways a pair can resolve.
type Kind int

const (
	KindRejected Kind = iota + 1
	KindAccepted
	KindDefect
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindAccepted:
		return "accepted"
	case KindDefect:
		return "defect"
	default:
		return "unknown"
	}
}

// Result is the resolution of one pair: exactly one of Outcome and Err is set,
// and Err is always a *Defect.
type Result struct {
	Case    Case
	Outcome Outcome
	Err     error
}

// Kind classifies the result.
func (r Result) Kind() Kind {
	switch r.Outcome.(type) {
	case Rejected:
		return KindRejected
	case Accepted:
		return KindAccepted
	default:
		return KindDefect
	}
}

// Defect returns the attributed defect, if the pair produced one.
func (r Result) Defect() (*Defect, bool) {
	d, ok := r.Err.(*Defect)
	return d, ok
}
