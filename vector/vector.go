// Package vector defines the invalid-JID test vector.
//
// An InvalidJID is an immutable value: its fields are only reachable through
// accessors, so one vector can be shared by every candidate and goroutine in a
// run without copying or locking.
package vector

import "strconv"

// InvalidJID is one input believed to be invalid under the JID rules.
type InvalidJID struct {
	raw        string
	annotation string
	category   string
	source     string
}

// Option configures optional vector metadata.
type Option func(*InvalidJID)

// WithAnnotation records the expected violation, free form.
func WithAnnotation(s string) Option {
	return func(v *InvalidJID) { v.annotation = s }
}

// WithCategory records the corpus category, usually the source file stem.
func WithCategory(s string) Option {
	return func(v *InvalidJID) { v.category = s }
}

// WithSource records where the vector was loaded from, e.g. "localpart.txt:12".
func WithSource(s string) Option {
	return func(v *InvalidJID) { v.source = s }
}

// New returns a vector for raw. raw may be empty or hold invalid UTF-8.
func New(raw string, opts ...Option) InvalidJID {
	v := InvalidJID{raw: raw}
	for _, opt := range opts {
		opt(&v)
	}
	return v
}

// Raw returns the presumed-invalid JID text exactly as loaded.
func (v InvalidJID) Raw() string { return v.raw }

// Annotation returns the expected-violation note, or "".
func (v InvalidJID) Annotation() string { return v.annotation }

// Category returns the corpus category, or "".
func (v InvalidJID) Category() string { return v.category }

// Source returns the load location, or "".
func (v InvalidJID) Source() string { return v.source }

// ID identifies the vector in diagnostics.
func (v InvalidJID) ID() string {
	if v.source != "" {
		return v.source
	}
	return v.String()
}

// String renders the raw text ASCII-quoted so control characters and invalid
// bytes stay visible in reports.
func (v InvalidJID) String() string {
	return strconv.QuoteToASCII(v.raw)
}
