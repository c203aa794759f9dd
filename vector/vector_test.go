package vector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lattice-substrate/jid-conformance/vector"
)

func TestNewCarriesMetadata(t *testing.T) {
	v := vector.New("user@domain/\x00resource",
		vector.WithAnnotation("NUL in resourcepart"),
		vector.WithCategory("resourcepart"),
		vector.WithSource("resourcepart.txt:3"),
	)
	assert.Equal(t, "user@domain/\x00resource", v.Raw())
	assert.Equal(t, "NUL in resourcepart", v.Annotation())
	assert.Equal(t, "resourcepart", v.Category())
	assert.Equal(t, "resourcepart.txt:3", v.Source())
	assert.Equal(t, "resourcepart.txt:3", v.ID())
}

func TestStringQuotesUnprintable(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"user@domain/\x00resource", `"user@domain/\x00resource"`},
		{"\xff@example.com", `"\xff@example.com"`},
		{"juliet@\u00e9xample.com", `"juliet@\u00e9xample.com"`},
		{"", `""`},
	}
	for _, tc := range cases {
		v := vector.New(tc.raw)
		assert.Equal(t, tc.want, v.String())
		assert.Equal(t, tc.want, v.ID(), "ID falls back to the quoted raw text")
	}
}

func TestVectorIsAValue(t *testing.T) {
	a := vector.New("a@b", vector.WithAnnotation("x"))
	b := a
	assert.Equal(t, a, b)
	assert.True(t, a == vector.New("a@b", vector.WithAnnotation("x")))
}
