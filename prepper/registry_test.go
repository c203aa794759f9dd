package prepper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/prepper"
)

func identity(raw string) (string, error) { return raw, nil }

func TestDefaultRegistry(t *testing.T) {
	r := prepper.Default()
	assert.Equal(t, []string{"mellium", "precis", "casefold"}, r.Names())

	all, err := r.Lookup()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "mellium", all[0].Name())
}

func TestLookupKeepsRequestedOrder(t *testing.T) {
	r := prepper.Default()
	ps, err := r.Lookup("casefold", "mellium")
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "casefold", ps[0].Name())
	assert.Equal(t, "mellium", ps[1].Name())
}

func TestLookupFailsFast(t *testing.T) {
	r := prepper.Default()
	cases := []struct {
		name  string
		names []string
	}{
		{"unknown", []string{"precis", "libidn"}},
		{"repeated", []string{"precis", "precis"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ps, err := r.Lookup(tc.names...)
			require.Error(t, err)
			assert.Nil(t, ps)
			assert.Equal(t, jiderr.RegistryInvalid, jiderr.ClassOf(err))
		})
	}
}

func TestRegisterRejectsBadCandidates(t *testing.T) {
	r, err := prepper.NewRegistry(prepper.Func("a", identity))
	require.NoError(t, err)

	assert.Equal(t, jiderr.RegistryInvalid, jiderr.ClassOf(r.Register(prepper.Func("a", identity))))
	assert.Equal(t, jiderr.RegistryInvalid, jiderr.ClassOf(r.Register(prepper.Func(" ", identity))))
	assert.Equal(t, jiderr.RegistryInvalid, jiderr.ClassOf(r.Register(nil)))
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestEmptyRegistryLookup(t *testing.T) {
	r, err := prepper.NewRegistry()
	require.NoError(t, err)
	_, err = r.Lookup()
	assert.Equal(t, jiderr.RegistryInvalid, jiderr.ClassOf(err))
}
