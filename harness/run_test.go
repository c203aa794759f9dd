package harness_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/jid-conformance/harness"
	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/prepper"
	"github.com/lattice-substrate/jid-conformance/vector"
)

type pair struct{ prepper, raw string }

func pairsOf(results []harness.Result) []pair {
	out := make([]pair, 0, len(results))
	for _, r := range results {
		out = append(out, pair{r.Case.Prepper.Name(), r.Case.Vector.Raw()})
	}
	return out
}

func TestEvaluateAllOrderIsPrepperMajor(t *testing.T) {
	n1 := prepper.Func("N1", func(raw string) (string, error) { return raw, nil })
	n2 := prepper.Func("N2", func(raw string) (string, error) { return raw, nil })
	vectors := []vector.InvalidJID{vector.New("V1"), vector.New("V2")}
	want := []pair{{"N1", "V1"}, {"N1", "V2"}, {"N2", "V1"}, {"N2", "V2"}}

	for _, workers := range []int{1, 2, 8} {
		results, err := harness.EvaluateAll(context.Background(), []prepper.Prepper{n1, n2}, vectors, harness.WithWorkers(workers))
		require.NoError(t, err)
		assert.Equalf(t, want, pairsOf(results), "workers=%d", workers)
	}
}

func TestEvaluateAllOrderIndependentOfCompletion(t *testing.T) {
	// Earlier vectors sleep longer, so with many workers they finish last.
	slow := prepper.Func("slow", func(raw string) (string, error) {
		time.Sleep(time.Duration(10-len(raw)) * time.Millisecond)
		return raw, nil
	})
	var vectors []vector.InvalidJID
	var want []pair
	for _, raw := range []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"} {
		vectors = append(vectors, vector.New(raw))
		want = append(want, pair{"slow", raw})
	}
	results, err := harness.EvaluateAll(context.Background(), []prepper.Prepper{slow}, vectors, harness.WithWorkers(len(vectors)))
	require.NoError(t, err)
	assert.Equal(t, want, pairsOf(results))
}

func TestEvaluateAllIsolatesDefects(t *testing.T) {
	n1 := prepper.Func("N1", func(raw string) (string, error) {
		if raw == "V1" {
			panic("internal defect")
		}
		return "", prepper.Reject(jiderr.ProfileRejected, prepper.PartNone, "rejected")
	})
	n2 := prepper.Func("N2", func(raw string) (string, error) { return raw, nil })
	vectors := []vector.InvalidJID{vector.New("V1"), vector.New("V2")}

	results, err := harness.EvaluateAll(context.Background(), []prepper.Prepper{n1, n2}, vectors, harness.WithWorkers(2))
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, harness.KindDefect, results[0].Kind())
	d, ok := results[0].Defect()
	require.True(t, ok)
	assert.Equal(t, "V1", d.Case.Vector.Raw())
	assert.Equal(t, "N1", d.Case.Prepper.Name())

	assert.Equal(t, harness.KindRejected, results[1].Kind())
	assert.Equal(t, harness.KindAccepted, results[2].Kind())
	assert.Equal(t, harness.KindAccepted, results[3].Kind())
}

func TestEvaluateAllTimeoutDoesNotStallRun(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	hangs := prepper.Func("hangs", func(raw string) (string, error) {
		if raw == "stuck" {
			<-block
		}
		return "", prepper.Reject(jiderr.EmptyPart, prepper.PartLocal, "empty")
	})
	vectors := []vector.InvalidJID{vector.New("stuck"), vector.New("fine")}

	results, err := harness.EvaluateAll(context.Background(), []prepper.Prepper{hangs}, vectors, harness.WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	require.Len(t, results, 2)
	d, ok := results[0].Defect()
	require.True(t, ok)
	assert.Equal(t, jiderr.InvocationTimeout, d.Class())
	assert.Equal(t, harness.KindRejected, results[1].Kind())
}

func TestEvaluateAllEmpty(t *testing.T) {
	results, err := harness.EvaluateAll(context.Background(), nil, []vector.InvalidJID{vector.New("a")})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = harness.EvaluateAll(context.Background(), []prepper.Prepper{rejecter}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEvaluateAllRejectsNilPrepper(t *testing.T) {
	_, err := harness.EvaluateAll(context.Background(), []prepper.Prepper{rejecter, nil}, []vector.InvalidJID{vector.New("a")})
	require.Error(t, err)
	assert.Equal(t, jiderr.RegistryInvalid, jiderr.ClassOf(err))
	var d *harness.Defect
	assert.False(t, errors.As(err, &d))
}
