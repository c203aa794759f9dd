package conformance_test

import (
	"context"
	"testing"
	"time"

	"github.com/lattice-substrate/jid-conformance/corpus"
	"github.com/lattice-substrate/jid-conformance/harness"
	"github.com/lattice-substrate/jid-conformance/prepper"
	"github.com/lattice-substrate/jid-conformance/report"
	"github.com/lattice-substrate/jid-conformance/vector"
)

func evaluateBuiltIns(t *testing.T, names ...string) ([]vector.InvalidJID, []harness.Result) {
	t.Helper()
	vectors, err := corpus.Default()
	if err != nil {
		t.Fatalf("load default corpus: %v", err)
	}
	preppers, err := prepper.Default().Lookup(names...)
	if err != nil {
		t.Fatalf("lookup preppers: %v", err)
	}
	results, err := harness.EvaluateAll(context.Background(), preppers, vectors,
		harness.WithWorkers(4), harness.WithTimeout(10*time.Second))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return vectors, results
}

func TestBuiltInPreppersProduceNoDefects(t *testing.T) {
	_, results := evaluateBuiltIns(t)
	r := report.Summarize(results)
	for _, d := range r.Defects {
		t.Errorf("unexpected defect: %s", report.DefectMessage(d))
	}
	for _, tally := range r.ByPrepper() {
		t.Logf("%-10s passed=%d failed=%d", tally.Prepper, tally.Passed, tally.Failed)
	}
}

// Both candidates split the JID the same way and precis applies every rule
// casefold applies, so anything casefold rejects precis must reject too.
func TestPrecisIsAtLeastAsStrictAsCasefold(t *testing.T) {
	vectors, results := evaluateBuiltIns(t, "casefold", "precis")
	n := len(vectors)
	for i := range vectors {
		casefold, precis := results[i], results[n+i]
		if casefold.Kind() == harness.KindRejected && precis.Kind() != harness.KindRejected {
			t.Errorf("casefold rejected %s but precis resolved it as %s", vectors[i].ID(), precis.Kind())
		}
	}
}

func TestPrecisRejectsEncodingAndStructureVectors(t *testing.T) {
	vectors, results := evaluateBuiltIns(t, "precis")
	checked := 0
	for i, v := range vectors {
		switch v.Category() {
		case "encoding", "structure":
			checked++
			if results[i].Kind() != harness.KindRejected {
				t.Errorf("precis resolved %s (%s) as %s", v.ID(), v.Annotation(), results[i].Kind())
			}
		}
	}
	if checked != 6 {
		t.Fatalf("expected 6 encoding and structure vectors, checked %d", checked)
	}
}

func TestCandidateDisagreements(t *testing.T) {
	vectors, results := evaluateBuiltIns(t, "mellium", "precis")
	n := len(vectors)
	disagreements := 0
	for i, v := range vectors {
		mellium, precis := results[i], results[n+i]
		if mellium.Kind() != precis.Kind() {
			disagreements++
			t.Logf("%s: mellium=%s precis=%s", v.ID(), mellium.Kind(), precis.Kind())
		}
	}
	t.Logf("%d of %d vectors resolved differently", disagreements, n)
}
