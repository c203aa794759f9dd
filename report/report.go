// Package report aggregates harness results into counts, diagnostics and a
// JSON evidence bundle.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/lattice-substrate/jid-conformance/harness"
)

// Report is the aggregate of one run. Total always equals Passed+Failed;
// defects are listed but counted in neither.
type Report struct {
	Total    int
	Passed   int
	Failed   int
	Failures []harness.Accepted
	Defects  []*harness.Defect

	results []harness.Result
}

// Tally is the per-prepper breakdown of a report.
type Tally struct {
	Prepper string
	Passed  int
	Failed  int
	Defects int
}

// Summarize aggregates results. Failures and defects keep the input order.
func Summarize(results []harness.Result) *Report {
	r := &Report{
		Failures: []harness.Accepted{},
		Defects:  []*harness.Defect{},
		results:  results,
	}
	for _, res := range results {
		if d, ok := res.Defect(); ok {
			r.Defects = append(r.Defects, d)
			continue
		}
		switch o := res.Outcome.(type) {
		case harness.Rejected:
			r.Passed++
		case harness.Accepted:
			r.Failed++
			r.Failures = append(r.Failures, o)
		}
	}
	r.Total = r.Passed + r.Failed
	return r
}

// OK reports whether every evaluated pair was a pass.
func (r *Report) OK() bool {
	return r.Failed == 0 && len(r.Defects) == 0
}

// ByPrepper returns one tally per prepper in first-seen order.
func (r *Report) ByPrepper() []Tally {
	var out []Tally
	index := make(map[string]int)
	for _, res := range r.results {
		name := res.Case.Prepper.Name()
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Tally{Prepper: name})
		}
		switch res.Kind() {
		case harness.KindRejected:
			out[i].Passed++
		case harness.KindAccepted:
			out[i].Failed++
		case harness.KindDefect:
			out[i].Defects++
		}
	}
	return out
}

// FailureMessage describes an incorrectly accepted input.
func FailureMessage(a harness.Accepted) string {
	c := a.Case()
	return fmt.Sprintf("%s failed to handle the invalid input %s; it produced the following output instead of failing: %s",
		c.Prepper.Name(), c.Vector.String(), strconv.QuoteToASCII(a.Output()))
}

// DefectMessage describes an invocation that could not be classified.
func DefectMessage(d *harness.Defect) string {
	return fmt.Sprintf("%s could not be evaluated on the invalid input %s: %s",
		d.Case.Prepper.Name(), d.Case.Vector.String(), d.Err.Error())
}

func rejectionMessage(r harness.Rejected) string {
	c := r.Case()
	return fmt.Sprintf("%s rejected %s (%s)", c.Prepper.Name(), c.Vector.String(), r.Detail().Error())
}

// WriteText renders r for humans. Without verbose only failures, defects and
// tallies are listed.
func WriteText(w io.Writer, r *Report, verbose bool) error {
	tw := &textWriter{w: w}
	if verbose {
		for _, res := range r.results {
			if d, ok := res.Defect(); ok {
				tw.line("DEFECT", sourced(res.Case, DefectMessage(d)))
				continue
			}
			switch o := res.Outcome.(type) {
			case harness.Rejected:
				tw.line("PASS", sourced(res.Case, rejectionMessage(o)))
			case harness.Accepted:
				tw.line("FAIL", sourced(res.Case, FailureMessage(o)))
			}
		}
	} else {
		for _, a := range r.Failures {
			tw.line("FAIL", sourced(a.Case(), FailureMessage(a)))
		}
		for _, d := range r.Defects {
			tw.line("DEFECT", sourced(d.Case, DefectMessage(d)))
		}
	}
	for _, t := range r.ByPrepper() {
		tw.printf("%-12s passed=%d failed=%d defects=%d\n", t.Prepper, t.Passed, t.Failed, t.Defects)
	}
	_ = WriteSummary(tw, r)
	return tw.err
}

// WriteSummary writes the single summary line.
func WriteSummary(w io.Writer, r *Report) error {
	status := "ok"
	if !r.OK() {
		status = "FAILED"
	}
	_, err := fmt.Fprintf(w, "%s: total=%d passed=%d failed=%d defects=%d\n",
		status, r.Total, r.Passed, r.Failed, len(r.Defects))
	return err
}

func sourced(c harness.Case, msg string) string {
	if src := c.Vector.Source(); src != "" {
		return msg + " [" + src + "]"
	}
	return msg
}

// textWriter keeps the first write error so rendering code stays linear.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	n, err := t.w.Write(p)
	t.err = err
	return n, err
}

func (t *textWriter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t, format, args...)
}

func (t *textWriter) line(tag, msg string) {
	t.printf("%-6s %s\n", tag, msg)
}
