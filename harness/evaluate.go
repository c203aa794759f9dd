package harness

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/prepper"
	"github.com/lattice-substrate/jid-conformance/vector"
)

// Observer receives one call per invocation. It must not block for long and
// must be safe for concurrent use when workers > 1.
type Observer interface {
	ObserveInvocation(prepper string, kind Kind, elapsed time.Duration)
}

type options struct {
	timeout  time.Duration
	workers  int
	observer Observer
}

// Option configures Evaluate and EvaluateAll.
type Option func(*options)

// WithTimeout abandons an invocation after d and records an
// INVOCATION_TIMEOUT defect. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithWorkers bounds the number of concurrent evaluations in EvaluateAll.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithObserver reports every invocation to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func newOptions(opts []Option) options {
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}

// Evaluate invokes p once on v and classifies the result. The returned error
// is nil or a *Defect; a nil prepper is a registry error and is reported
// before anything is invoked.
func Evaluate(ctx context.Context, p prepper.Prepper, v vector.InvalidJID, opts ...Option) (Outcome, error) {
	if p == nil {
		return nil, jiderr.New(jiderr.RegistryInvalid, "prepper is nil")
	}
	r := evaluate(ctx, Case{Prepper: p, Vector: v}, newOptions(opts))
	return r.Outcome, r.Err
}

// EvaluateAll evaluates every pair in prepper-major order:
// (P1,V1), (P1,V2), ..., (P2,V1), ... The order of the returned results is
// fixed regardless of WithWorkers. A defect in one pair does not stop the
// others.
func EvaluateAll(ctx context.Context, preppers []prepper.Prepper, vectors []vector.InvalidJID, opts ...Option) ([]Result, error) {
	for i, p := range preppers {
		if p == nil {
			return nil, jiderr.Newf(jiderr.RegistryInvalid, "prepper[%d] is nil", i)
		}
	}
	o := newOptions(opts)
	results := make([]Result, len(preppers)*len(vectors))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for pi, p := range preppers {
		for vi, v := range vectors {
			idx := pi*len(vectors) + vi
			c := Case{Prepper: p, Vector: v}
			g.Go(func() error {
				results[idx] = evaluate(ctx, c, o)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, jiderr.Wrap(jiderr.InternalError, "evaluation worker failed", err)
	}
	return results, nil
}

type invocation struct {
	output   string
	err      error
	panicked bool
	panicVal any
	stack    []byte
}

func evaluate(ctx context.Context, c Case, o options) Result {
	start := time.Now()
	inv, ctxErr := invoke(ctx, c, o.timeout)
	r := classify(c, inv, ctxErr)
	if o.observer != nil {
		o.observer.ObserveInvocation(c.Prepper.Name(), r.Kind(), time.Since(start))
	}
	return r
}

func classify(c Case, inv invocation, ctxErr error) Result {
	switch {
	case ctxErr != nil:
		msg := "invocation exceeded its timeout"
		if errors.Is(ctxErr, context.Canceled) {
			msg = "run was cancelled before the invocation completed"
		}
		return Result{Case: c, Err: &Defect{
			Case: c,
			Err:  jiderr.Wrap(jiderr.InvocationTimeout, msg, ctxErr),
		}}
	case inv.panicked:
		return Result{Case: c, Err: &Defect{
			Case:  c,
			Err:   jiderr.New(jiderr.InvocationDefect, fmt.Sprintf("panic: %v", inv.panicVal)),
			Panic: inv.panicVal,
			Stack: inv.stack,
		}}
	case inv.err != nil:
		ve, ok := prepper.AsValidation(inv.err)
		if ok && ve.Class.IsViolation() {
			return Result{Case: c, Outcome: Rejected{c: c, detail: ve}}
		}
		if ok {
			return Result{Case: c, Err: &Defect{
				Case: c,
				Err:  jiderr.Wrap(jiderr.InvocationDefect, fmt.Sprintf("validation error has non-violation class %q", ve.Class), inv.err),
			}}
		}
		return Result{Case: c, Err: &Defect{
			Case: c,
			Err:  jiderr.Wrap(jiderr.InvocationDefect, "error is not a validation failure", inv.err),
		}}
	default:
		return Result{Case: c, Outcome: Accepted{c: c, output: inv.output}}
	}
}

// invoke runs the prepper, on its own goroutine when the invocation can be
// abandoned. An abandoned goroutine is left to finish on its own.
func invoke(ctx context.Context, c Case, timeout time.Duration) (invocation, error) {
	if err := ctx.Err(); err != nil {
		return invocation{}, err
	}
	if timeout <= 0 && ctx.Done() == nil {
		return call(c.Prepper, c.Vector.Raw()), nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan invocation, 1)
	go func() {
		done <- call(c.Prepper, c.Vector.Raw())
	}()
	select {
	case inv := <-done:
		return inv, nil
	case <-ctx.Done():
		return invocation{}, ctx.Err()
	}
}

func call(p prepper.Prepper, raw string) (inv invocation) {
	defer func() {
		if r := recover(); r != nil {
			inv = invocation{panicked: true, panicVal: r, stack: debug.Stack()}
		}
	}()
	inv.output, inv.err = p.Prepare(raw)
	return inv
}
