// Command jidprep-gate runs the repository's required verification gates in
// order and stops at the first failure.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/pflag"
)

type gateStep struct {
	label string
	args  []string
}

type commandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error
}

type realRunner struct{}

var requiredGateSteps = []gateStep{
	{label: "go vet", args: []string{"vet", "./..."}},
	{label: "unit tests", args: []string{"test", "./...", "-count=1", "-timeout=10m"}},
	{label: "race tests", args: []string{"test", "./...", "-race", "-count=1", "-timeout=15m"}},
	{label: "conformance", args: []string{"test", "./conformance", "-count=1", "-timeout=5m", "-v"}},
}

// fuzzTargets are run only when --fuzztime is set.
var fuzzTargets = []struct {
	pkg  string
	name string
}{
	{pkg: "./corpus", name: "FuzzParseLineQuoted"},
	{pkg: "./corpus", name: "FuzzParseText"},
	{pkg: "./prepper", name: "FuzzPrecisNeverPanics"},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, realRunner{}))
}

func gateSteps(fuzzTime time.Duration) []gateStep {
	steps := append([]gateStep(nil), requiredGateSteps...)
	if fuzzTime <= 0 {
		return steps
	}
	for _, ft := range fuzzTargets {
		steps = append(steps, gateStep{
			label: "fuzz " + ft.name,
			args:  []string{"test", ft.pkg, "-run=^$", "-fuzz=^" + ft.name + "$", "-fuzztime=" + fuzzTime.String()},
		})
	}
	return steps
}

func run(args []string, stdout, stderr io.Writer, runner commandRunner) int {
	fs := pflag.NewFlagSet("jidprep-gate", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	help := fs.BoolP("help", "h", false, "show this help")
	fuzzTime := fs.Duration("fuzztime", 0, "also run each fuzz target for this long")
	if err := fs.Parse(args); err != nil || fs.NArg() > 0 {
		msg := "unexpected argument"
		if err != nil {
			msg = err.Error()
		} else {
			msg = fmt.Sprintf("%s %q", msg, fs.Arg(0))
		}
		if err := writef(stderr, "error: %s\n", msg); err != nil {
			return 1
		}
		if err := writeUsage(stderr, fs); err != nil {
			return 1
		}
		return 2
	}
	if *help {
		if err := writeUsage(stdout, fs); err != nil {
			return 1
		}
		return 0
	}

	ctx := context.Background()
	steps := gateSteps(*fuzzTime)
	for i, step := range steps {
		if err := writef(stdout, "[%d/%d] %s\n", i+1, len(steps), step.label); err != nil {
			return 1
		}
		if err := runner.Run(ctx, "go", step.args, stdout, stderr); err != nil {
			if writeErr := writef(stderr, "gate failed: %s: %v\n", step.label, err); writeErr != nil {
				return 1
			}
			return 1
		}
	}

	if err := writeLine(stdout, "all gates passed"); err != nil {
		return 1
	}
	return 0
}

func (realRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error {
	// #nosec G204 -- command and args are fixed repository gate invocations.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}

func writeUsage(w io.Writer, fs *pflag.FlagSet) error {
	if err := writeLine(w, "usage: go run ./cmd/jidprep-gate [--fuzztime DURATION]"); err != nil {
		return err
	}
	if err := writeLine(w, "runs: vet, tests, race, conformance, and optionally fuzz targets"); err != nil {
		return err
	}
	return writef(w, "%s", fs.FlagUsages())
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
