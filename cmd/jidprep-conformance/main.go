// Command jidprep-conformance runs JID preppers against a corpus of invalid
// JIDs and reports every input a prepper accepted instead of rejecting.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/lattice-substrate/jid-conformance/config"
	"github.com/lattice-substrate/jid-conformance/corpus"
	"github.com/lattice-substrate/jid-conformance/harness"
	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/logger"
	"github.com/lattice-substrate/jid-conformance/metrics"
	"github.com/lattice-substrate/jid-conformance/prepper"
	"github.com/lattice-substrate/jid-conformance/report"
	"github.com/lattice-substrate/jid-conformance/vector"
)

const (
	exitSuccess  = 0
	exitFailures = 1
	exitInternal = 10
)

const commandName = "jidprep-conformance"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return runWithRegistry(ctx, args, prepper.Default(), stdout, stderr)
}

type cliFlags struct {
	configFile string
	preppers   []string
	corpus     []string
	workers    int
	timeout    string
	report     string
	metrics    string
	verbose    bool
	quiet      bool
	list       bool
	help       bool
}

func newFlagSet(f *cliFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(commandName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	fs.StringVarP(&f.configFile, "config", "c", "", "JSON run configuration `file`")
	fs.StringSliceVarP(&f.preppers, "prepper", "p", nil, "prepper `name` to run (repeatable; default: all registered)")
	fs.StringArrayVar(&f.corpus, "corpus", nil, "corpus file or directory `path` (repeatable; default: embedded corpus)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel evaluations")
	fs.StringVar(&f.timeout, "timeout", "", "per-invocation `duration`, e.g. 2s (0 disables)")
	fs.StringVar(&f.report, "report", "", "write JSON evidence to `file`")
	fs.StringVar(&f.metrics, "metrics", "", "write a Prometheus textfile to `file`")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "list every outcome")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "print only the summary line")
	fs.BoolVar(&f.list, "list", false, "list registered preppers and exit")
	fs.BoolVarP(&f.help, "help", "h", false, "show this help")
	return fs
}

// overrides returns the config paths set explicitly on the command line.
func (f *cliFlags) overrides(fs *pflag.FlagSet) map[string]any {
	out := make(map[string]any)
	if fs.Changed("prepper") {
		out["preppers"] = f.preppers
	}
	if fs.Changed("corpus") {
		out["corpus"] = f.corpus
	}
	if fs.Changed("workers") {
		out["workers"] = f.workers
	}
	if fs.Changed("timeout") {
		out["timeout"] = f.timeout
	}
	if fs.Changed("report") {
		out["report"] = f.report
	}
	if fs.Changed("metrics") {
		out["metrics"] = f.metrics
	}
	return out
}

func runWithRegistry(ctx context.Context, args []string, reg *prepper.Registry, stdout, stderr io.Writer) int {
	var f cliFlags
	fs := newFlagSet(&f)
	if err := fs.Parse(args); err != nil {
		return writeUsageError(stderr, fs, err.Error())
	}
	if f.help {
		if err := writeHelp(stdout, fs); err != nil {
			return exitInternal
		}
		return exitSuccess
	}
	if fs.NArg() > 0 {
		return writeUsageError(stderr, fs, fmt.Sprintf("unexpected argument %q", fs.Arg(0)))
	}
	if f.verbose && f.quiet {
		return writeUsageError(stderr, fs, "--verbose and --quiet are mutually exclusive")
	}
	if f.list {
		for _, name := range reg.Names() {
			if err := writeLine(stdout, name); err != nil {
				return exitInternal
			}
		}
		return exitSuccess
	}

	cfg, err := config.Load(config.Options{File: f.configFile, Overrides: f.overrides(fs)})
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	log := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: commandName,
		Writer:    stderr,
	})

	preppers, err := reg.Lookup(cfg.Preppers...)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	vectors, err := loadCorpus(cfg.Corpus)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	log.Debug().
		Int("preppers", len(preppers)).
		Int("vectors", len(vectors)).
		Int("workers", cfg.Workers).
		Dur("timeout", cfg.Timeout).
		Msg("starting evaluation")

	m := metrics.New()
	results, err := harness.EvaluateAll(ctx, preppers, vectors,
		harness.WithWorkers(cfg.Workers),
		harness.WithTimeout(cfg.Timeout),
		harness.WithObserver(m),
	)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}

	r := report.Summarize(results)
	for _, d := range r.Defects {
		ev := log.Warn().
			Str("prepper", d.Case.Prepper.Name()).
			Str("vector", d.Case.Vector.ID()).
			Str("class", string(d.Class()))
		if len(d.Stack) > 0 {
			ev = ev.Bytes("stack", d.Stack)
		}
		ev.Msg("invocation defect")
	}

	if err := writeReport(stdout, r, f); err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: writing report: %v\n", err)
	}

	if cfg.Report != "" {
		if err := writeEvidence(cfg.Report, r, preppers, vectors); err != nil {
			return writeClassifiedError(stderr, err)
		}
		log.Info().Str("path", cfg.Report).Msg("wrote evidence")
	}
	if cfg.Metrics != "" {
		if err := m.WriteTextfile(cfg.Metrics); err != nil {
			return writeClassifiedError(stderr, err)
		}
		log.Info().Str("path", cfg.Metrics).Msg("wrote metrics")
	}

	log.Info().
		Int("total", r.Total).
		Int("passed", r.Passed).
		Int("failed", r.Failed).
		Int("defects", len(r.Defects)).
		Msg("evaluation complete")
	if !r.OK() {
		return exitFailures
	}
	return exitSuccess
}

func writeReport(w io.Writer, r *report.Report, f cliFlags) error {
	if f.quiet {
		return report.WriteSummary(w, r)
	}
	return report.WriteText(w, r, f.verbose)
}

func loadCorpus(paths []string) ([]vector.InvalidJID, error) {
	if len(paths) == 0 {
		return corpus.Default()
	}
	return corpus.LoadPaths(paths)
}

func writeEvidence(path string, r *report.Report, preppers []prepper.Prepper, vectors []vector.InvalidJID) error {
	names := make([]string, 0, len(preppers))
	for _, p := range preppers {
		names = append(names, p.Name())
	}
	e, err := report.BuildEvidence(r, report.EvidenceOptions{
		Preppers:     names,
		CorpusSHA256: corpus.Digest(vectors),
		VectorCount:  len(vectors),
	})
	if err != nil {
		return err
	}
	return report.WriteEvidence(path, e)
}

func writeClassifiedError(stderr io.Writer, err error) int {
	return writeErrorAndReturn(stderr, jiderr.ClassOf(err).ExitCode(), "error: %v\n", err)
}

func writeUsageError(stderr io.Writer, fs *pflag.FlagSet, msg string) int {
	if err := writef(stderr, "error: %s\n", msg); err != nil {
		return exitInternal
	}
	if err := writeLine(stderr, "usage: "+commandName+" [flags]"); err != nil {
		return exitInternal
	}
	if err := writef(stderr, "%s", fs.FlagUsages()); err != nil {
		return exitInternal
	}
	return jiderr.CLIUsage.ExitCode()
}

func writeHelp(w io.Writer, fs *pflag.FlagSet) error {
	if err := writeLine(w, "usage: "+commandName+" [flags]"); err != nil {
		return err
	}
	if err := writeLine(w, "  Run JID preppers against invalid inputs; exit 1 if any input is accepted."); err != nil {
		return err
	}
	return writef(w, "%s", fs.FlagUsages())
}

func writeErrorAndReturn(stderr io.Writer, code int, format string, args ...any) int {
	if err := writef(stderr, format, args...); err != nil {
		return exitInternal
	}
	return code
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
