package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/google/uuid"

	"github.com/lattice-substrate/jid-conformance/harness"
	"github.com/lattice-substrate/jid-conformance/jiderr"
)

const EvidenceSchemaVersion = "jidprep-report.v1"

const (
	entryAccepted = "accepted"
	entryDefect   = "defect"
)

// Evidence is the machine-consumed run artifact.
type Evidence struct {
	SchemaVersion  string   `json:"schema_version"`
	RunID          string   `json:"run_id"`
	GeneratedAtUTC string   `json:"generated_at_utc"`
	Preppers       []string `json:"preppers"`
	CorpusSHA256   string   `json:"corpus_sha256"`
	VectorCount    int      `json:"vector_count"`
	Total          int      `json:"total"`
	Passed         int      `json:"passed"`
	Failed         int      `json:"failed"`
	Defects        int      `json:"defects"`
	Entries        []Entry  `json:"entries"`
	ResultsSHA256  string   `json:"results_sha256"`
}

// Entry is one failing or defective pair. Vector and Output are ASCII-quoted
// so that invalid UTF-8 survives JSON encoding.
type Entry struct {
	Prepper  string `json:"prepper"`
	Kind     string `json:"kind"`
	Vector   string `json:"vector"`
	Source   string `json:"source,omitempty"`
	Category string `json:"category,omitempty"`
	Output   string `json:"output,omitempty"`
	Class    string `json:"class,omitempty"`
	Message  string `json:"message"`
}

// EvidenceOptions carries run metadata that is not part of the results.
type EvidenceOptions struct {
	RunID        string
	Now          func() time.Time
	Preppers     []string
	CorpusSHA256 string
	VectorCount  int
}

// BuildEvidence converts r into an evidence bundle. RunID defaults to a random
// UUID and Now to time.Now.
func BuildEvidence(r *Report, opts EvidenceOptions) (*Evidence, error) {
	if r == nil {
		return nil, jiderr.New(jiderr.InternalError, "report is nil")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	entries := make([]Entry, 0, r.Failed+len(r.Defects))
	for _, res := range r.results {
		if d, ok := res.Defect(); ok {
			entries = append(entries, defectEntry(d))
			continue
		}
		if a, ok := res.Outcome.(harness.Accepted); ok {
			entries = append(entries, acceptedEntry(a))
		}
	}
	digest, err := entriesDigest(entries)
	if err != nil {
		return nil, err
	}

	return &Evidence{
		SchemaVersion:  EvidenceSchemaVersion,
		RunID:          runID,
		GeneratedAtUTC: now().UTC().Format(time.RFC3339),
		Preppers:       append([]string{}, opts.Preppers...),
		CorpusSHA256:   opts.CorpusSHA256,
		VectorCount:    opts.VectorCount,
		Total:          r.Total,
		Passed:         r.Passed,
		Failed:         r.Failed,
		Defects:        len(r.Defects),
		Entries:        entries,
		ResultsSHA256:  digest,
	}, nil
}

func acceptedEntry(a harness.Accepted) Entry {
	c := a.Case()
	return Entry{
		Prepper:  c.Prepper.Name(),
		Kind:     entryAccepted,
		Vector:   c.Vector.String(),
		Source:   c.Vector.Source(),
		Category: c.Vector.Category(),
		Output:   strconv.QuoteToASCII(a.Output()),
		Message:  FailureMessage(a),
	}
}

func defectEntry(d *harness.Defect) Entry {
	return Entry{
		Prepper:  d.Case.Prepper.Name(),
		Kind:     entryDefect,
		Vector:   d.Case.Vector.String(),
		Source:   d.Case.Vector.Source(),
		Category: d.Case.Vector.Category(),
		Class:    string(d.Class()),
		Message:  DefectMessage(d),
	}
}

// entriesDigest hashes the RFC 8785 canonical form of entries, so the digest
// does not depend on field order or whitespace.
func entriesDigest(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", jiderr.Wrap(jiderr.InternalError, "marshal evidence entries", err)
	}
	canon, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", jiderr.Wrap(jiderr.InternalError, "canonicalize evidence entries", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// WriteEvidence writes e as indented JSON to path.
func WriteEvidence(path string, e *Evidence) error {
	if e == nil {
		return jiderr.New(jiderr.InternalError, "evidence is nil")
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return jiderr.Wrap(jiderr.InternalError, "marshal evidence", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return jiderr.Wrap(jiderr.InternalIO, "write evidence file", err)
	}
	return nil
}

// LoadEvidence reads an evidence file, rejecting unknown fields and trailing
// documents.
func LoadEvidence(path string) (*Evidence, error) {
	//nolint:gosec // evidence path is explicit operator input.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, jiderr.Wrap(jiderr.InternalIO, "read evidence", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var e Evidence
	if err := dec.Decode(&e); err != nil {
		return nil, jiderr.Wrap(jiderr.InternalError, "decode evidence", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, jiderr.New(jiderr.InternalError, "decode evidence: trailing JSON values")
	}
	return &e, nil
}

// ValidateEvidence checks the bundle's internal consistency, including the
// results digest.
func ValidateEvidence(e *Evidence) error {
	if e == nil {
		return jiderr.New(jiderr.InternalError, "evidence is nil")
	}
	if e.SchemaVersion != EvidenceSchemaVersion {
		return jiderr.Newf(jiderr.InternalError, "unsupported schema_version %q", e.SchemaVersion)
	}
	if _, err := uuid.Parse(e.RunID); err != nil {
		return jiderr.Wrap(jiderr.InternalError, "invalid run_id", err)
	}
	if _, err := time.Parse(time.RFC3339, e.GeneratedAtUTC); err != nil {
		return jiderr.Wrap(jiderr.InternalError, "invalid generated_at_utc", err)
	}
	if len(e.Preppers) == 0 {
		return jiderr.New(jiderr.InternalError, "evidence must list preppers")
	}
	if e.CorpusSHA256 != "" && !isHexDigest(e.CorpusSHA256) {
		return jiderr.New(jiderr.InternalError, "corpus_sha256 is not a SHA-256 hex digest")
	}
	if e.Total != e.Passed+e.Failed {
		return jiderr.Newf(jiderr.InternalError, "total %d != passed %d + failed %d", e.Total, e.Passed, e.Failed)
	}
	if e.Total+e.Defects != len(e.Preppers)*e.VectorCount {
		return jiderr.Newf(jiderr.InternalError, "evaluated %d pairs, want %d preppers x %d vectors",
			e.Total+e.Defects, len(e.Preppers), e.VectorCount)
	}

	var accepted, defects int
	for i, en := range e.Entries {
		switch en.Kind {
		case entryAccepted:
			accepted++
		case entryDefect:
			defects++
		default:
			return jiderr.Newf(jiderr.InternalError, "entry %d has unknown kind %q", i, en.Kind)
		}
		if strings.TrimSpace(en.Prepper) == "" || en.Vector == "" {
			return jiderr.Newf(jiderr.InternalError, "entry %d is missing prepper or vector", i)
		}
	}
	if accepted != e.Failed {
		return jiderr.Newf(jiderr.InternalError, "failed count mismatch: entries=%d failed=%d", accepted, e.Failed)
	}
	if defects != e.Defects {
		return jiderr.Newf(jiderr.InternalError, "defect count mismatch: entries=%d defects=%d", defects, e.Defects)
	}

	digest, err := entriesDigest(e.Entries)
	if err != nil {
		return err
	}
	if digest != e.ResultsSHA256 {
		return jiderr.New(jiderr.InternalError, "results_sha256 mismatch")
	}
	return nil
}

func isHexDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
