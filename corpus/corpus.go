// Package corpus loads invalid-JID vectors from text and YAML files.
//
// Text files (.txt) hold one vector per line. Blank lines and lines starting
// with '#' are skipped. A line starting with '"' is a Go-quoted string, which
// is how control characters, surrounding whitespace, and invalid UTF-8 are
// written. A tab followed by '#' starts the annotation. The category of every
// vector in a text file is the file stem.
//
// YAML files (.yaml, .yml) hold a document of the form
//
//	category: bidi
//	vectors:
//	  - jid: "אa@example.com"
//	    annotation: LTR character in an RTL localpart
//
// Any malformed entry, duplicate input, or empty result fails the whole load
// with CORPUS_INVALID before evaluation starts.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/vector"
)

// DefaultMaxFileSize bounds a single corpus file.
const DefaultMaxFileSize = 4 << 20

// collector accumulates vectors across files and rejects duplicates.
type collector struct {
	vectors []vector.InvalidJID
	seen    map[string]string
}

func newCollector() *collector {
	return &collector{seen: make(map[string]string)}
}

func (c *collector) add(v vector.InvalidJID) error {
	if first, dup := c.seen[v.Raw()]; dup {
		return jiderr.Newf(jiderr.CorpusInvalid, "%s: duplicate vector %s (first seen at %s)", v.Source(), v, first)
	}
	c.seen[v.Raw()] = v.Source()
	c.vectors = append(c.vectors, v)
	return nil
}

func (c *collector) result() ([]vector.InvalidJID, error) {
	if len(c.vectors) == 0 {
		return nil, jiderr.New(jiderr.CorpusInvalid, "corpus is empty")
	}
	return c.vectors, nil
}

// addFile parses data according to the extension of name.
func (c *collector) addFile(name string, data []byte) error {
	if len(data) > DefaultMaxFileSize {
		return jiderr.Newf(jiderr.CorpusInvalid, "%s: file exceeds %d bytes", name, DefaultMaxFileSize)
	}
	var (
		vs  []vector.InvalidJID
		err error
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".txt":
		vs, err = parseText(name, data)
	case ".yaml", ".yml":
		vs, err = parseYAML(name, data)
	default:
		return jiderr.Newf(jiderr.CorpusInvalid, "%s: unsupported corpus file extension", name)
	}
	if err != nil {
		return err
	}
	for _, v := range vs {
		if err := c.add(v); err != nil {
			return err
		}
	}
	return nil
}

// addFS adds every file under root. prefix, when set, is joined to each file
// name so sources stay distinct across directories.
func (c *collector) addFS(fsys fs.FS, root, prefix string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return jiderr.Wrap(jiderr.CorpusInvalid, "walk corpus", err)
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return jiderr.Wrap(jiderr.CorpusInvalid, "read "+p, err)
		}
		return c.addFile(path.Join(prefix, p), data)
	})
}

// LoadFS loads every corpus file under root in lexical order.
func LoadFS(fsys fs.FS, root string) ([]vector.InvalidJID, error) {
	c := newCollector()
	if err := c.addFS(fsys, root, ""); err != nil {
		return nil, err
	}
	return c.result()
}

// LoadFile loads a single corpus file.
//
//nolint:gosec // corpus path is explicit operator input.
func LoadFile(p string) ([]vector.InvalidJID, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, jiderr.Wrap(jiderr.CorpusInvalid, "read corpus file", err)
	}
	c := newCollector()
	if err := c.addFile(filepath.Base(p), data); err != nil {
		return nil, err
	}
	return c.result()
}

// LoadDir loads every corpus file below dir.
func LoadDir(dir string) ([]vector.InvalidJID, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadPaths loads files and directories in the given order into one corpus.
// Duplicates are detected across all paths.
func LoadPaths(paths []string) ([]vector.InvalidJID, error) {
	if len(paths) == 0 {
		return nil, jiderr.New(jiderr.CorpusInvalid, "no corpus paths given")
	}
	c := newCollector()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, jiderr.Wrap(jiderr.CorpusInvalid, "stat corpus path", err)
		}
		if info.IsDir() {
			if err := c.addFS(os.DirFS(p), ".", filepath.ToSlash(p)); err != nil {
				return nil, err
			}
			continue
		}
		//nolint:gosec // corpus path is explicit operator input.
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, jiderr.Wrap(jiderr.CorpusInvalid, "read corpus file", err)
		}
		if err := c.addFile(filepath.Base(p), data); err != nil {
			return nil, err
		}
	}
	return c.result()
}

// Digest returns the hex SHA-256 of the ordered raw inputs. Two corpora with
// the same digest evaluate the same inputs in the same order.
func Digest(vectors []vector.InvalidJID) string {
	h := sha256.New()
	for _, v := range vectors {
		_, _ = h.Write([]byte(strconv.Quote(v.Raw())))
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func stem(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

