package corpus

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/vector"
)

const annotationSep = "\t#"

func parseText(name string, data []byte) ([]vector.InvalidJID, error) {
	category := stem(name)
	var out []vector.InvalidJID

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), DefaultMaxFileSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		src := fmt.Sprintf("%s:%d", name, lineNo)
		raw, annotation, err := parseLine(line)
		if err != nil {
			return nil, jiderr.Wrap(jiderr.CorpusInvalid, src, err)
		}
		out = append(out, vector.New(raw,
			vector.WithAnnotation(annotation),
			vector.WithCategory(category),
			vector.WithSource(src),
		))
	}
	if err := sc.Err(); err != nil {
		return nil, jiderr.Wrap(jiderr.CorpusInvalid, "scan "+name, err)
	}
	return out, nil
}

// parseLine splits a corpus line into the raw input and its annotation.
func parseLine(line string) (raw, annotation string, err error) {
	if !strings.HasPrefix(line, `"`) {
		raw = line
		if i := strings.Index(line, annotationSep); i >= 0 {
			raw = line[:i]
			annotation = strings.TrimSpace(line[i+len(annotationSep):])
		}
		return raw, annotation, nil
	}

	quoted, err := strconv.QuotedPrefix(line)
	if err != nil {
		return "", "", fmt.Errorf("malformed quoted vector: %w", err)
	}
	raw, err = strconv.Unquote(quoted)
	if err != nil {
		return "", "", fmt.Errorf("malformed quoted vector: %w", err)
	}
	rest := line[len(quoted):]
	switch {
	case rest == "":
	case strings.HasPrefix(rest, annotationSep):
		annotation = strings.TrimSpace(rest[len(annotationSep):])
	default:
		return "", "", fmt.Errorf("unexpected text after quoted vector: %q", rest)
	}
	return raw, annotation, nil
}
