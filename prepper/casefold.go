package prepper

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/lattice-substrate/jid-conformance/jiderr"
)

// folders are stateful, so each call takes its own from the pool.
var folderPool = sync.Pool{
	New: func() any {
		c := cases.Fold()
		return &c
	},
}

type casefoldPrepper struct{}

// Casefold returns a deliberately lenient candidate: it folds the case of the
// localpart and domainpart and applies none of the PRECIS or IDNA rules. Most
// invalid JIDs pass through it, which makes it a useful negative control.
func Casefold() Prepper { return casefoldPrepper{} }

func (casefoldPrepper) Name() string { return "casefold" }

func (casefoldPrepper) Prepare(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", Reject(jiderr.InvalidUTF8, PartNone, "input is not valid UTF-8")
	}
	p := splitJID(raw)
	if p.domain == "" {
		return "", Reject(jiderr.EmptyPart, PartDomain, "domainpart is empty")
	}
	if p.hasLocal && strings.ContainsAny(p.local, localExclusions) {
		return "", Reject(jiderr.ProhibitedCodepoint, PartLocal, "localpart contains an excluded character")
	}

	c := folderPool.Get().(*cases.Caser)
	defer folderPool.Put(c)
	p.local = c.String(p.local)
	p.domain = c.String(p.domain)
	return p.join(), nil
}
