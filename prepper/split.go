package prepper

import "strings"

// maxPartBytes is the RFC 7622 limit for each prepared JID part.
const maxPartBytes = 1023

// localExclusions are the characters RFC 7622 §3.3.1 forbids in a localpart
// even though the PRECIS IdentifierClass allows them.
const localExclusions = `"&'/:<>@`

type jidParts struct {
	local       string
	domain      string
	resource    string
	hasLocal    bool
	hasResource bool
}

// splitJID separates raw per RFC 7622 §3.2: the resourcepart starts at the
// first '/', and the localpart ends at the first '@' before it.
func splitJID(raw string) jidParts {
	var p jidParts
	rest := raw
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		p.resource = rest[i+1:]
		p.hasResource = true
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '@'); i >= 0 {
		p.local = rest[:i]
		p.hasLocal = true
		rest = rest[i+1:]
	}
	p.domain = rest
	return p
}

func (p jidParts) join() string {
	var b strings.Builder
	b.Grow(len(p.local) + len(p.domain) + len(p.resource) + 2)
	if p.hasLocal {
		b.WriteString(p.local)
		b.WriteByte('@')
	}
	b.WriteString(p.domain)
	if p.hasResource {
		b.WriteByte('/')
		b.WriteString(p.resource)
	}
	return b.String()
}
