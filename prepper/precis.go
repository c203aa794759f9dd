package prepper

import (
	"errors"
	"net/netip"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/secure/bidirule"
	"golang.org/x/text/secure/precis"

	"github.com/lattice-substrate/jid-conformance/jiderr"
)

var domainProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.VerifyDNSLength(true),
)

type precisPrepper struct{}

// Precis returns the RFC 7622 candidate built on the x/text PRECIS profiles
// and x/net IDNA.
func Precis() Prepper { return precisPrepper{} }

func (precisPrepper) Name() string { return "precis" }

func (precisPrepper) Prepare(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", Reject(jiderr.InvalidUTF8, PartNone, "input is not valid UTF-8")
	}
	p := splitJID(raw)

	var err error
	if p.hasLocal {
		if p.local, err = prepareLocal(p.local); err != nil {
			return "", err
		}
	}
	if p.domain, err = prepareDomain(p.domain); err != nil {
		return "", err
	}
	if p.hasResource {
		if p.resource, err = prepareResource(p.resource); err != nil {
			return "", err
		}
	}
	return p.join(), nil
}

func prepareLocal(s string) (string, error) {
	if s == "" {
		return "", Reject(jiderr.EmptyPart, PartLocal, "localpart is empty")
	}
	out, err := precis.UsernameCaseMapped.String(s)
	if err != nil {
		return "", precisRejection(PartLocal, err)
	}
	if i := strings.IndexAny(out, localExclusions); i >= 0 {
		return "", Reject(jiderr.ProhibitedCodepoint, PartLocal, "localpart contains excluded character "+string(out[i]))
	}
	if len(out) > maxPartBytes {
		return "", Reject(jiderr.PartTooLong, PartLocal, "localpart exceeds 1023 bytes")
	}
	return out, nil
}

func prepareDomain(s string) (string, error) {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "", Reject(jiderr.EmptyPart, PartDomain, "domainpart is empty")
	}
	if strings.HasPrefix(s, "[") {
		return prepareIPLiteral(s)
	}
	// ToASCII enforces label lengths, which ToUnicode does not.
	if _, err := domainProfile.ToASCII(s); err != nil {
		return "", RejectWrap(jiderr.MalformedDomain, PartDomain, "domainpart is not a valid IDN", err)
	}
	out, err := domainProfile.ToUnicode(s)
	if err != nil {
		return "", RejectWrap(jiderr.MalformedDomain, PartDomain, "domainpart is not a valid IDN", err)
	}
	if len(out) > maxPartBytes {
		return "", Reject(jiderr.PartTooLong, PartDomain, "domainpart exceeds 1023 bytes")
	}
	return out, nil
}

func prepareIPLiteral(s string) (string, error) {
	if !strings.HasSuffix(s, "]") {
		return "", Reject(jiderr.MalformedDomain, PartDomain, "unterminated IP literal")
	}
	addr, err := netip.ParseAddr(s[1 : len(s)-1])
	if err != nil {
		return "", RejectWrap(jiderr.MalformedDomain, PartDomain, "invalid IP literal", err)
	}
	if !addr.Is6() || addr.Zone() != "" {
		return "", Reject(jiderr.MalformedDomain, PartDomain, "IP literal must be an IPv6 address without zone")
	}
	return "[" + addr.String() + "]", nil
}

func prepareResource(s string) (string, error) {
	if s == "" {
		return "", Reject(jiderr.EmptyPart, PartResource, "resourcepart is empty")
	}
	out, err := precis.OpaqueString.String(s)
	if err != nil {
		return "", precisRejection(PartResource, err)
	}
	if len(out) > maxPartBytes {
		return "", Reject(jiderr.PartTooLong, PartResource, "resourcepart exceeds 1023 bytes")
	}
	return out, nil
}

func precisRejection(part Part, err error) *ValidationError {
	if errors.Is(err, bidirule.ErrInvalid) {
		return RejectWrap(jiderr.BidiRule, part, "bidi rule violated", err)
	}
	return RejectWrap(jiderr.ProhibitedCodepoint, part, "PRECIS enforcement failed", err)
}
