package prepper

import (
	"mellium.im/xmpp/jid"

	"github.com/lattice-substrate/jid-conformance/jiderr"
)

type melliumPrepper struct{}

// Mellium returns the candidate backed by mellium.im/xmpp/jid. The library
// does not expose typed errors, so every rejection is PROFILE_REJECTED with
// the library error as cause.
func Mellium() Prepper { return melliumPrepper{} }

func (melliumPrepper) Name() string { return "mellium" }

func (melliumPrepper) Prepare(raw string) (string, error) {
	j, err := jid.Parse(raw)
	if err != nil {
		return "", RejectWrap(jiderr.ProfileRejected, PartNone, "mellium rejected the JID", err)
	}
	return j.String(), nil
}
