package corpus

import (
	"embed"

	"github.com/lattice-substrate/jid-conformance/vector"
)

//go:embed invalid
var defaultFS embed.FS

// Default loads the embedded invalid-JID corpus.
func Default() ([]vector.InvalidJID, error) {
	return LoadFS(defaultFS, "invalid")
}
