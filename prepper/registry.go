package prepper

import (
	"strings"

	"github.com/lattice-substrate/jid-conformance/jiderr"
)

// Registry holds candidates in registration order.
type Registry struct {
	preppers []Prepper
	byName   map[string]Prepper
}

// NewRegistry registers ps in order.
func NewRegistry(ps ...Prepper) (*Registry, error) {
	r := &Registry{byName: make(map[string]Prepper, len(ps))}
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default returns a registry with the built-in candidates.
func Default() *Registry {
	r, err := NewRegistry(Mellium(), Precis(), Casefold())
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds p. Names must be non-empty and unique.
func (r *Registry) Register(p Prepper) error {
	if p == nil {
		return jiderr.New(jiderr.RegistryInvalid, "prepper is nil")
	}
	name := p.Name()
	if strings.TrimSpace(name) == "" {
		return jiderr.New(jiderr.RegistryInvalid, "prepper name is required")
	}
	if _, ok := r.byName[name]; ok {
		return jiderr.Newf(jiderr.RegistryInvalid, "duplicate prepper %q", name)
	}
	if r.byName == nil {
		r.byName = make(map[string]Prepper)
	}
	r.byName[name] = p
	r.preppers = append(r.preppers, p)
	return nil
}

// Lookup returns the named candidates in the requested order. With no names
// it returns every registered candidate. Unknown or repeated names fail.
func (r *Registry) Lookup(names ...string) ([]Prepper, error) {
	if len(names) == 0 {
		if len(r.preppers) == 0 {
			return nil, jiderr.New(jiderr.RegistryInvalid, "no preppers registered")
		}
		return r.All(), nil
	}
	out := make([]Prepper, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		p, ok := r.byName[name]
		if !ok {
			return nil, jiderr.Newf(jiderr.RegistryInvalid, "unknown prepper %q (registered: %s)", name, strings.Join(r.Names(), ", "))
		}
		if _, dup := seen[name]; dup {
			return nil, jiderr.Newf(jiderr.RegistryInvalid, "prepper %q selected more than once", name)
		}
		seen[name] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// All returns every registered candidate in registration order.
func (r *Registry) All() []Prepper {
	return append([]Prepper(nil), r.preppers...)
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.preppers))
	for _, p := range r.preppers {
		names = append(names, p.Name())
	}
	return names
}
