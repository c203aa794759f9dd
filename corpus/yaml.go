package corpus

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/vector"
)

type yamlDocument struct {
	Category string      `yaml:"category"`
	Vectors  []yamlEntry `yaml:"vectors" validate:"required,min=1,dive"`
}

// yamlEntry uses a pointer so an explicit empty JID is a valid vector while a
// missing one is not.
type yamlEntry struct {
	JID        *string `yaml:"jid" validate:"required"`
	Annotation string  `yaml:"annotation"`
	Category   string  `yaml:"category"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func parseYAML(name string, data []byte) ([]vector.InvalidJID, error) {
	var doc yamlDocument
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, jiderr.Wrap(jiderr.CorpusInvalid, "decode "+name, err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, jiderr.Wrap(jiderr.CorpusInvalid, "validate "+name, err)
	}

	fileCategory := doc.Category
	if fileCategory == "" {
		fileCategory = stem(name)
	}
	out := make([]vector.InvalidJID, 0, len(doc.Vectors))
	for i, e := range doc.Vectors {
		category := e.Category
		if category == "" {
			category = fileCategory
		}
		out = append(out, vector.New(*e.JID,
			vector.WithAnnotation(e.Annotation),
			vector.WithCategory(category),
			vector.WithSource(fmt.Sprintf("%s#%d", name, i)),
		))
	}
	return out, nil
}
