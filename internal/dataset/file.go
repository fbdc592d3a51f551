package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML dataset file. Descriptors missing from the file keep
// their built-in defaults; a descriptor present in the file replaces the
// default wholesale. The result is validated.
func Load(path string) (Pair, error) {
	pair := Defaults()
	if path == "" {
		return pair, pair.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Pair{}, fmt.Errorf("reading dataset file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML dataset bytes over the built-in defaults.
func Parse(data []byte) (Pair, error) {
	var file struct {
		Condition *Descriptor `yaml:"condition"`
		Treatment *Descriptor `yaml:"treatment"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Pair{}, fmt.Errorf("parsing dataset file: %w", err)
	}

	pair := Defaults()
	if file.Condition != nil {
		pair.Condition = *file.Condition
		pair.Condition.Kind = Continuous
	}
	if file.Treatment != nil {
		pair.Treatment = *file.Treatment
		pair.Treatment.Kind = Discrete
	}
	for _, d := range []*Descriptor{&pair.Condition, &pair.Treatment} {
		if d.IDField == "" {
			d.IDField = "OBJECTID"
		}
	}
	if err := pair.Validate(); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

// WithURLs returns a copy of p with non-empty URLs overriding the
// descriptor sources.
func (p Pair) WithURLs(condition, treatment string) Pair {
	if condition != "" {
		p.Condition.URL = condition
	}
	if treatment != "" {
		p.Treatment.URL = treatment
	}
	return p
}
