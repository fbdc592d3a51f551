// Package dataset describes the two selectable road-segment datasets.
package dataset

import (
	"errors"
	"fmt"
)

// ErrInvalidRenderer is returned when a descriptor carries neither class
// breaks nor discrete values, or carries both.
var ErrInvalidRenderer = errors.New("invalid renderer configuration")

// ErrUnknownDataset is returned for a Kind other than condition or
// treatment.
var ErrUnknownDataset = errors.New("unknown dataset")

// Kind identifies one of the two datasets.
type Kind string

const (
	Continuous Kind = "condition"
	Discrete   Kind = "treatment"
)

// Other returns the dataset that is not k.
func (k Kind) Other() Kind {
	if k == Continuous {
		return Discrete
	}
	return Continuous
}

// Valid reports whether k names one of the two datasets.
func (k Kind) Valid() bool {
	return k == Continuous || k == Discrete
}

// Style is a line symbol.
type Style struct {
	Type  string  `json:"type" yaml:"type" default:"simple-line" doc:"Symbol type" example:"simple-line"`
	Color string  `json:"color" yaml:"color" doc:"Line color (CSS)" example:"red"`
	Width float64 `json:"width" yaml:"width" minimum:"0" doc:"Line width in pixels" example:"2"`
}

// Break maps a closed numeric interval to a style.
type Break struct {
	Label string  `json:"label" yaml:"label" doc:"Legend label" example:"1-2 (Poor)"`
	Min   float64 `json:"min" yaml:"min" doc:"Inclusive lower bound" example:"1"`
	Max   float64 `json:"max" yaml:"max" doc:"Inclusive upper bound" example:"2.99"`
	Style Style   `json:"style" yaml:"style"`
}

// Overlaps reports whether the break shares any point with [lo, hi].
func (b Break) Overlaps(lo, hi float64) bool {
	return b.Max >= lo && b.Min <= hi
}

// Contains reports whether v falls inside the break.
func (b Break) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Value maps one categorical code to a style.
type Value struct {
	Value string `json:"value" yaml:"value" doc:"Category code" example:"CS"`
	Label string `json:"label" yaml:"label" doc:"Legend label" example:"Crack Seal"`
	Style Style  `json:"style" yaml:"style"`
}

// Descriptor is the static description of one dataset. Descriptors are
// read-only once validated and shared by every session.
type Descriptor struct {
	Kind        Kind     `json:"kind" yaml:"kind" enum:"condition,treatment" doc:"Dataset identifier"`
	Title       string   `json:"title" yaml:"title" doc:"Display title" example:"Pavement Condition (PASER)"`
	URL         string   `json:"url" yaml:"url" doc:"Feature source URL (http(s) FeatureServer layer or duckdb://table)"`
	IDField     string   `json:"idField" yaml:"idField" default:"OBJECTID" doc:"Unique feature identifier field"`
	StyledField string   `json:"styledField" yaml:"styledField" doc:"Attribute driving symbology" example:"CURRENT_PASER"`
	TableFields []string `json:"tableFields" yaml:"tableFields" doc:"Attribute table columns, in order"`
	Breaks      []Break  `json:"breaks,omitempty" yaml:"breaks,omitempty" doc:"Class breaks (continuous datasets only)"`
	Values      []Value  `json:"values,omitempty" yaml:"values,omitempty" doc:"Unique values (discrete datasets only)"`
	Fallback    Style    `json:"fallback" yaml:"fallback" doc:"Style for features matching no rule"`
}

// IsContinuous reports whether the descriptor styles a numeric field.
func (d Descriptor) IsContinuous() bool {
	return len(d.Breaks) > 0
}

// Validate checks the descriptor invariants. Exactly one of Breaks and
// Values must be populated.
func (d Descriptor) Validate() error {
	if !d.Kind.Valid() {
		return fmt.Errorf("dataset %q: %w", d.Kind, ErrUnknownDataset)
	}
	if d.URL == "" {
		return fmt.Errorf("dataset %q: url is required", d.Kind)
	}
	if d.StyledField == "" {
		return fmt.Errorf("dataset %q: styledField is required", d.Kind)
	}
	switch {
	case len(d.Breaks) == 0 && len(d.Values) == 0:
		return fmt.Errorf("dataset %q: no breaks or values: %w", d.Kind, ErrInvalidRenderer)
	case len(d.Breaks) > 0 && len(d.Values) > 0:
		return fmt.Errorf("dataset %q: both breaks and values: %w", d.Kind, ErrInvalidRenderer)
	}
	for i, b := range d.Breaks {
		if b.Min > b.Max {
			return fmt.Errorf("dataset %q: break %q has min above max: %w", d.Kind, b.Label, ErrInvalidRenderer)
		}
		if i > 0 && b.Min <= d.Breaks[i-1].Max {
			return fmt.Errorf("dataset %q: break %q overlaps %q: %w",
				d.Kind, b.Label, d.Breaks[i-1].Label, ErrInvalidRenderer)
		}
	}
	seen := make(map[string]bool, len(d.Values))
	for _, v := range d.Values {
		if seen[v.Value] {
			return fmt.Errorf("dataset %q: duplicate value %q: %w", d.Kind, v.Value, ErrInvalidRenderer)
		}
		seen[v.Value] = true
	}
	return nil
}

// Columns returns the fields a row query must request: the id field
// followed by the table fields.
func (d Descriptor) Columns() []string {
	cols := make([]string, 0, len(d.TableFields)+1)
	cols = append(cols, d.IDField)
	for _, f := range d.TableFields {
		if f != d.IDField {
			cols = append(cols, f)
		}
	}
	return cols
}

// Pair holds the continuous and discrete descriptors.
type Pair struct {
	Condition Descriptor `json:"condition" yaml:"condition"`
	Treatment Descriptor `json:"treatment" yaml:"treatment"`
}

// Get returns the descriptor for k.
func (p Pair) Get(k Kind) Descriptor {
	if k == Discrete {
		return p.Treatment
	}
	return p.Condition
}

// Validate validates both descriptors and checks that the condition
// dataset is continuous and the treatment dataset is discrete.
func (p Pair) Validate() error {
	if err := p.Condition.Validate(); err != nil {
		return err
	}
	if err := p.Treatment.Validate(); err != nil {
		return err
	}
	if !p.Condition.IsContinuous() {
		return fmt.Errorf("dataset %q must define breaks: %w", Continuous, ErrInvalidRenderer)
	}
	if p.Treatment.IsContinuous() {
		return fmt.Errorf("dataset %q must define values: %w", Discrete, ErrInvalidRenderer)
	}
	return nil
}
