package symbology

import "github.com/joeblew999/plat-paser/internal/dataset"

// Renderer type names, matching the ArcGIS renderer JSON vocabulary.
const (
	TypeClassBreaks = "classBreaks"
	TypeUniqueValue = "uniqueValue"
)

// Description is the wire form of a Renderer.
type Description struct {
	Type    string        `json:"type" enum:"classBreaks,uniqueValue" doc:"Renderer type"`
	Field   string        `json:"field" doc:"Styled attribute"`
	Classes []Class       `json:"classes" doc:"Ordered rules"`
	Default dataset.Style `json:"defaultSymbol" doc:"Style for unmatched features"`
}

// Class is one rule of a Description. Min/Max are set for class breaks,
// Value for unique values.
type Class struct {
	Label string        `json:"label"`
	Min   *float64      `json:"min,omitempty"`
	Max   *float64      `json:"max,omitempty"`
	Value string        `json:"value,omitempty"`
	Style dataset.Style `json:"symbol"`
}

func (r *ClassBreaks) Describe() Description {
	classes := make([]Class, len(r.Breaks))
	for i, b := range r.Breaks {
		lo, hi := b.Min, b.Max
		classes[i] = Class{Label: b.Label, Min: &lo, Max: &hi, Style: b.Style}
	}
	return Description{Type: TypeClassBreaks, Field: r.StyledField, Classes: classes, Default: r.DefaultStyle}
}

func (r *UniqueValue) Describe() Description {
	classes := make([]Class, len(r.Values))
	for i, v := range r.Values {
		classes[i] = Class{Label: v.Label, Value: v.Value, Style: v.Style}
	}
	return Description{Type: TypeUniqueValue, Field: r.StyledField, Classes: classes, Default: r.DefaultStyle}
}

// LegendItem is a legend entry.
type LegendItem struct {
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}

// Legend lists the renderer's rules followed by an "Other" entry for the
// default style.
func Legend(r Renderer) []LegendItem {
	if r == nil {
		return nil
	}
	desc := r.Describe()
	items := make([]LegendItem, 0, len(desc.Classes)+1)
	for _, c := range desc.Classes {
		items = append(items, LegendItem{Label: c.Label, Color: c.Style.Color})
	}
	return append(items, LegendItem{Label: "Other", Color: desc.Default.Color})
}

// Paint returns MapLibre line paint properties equivalent to r. Rules are
// tested in order and the default style applies last.
func Paint(r Renderer) map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"line-color": expression(r, func(s dataset.Style) any { return s.Color }),
		"line-width": expression(r, func(s dataset.Style) any { return s.Width }),
	}
}

func expression(r Renderer, pick func(dataset.Style) any) any {
	get := []any{"get", r.Field()}
	fallback := pick(r.Default())

	switch rr := r.(type) {
	case *ClassBreaks:
		if len(rr.Breaks) == 0 {
			return fallback
		}
		value := []any{"to-number", get, -1}
		expr := []any{"case"}
		for _, b := range rr.Breaks {
			expr = append(expr,
				[]any{"all", []any{">=", value, b.Min}, []any{"<=", value, b.Max}},
				pick(b.Style))
		}
		return append(expr, fallback)

	case *UniqueValue:
		if len(rr.Values) == 0 {
			return fallback
		}
		expr := []any{"match", []any{"to-string", get}}
		for _, v := range rr.Values {
			expr = append(expr, v.Value, pick(v.Style))
		}
		return append(expr, fallback)
	}
	return fallback
}
