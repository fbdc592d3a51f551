// Package symbology turns a dataset descriptor and the current filter into
// the rule set the map draws with.
package symbology

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/filter"
)

// ErrUnmatchedCategory is returned when the selected category has no entry
// among the descriptor's values.
var ErrUnmatchedCategory = errors.New("selected category has no configured style")

// Renderer is a complete rule set for one layer: either *ClassBreaks or
// *UniqueValue. Both carry a default style for unmatched features.
type Renderer interface {
	Field() string
	Default() dataset.Style
	// StyleFor evaluates the rule set for one attribute value.
	StyleFor(v any) dataset.Style
	Describe() Description
	isRenderer()
}

// ClassBreaks styles a numeric field by interval.
type ClassBreaks struct {
	StyledField  string
	Breaks       []dataset.Break
	DefaultStyle dataset.Style
}

func (r *ClassBreaks) Field() string          { return r.StyledField }
func (r *ClassBreaks) Default() dataset.Style { return r.DefaultStyle }
func (r *ClassBreaks) isRenderer()            {}

func (r *ClassBreaks) StyleFor(v any) dataset.Style {
	f, ok := toFloat(v)
	if !ok {
		return r.DefaultStyle
	}
	for _, b := range r.Breaks {
		if b.Contains(f) {
			return b.Style
		}
	}
	return r.DefaultStyle
}

// UniqueValue styles a categorical field by exact code.
type UniqueValue struct {
	StyledField  string
	Values       []dataset.Value
	DefaultStyle dataset.Style
}

func (r *UniqueValue) Field() string          { return r.StyledField }
func (r *UniqueValue) Default() dataset.Style { return r.DefaultStyle }
func (r *UniqueValue) isRenderer()            {}

func (r *UniqueValue) StyleFor(v any) dataset.Style {
	if v == nil {
		return r.DefaultStyle
	}
	code := fmt.Sprint(v)
	for _, uv := range r.Values {
		if uv.Value == code {
			return uv.Style
		}
	}
	return r.DefaultStyle
}

// Build returns the renderer for d under filter state f.
//
// Continuous descriptors keep every break overlapping [RangeMin, RangeMax],
// in order. Discrete descriptors keep every value when the selection is
// ShowAll, otherwise exactly the selected value. Build has no side effects.
func Build(d dataset.Descriptor, f filter.State) (Renderer, error) {
	switch {
	case len(d.Breaks) > 0:
		lo, hi := float64(f.RangeMin), float64(f.RangeMax)
		breaks := make([]dataset.Break, 0, len(d.Breaks))
		for _, b := range d.Breaks {
			if b.Overlaps(lo, hi) {
				breaks = append(breaks, b)
			}
		}
		return &ClassBreaks{StyledField: d.StyledField, Breaks: breaks, DefaultStyle: d.Fallback}, nil

	case len(d.Values) > 0:
		if f.ShowingAll() {
			values := make([]dataset.Value, len(d.Values))
			copy(values, d.Values)
			return &UniqueValue{StyledField: d.StyledField, Values: values, DefaultStyle: d.Fallback}, nil
		}
		for _, v := range d.Values {
			if v.Value == f.Category {
				return &UniqueValue{StyledField: d.StyledField, Values: []dataset.Value{v}, DefaultStyle: d.Fallback}, nil
			}
		}
		return nil, fmt.Errorf("category %q on %q: %w", f.Category, d.StyledField, ErrUnmatchedCategory)
	}
	return nil, fmt.Errorf("dataset %q: %w", d.Kind, dataset.ErrInvalidRenderer)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case int16:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
