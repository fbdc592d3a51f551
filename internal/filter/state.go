// Package filter holds the user-adjustable filter criteria.
package filter

import "github.com/joeblew999/plat-paser/internal/dataset"

const (
	// DomainMin and DomainMax bound the numeric range filter.
	DomainMin = 1
	DomainMax = 10

	// ShowAll is the category selection that keeps every value.
	ShowAll = "Show All"
)

// State is the complete filter state of one session.
//
// RangeMin <= RangeMax holds after every mutation; both stay inside
// [DomainMin, DomainMax].
type State struct {
	RangeMin int          `json:"rangeMin" minimum:"1" maximum:"10" doc:"Lower bound of the condition range"`
	RangeMax int          `json:"rangeMax" minimum:"1" maximum:"10" doc:"Upper bound of the condition range"`
	Category string       `json:"category" doc:"Selected treatment code, or \"Show All\""`
	Active   dataset.Kind `json:"active" enum:"condition,treatment" doc:"Visible dataset"`
}

// New returns the startup state: full range, every category, condition
// dataset active.
func New() State {
	return State{
		RangeMin: DomainMin,
		RangeMax: DomainMax,
		Category: ShowAll,
		Active:   dataset.Continuous,
	}
}

// SetMin sets the lower bound, raising the upper bound if needed.
func (s *State) SetMin(v int) {
	v = clamp(v)
	s.RangeMin = v
	if s.RangeMax < v {
		s.RangeMax = v
	}
}

// SetMax sets the upper bound, lowering the lower bound if needed.
func (s *State) SetMax(v int) {
	v = clamp(v)
	s.RangeMax = v
	if s.RangeMin > v {
		s.RangeMin = v
	}
}

// Select sets the category selection. An empty code selects ShowAll.
func (s *State) Select(code string) {
	if code == "" {
		code = ShowAll
	}
	s.Category = code
}

// ShowingAll reports whether every category is selected.
func (s State) ShowingAll() bool {
	return s.Category == ShowAll || s.Category == ""
}

// Toggle switches the active dataset and returns the new one.
func (s *State) Toggle() dataset.Kind {
	s.Active = s.Active.Other()
	return s.Active
}

func clamp(v int) int {
	if v < DomainMin {
		return DomainMin
	}
	if v > DomainMax {
		return DomainMax
	}
	return v
}
