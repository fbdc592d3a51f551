// Package catalog derives the selectable category codes of the discrete
// dataset from its schema's coded-value domain.
package catalog

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/featuresource"
	"github.com/joeblew999/plat-paser/internal/filter"
	"github.com/joeblew999/plat-paser/internal/metrics"
)

// Entry is one selectable category.
type Entry struct {
	Code string `json:"code" doc:"Category code" example:"CS"`
	Name string `json:"name" doc:"Display name" example:"Crack Seal"`
}

// Option is one selector entry.
type Option struct {
	Value string `json:"value" doc:"Value to select" example:"CS"`
	Label string `json:"label" doc:"Display text" example:"Crack Seal (CS)"`
}

// Catalog is the ordered list of categories. The zero value is the empty
// catalog. A Catalog is never modified once loaded.
type Catalog struct {
	entries []Entry
	loaded  bool
}

// New returns a loaded catalog holding entries.
func New(entries []Entry) Catalog {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return Catalog{entries: cp, loaded: true}
}

// Entries returns a copy of the entries in domain order.
func (c Catalog) Entries() []Entry {
	cp := make([]Entry, len(c.entries))
	copy(cp, c.entries)
	return cp
}

// Loaded reports whether a schema load completed successfully.
func (c Catalog) Loaded() bool { return c.loaded }

// Len returns the number of entries.
func (c Catalog) Len() int { return len(c.entries) }

// Label returns the display name for code.
func (c Catalog) Label(code string) (string, bool) {
	for _, e := range c.entries {
		if e.Code == code {
			return e.Name, true
		}
	}
	return "", false
}

// Options returns the selector entries: "Show All" followed by
// "name (code)" for every entry.
func (c Catalog) Options() []Option {
	opts := make([]Option, 0, len(c.entries)+1)
	opts = append(opts, Option{Value: filter.ShowAll, Label: filter.ShowAll})
	for _, e := range c.entries {
		opts = append(opts, Option{Value: e.Code, Label: fmt.Sprintf("%s (%s)", e.Name, e.Code)})
	}
	return opts
}

// Load reads src's schema and returns the coded-value domain of d's styled
// field. Any failure is logged and yields the empty catalog.
func Load(ctx context.Context, src featuresource.Source, d dataset.Descriptor, log *logrus.Entry) Catalog {
	log = log.WithFields(logrus.Fields{"dataset": d.Kind, "field": d.StyledField})

	schema, err := src.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("category catalog unavailable")
		metrics.CatalogLoadsTotal.WithLabelValues("failed").Inc()
		return Catalog{}
	}

	field, ok := schema.Field(d.StyledField)
	if !ok {
		log.Warn("styled field missing from schema")
		metrics.CatalogLoadsTotal.WithLabelValues("failed").Inc()
		return Catalog{}
	}
	if field.Domain == nil || len(field.Domain.CodedValues) == 0 {
		log.Warn("styled field has no coded-value domain")
		metrics.CatalogLoadsTotal.WithLabelValues("empty").Inc()
		return Catalog{}
	}

	entries := make([]Entry, len(field.Domain.CodedValues))
	for i, cv := range field.Domain.CodedValues {
		entries[i] = Entry{Code: cv.Code, Name: cv.Name}
	}
	log.WithField("entries", len(entries)).Debug("category catalog loaded")
	metrics.CatalogLoadsTotal.WithLabelValues("loaded").Inc()
	return New(entries)
}
