// Package layer binds dataset descriptors to live feature sources.
package layer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/featuresource"
	"github.com/joeblew999/plat-paser/internal/metrics"
)

// ErrAttributeQuery wraps any failure of a row or feature query.
var ErrAttributeQuery = errors.New("attribute query failed")

// Row is one attribute table record, keyed by feature id. Values holds
// exactly the descriptor's table fields.
type Row struct {
	ID     string         `json:"id" doc:"Feature identifier"`
	Values map[string]any `json:"values" doc:"Table field values"`
}

// Handle is a live layer for one dataset. Descriptor and source are
// immutable after Create; queries may run from any goroutine.
type Handle struct {
	Descriptor dataset.Descriptor
	src        featuresource.Source
}

// Create validates d and opens its feature source. An invalid renderer
// configuration aborts creation.
func Create(ctx context.Context, opener featuresource.Opener, d dataset.Descriptor) (*Handle, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("creating layer: %w", err)
	}
	src, err := opener.Open(ctx, d.URL)
	if err != nil {
		return nil, fmt.Errorf("creating layer %q: %w", d.Kind, err)
	}
	return &Handle{Descriptor: d, src: src}, nil
}

// Kind returns the dataset the layer shows.
func (h *Handle) Kind() dataset.Kind { return h.Descriptor.Kind }

// Source returns the underlying feature source.
func (h *Handle) Source() featuresource.Source { return h.src }

// QueryRows fetches the full table projection of the layer.
func (h *Handle) QueryRows(ctx context.Context) ([]Row, error) {
	d := h.Descriptor
	features, err := h.query(ctx, featuresource.Query{Fields: d.Columns(), IDField: d.IDField})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(features))
	for _, f := range features {
		values := make(map[string]any, len(d.TableFields))
		for _, name := range d.TableFields {
			values[name] = f.Properties[name]
		}
		rows = append(rows, Row{ID: f.ID, Values: values})
	}
	return rows, nil
}

// QueryFeatures fetches every feature with geometry and the styled field.
func (h *Handle) QueryFeatures(ctx context.Context) ([]featuresource.Feature, error) {
	d := h.Descriptor
	fields := []string{d.IDField}
	if d.StyledField != d.IDField {
		fields = append(fields, d.StyledField)
	}
	return h.query(ctx, featuresource.Query{Fields: fields, ReturnGeometry: true, IDField: d.IDField})
}

func (h *Handle) query(ctx context.Context, q featuresource.Query) ([]featuresource.Feature, error) {
	start := time.Now()
	features, err := h.src.Query(ctx, q)
	metrics.FeatureQueryDuration.WithLabelValues(string(h.Kind())).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAttributeQuery, h.Kind(), err)
	}
	return features, nil
}

// Close releases the feature source.
func (h *Handle) Close() error {
	return h.src.Close()
}
