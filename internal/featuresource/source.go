// Package featuresource defines the remote feature data source the layers
// read from, and opens concrete sources by URL.
package featuresource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

var (
	// ErrSchemaLoad wraps any failure to fetch or interpret layer metadata.
	ErrSchemaLoad = errors.New("schema load failed")
	// ErrUnsupportedURL is returned by Open for unknown URL schemes.
	ErrUnsupportedURL = errors.New("unsupported feature source url")
)

// CodedValue is one entry of a coded-value domain.
type CodedValue struct {
	Code string `json:"code" doc:"Stored code" example:"CS"`
	Name string `json:"name" doc:"Display name" example:"Crack Seal"`
}

// Domain is a field's value domain. Only coded-value domains carry
// CodedValues.
type Domain struct {
	Type        string       `json:"type" doc:"Domain type" example:"codedValue"`
	Name        string       `json:"name,omitempty" doc:"Domain name"`
	CodedValues []CodedValue `json:"codedValues,omitempty" doc:"Codes and names, in schema order"`
}

// Field describes one attribute of the layer schema.
type Field struct {
	Name   string  `json:"name"`
	Alias  string  `json:"alias,omitempty"`
	Type   string  `json:"type"`
	Domain *Domain `json:"domain,omitempty"`
}

// Schema is the layer metadata returned by Load.
type Schema struct {
	Name          string  `json:"name"`
	GeometryType  string  `json:"geometryType,omitempty"`
	ObjectIDField string  `json:"objectIdField,omitempty"`
	Fields        []Field `json:"fields"`
}

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Feature is one queried feature. Geometry is nil when not requested.
type Feature struct {
	ID         string
	Properties map[string]any
	Geometry   orb.Geometry
}

// Query selects the attributes to return.
type Query struct {
	Fields         []string
	ReturnGeometry bool
	IDField        string
}

// Source is a feature layer backend. Implementations are safe for
// concurrent use; Load and Query may be slow and may fail.
type Source interface {
	Load(ctx context.Context) (Schema, error)
	Query(ctx context.Context, q Query) ([]Feature, error)
	Close() error
}

// Opener opens a Source for a descriptor URL.
type Opener interface {
	Open(ctx context.Context, url string) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) (Source, error)

func (f OpenerFunc) Open(ctx context.Context, url string) (Source, error) {
	return f(ctx, url)
}

// Mux dispatches on URL scheme.
type Mux map[string]Opener

// Open implements Opener.
func (m Mux) Open(ctx context.Context, url string) (Source, error) {
	scheme, _, ok := strings.Cut(url, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
	}
	o, ok := m[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, scheme)
	}
	return o.Open(ctx, url)
}

// IDString formats a feature identifier.
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		if id == float64(int64(id)) {
			return fmt.Sprintf("%d", int64(id))
		}
	}
	return fmt.Sprint(v)
}
