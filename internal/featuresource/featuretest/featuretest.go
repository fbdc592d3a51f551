// Package featuretest provides an in-memory feature source for tests.
package featuretest

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-paser/internal/featuresource"
)

// Source is an in-memory featuresource.Source. When Calls is non-nil every
// Query is handed to the test through it and blocks until answered.
type Source struct {
	Schema   featuresource.Schema
	Features []featuresource.Feature
	LoadErr  error
	QueryErr error
	Calls    chan *Call

	mu      sync.Mutex
	loads   int
	queries int
	closed  bool
}

// Call is one pending query.
type Call struct {
	Query featuresource.Query
	reply chan result
}

type result struct {
	features []featuresource.Feature
	err      error
}

// Respond completes the call.
func (c *Call) Respond(features []featuresource.Feature, err error) {
	c.reply <- result{features, err}
}

func (s *Source) Load(ctx context.Context) (featuresource.Schema, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	if s.LoadErr != nil {
		return featuresource.Schema{}, fmt.Errorf("%w: %v", featuresource.ErrSchemaLoad, s.LoadErr)
	}
	return s.Schema, ctx.Err()
}

func (s *Source) Query(ctx context.Context, q featuresource.Query) ([]featuresource.Feature, error) {
	s.mu.Lock()
	s.queries++
	s.mu.Unlock()

	if s.Calls == nil {
		if s.QueryErr != nil {
			return nil, s.QueryErr
		}
		return s.Features, nil
	}

	c := &Call{Query: q, reply: make(chan result, 1)}
	select {
	case s.Calls <- c:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r.features, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Loads returns how many times Load was called.
func (s *Source) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// Queries returns how many times Query was called.
func (s *Source) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Opener opens the source registered for a URL.
func Opener(sources map[string]*Source) featuresource.Opener {
	return featuresource.OpenerFunc(func(_ context.Context, url string) (featuresource.Source, error) {
		s, ok := sources[url]
		if !ok {
			return nil, fmt.Errorf("%w: %q", featuresource.ErrUnsupportedURL, url)
		}
		return s, nil
	})
}

// Segments builds one line feature per value with OBJECTID 1..n, the value
// stored under field.
func Segments(field string, values ...any) []featuresource.Feature {
	out := make([]featuresource.Feature, len(values))
	for i, v := range values {
		id := i + 1
		x := -111.57 - float64(i)*0.001
		out[i] = featuresource.Feature{
			ID: fmt.Sprint(id),
			Properties: map[string]any{
				"OBJECTID": float64(id),
				field:      v,
			},
			Geometry: orb.LineString{{x, 40.13}, {x - 0.001, 40.131}},
		}
	}
	return out
}

// CodedField returns a schema field with a coded-value domain.
func CodedField(name string, pairs ...string) featuresource.Field {
	d := &featuresource.Domain{Type: "codedValue"}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.CodedValues = append(d.CodedValues, featuresource.CodedValue{Code: pairs[i], Name: pairs[i+1]})
	}
	return featuresource.Field{Name: name, Type: "esriFieldTypeString", Domain: d}
}
