package layer

import (
	"errors"

	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/metrics"
	"github.com/joeblew999/plat-paser/internal/symbology"
)

// Binding owns the two layer handles, their visibility flags and their
// assigned renderers. It is not safe for concurrent use; the controller
// loop is its only caller.
type Binding struct {
	handles   map[dataset.Kind]*Handle
	visible   map[dataset.Kind]bool
	renderers map[dataset.Kind]symbology.Renderer
}

// NewBinding binds the two handles with the continuous dataset visible.
func NewBinding(condition, treatment *Handle) *Binding {
	return &Binding{
		handles: map[dataset.Kind]*Handle{
			dataset.Continuous: condition,
			dataset.Discrete:   treatment,
		},
		visible: map[dataset.Kind]bool{
			dataset.Continuous: true,
			dataset.Discrete:   false,
		},
		renderers: make(map[dataset.Kind]symbology.Renderer, 2),
	}
}

// Handle returns the layer for k.
func (b *Binding) Handle(k dataset.Kind) *Handle { return b.handles[k] }

// SetVisible sets k's visibility and gives the other dataset the opposite
// flag in the same call, so exactly one layer is visible.
func (b *Binding) SetVisible(k dataset.Kind, visible bool) {
	b.visible[k] = visible
	b.visible[k.Other()] = !visible
}

// SetActive makes k the only visible layer.
func (b *Binding) SetActive(k dataset.Kind) { b.SetVisible(k, true) }

// Visible reports k's visibility flag.
func (b *Binding) Visible(k dataset.Kind) bool { return b.visible[k] }

// Active returns the visible dataset.
func (b *Binding) Active() dataset.Kind {
	if b.visible[dataset.Discrete] {
		return dataset.Discrete
	}
	return dataset.Continuous
}

// AssignRenderer replaces k's renderer.
func (b *Binding) AssignRenderer(k dataset.Kind, r symbology.Renderer) {
	b.renderers[k] = r
	metrics.RendererAssignmentsTotal.WithLabelValues(string(k)).Inc()
}

// Renderer returns k's current renderer, or nil before the first
// assignment.
func (b *Binding) Renderer(k dataset.Kind) symbology.Renderer { return b.renderers[k] }

// Close releases both handles.
func (b *Binding) Close() error {
	var errs []error
	for _, k := range []dataset.Kind{dataset.Continuous, dataset.Discrete} {
		if h := b.handles[k]; h != nil {
			errs = append(errs, h.Close())
		}
	}
	return errors.Join(errs...)
}
