// Package mapview models the map surface the layers are drawn on.
package mapview

import (
	"errors"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-paser/internal/layer"
)

// ErrDestroyed is returned when adding to a destroyed view.
var ErrDestroyed = errors.New("map view destroyed")

// Config is the initial map framing.
type Config struct {
	Container string
	Basemap   string
	Center    orb.Point
	Zoom      float64
}

// DefaultConfig frames the demo road network.
func DefaultConfig() Config {
	return Config{
		Container: "viewDiv",
		Basemap:   "streets",
		Center:    orb.Point{-111.576820, 40.136589},
		Zoom:      13,
	}
}

// View holds the layers added to one map. Not safe for concurrent use.
type View struct {
	cfg       Config
	layers    []*layer.Handle
	destroyed bool
}

// New creates a view.
func New(cfg Config) *View {
	return &View{cfg: cfg}
}

// Config returns the view framing.
func (v *View) Config() Config { return v.cfg }

// Add draws h on the map, in add order.
func (v *View) Add(h *layer.Handle) error {
	if v.destroyed {
		return ErrDestroyed
	}
	v.layers = append(v.layers, h)
	return nil
}

// Layers returns the added layers.
func (v *View) Layers() []*layer.Handle {
	return append([]*layer.Handle(nil), v.layers...)
}

// Destroy releases the view. Calling it again is a no-op.
func (v *View) Destroy() {
	v.layers = nil
	v.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (v *View) Destroyed() bool { return v.destroyed }
