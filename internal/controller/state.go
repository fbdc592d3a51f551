package controller

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-paser/internal/catalog"
	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/filter"
	"github.com/joeblew999/plat-paser/internal/layer"
	"github.com/joeblew999/plat-paser/internal/symbology"
)

// LayerState describes one layer of the map.
type LayerState struct {
	Dataset dataset.Kind `json:"dataset" enum:"condition,treatment" doc:"Dataset shown by the layer"`
	Title   string       `json:"title" doc:"Layer title"`
	Visible bool         `json:"visible" doc:"Whether the layer is drawn"`
}

// ViewState is the map framing.
type ViewState struct {
	Container string     `json:"container" doc:"Map container element id"`
	Basemap   string     `json:"basemap" doc:"Basemap identifier" example:"streets"`
	Center    [2]float64 `json:"center" doc:"Initial centre [lon, lat]"`
	Zoom      float64    `json:"zoom" doc:"Initial zoom level"`
}

// TableState summarises a dataset's attribute table.
type TableState struct {
	Dataset    dataset.Kind `json:"dataset" doc:"Dataset the rows belong to"`
	Generation uint64       `json:"generation" doc:"Latest issued query generation"`
	Loaded     bool         `json:"loaded" doc:"Whether any rows have arrived"`
	Rows       int          `json:"rows" doc:"Number of rows held"`
	Error      string       `json:"error,omitempty" doc:"Last query failure, if the rows are stale"`
}

// State is a point-in-time copy of the session.
type State struct {
	Session       string                 `json:"session" doc:"Session id"`
	Phase         Phase                  `json:"phase" enum:"uninitialized,starting,ready,closed" doc:"Controller lifecycle phase"`
	Filter        filter.State           `json:"filter"`
	Layers        []LayerState           `json:"layers"`
	Renderer      *symbology.Description `json:"renderer,omitempty" doc:"Renderer of the visible layer"`
	Legend        []symbology.LegendItem `json:"legend"`
	Paint         map[string]any         `json:"paint,omitempty" doc:"MapLibre paint properties for the visible layer"`
	Categories    []catalog.Option       `json:"categories" doc:"Category selector options"`
	CatalogLoaded bool                   `json:"catalogLoaded" doc:"Whether the category catalog loaded"`
	Table         TableState             `json:"table"`
	View          ViewState              `json:"view"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() (State, error) {
	var s State
	err := c.call(func() error {
		s = c.snapshot()
		return nil
	})
	return s, err
}

func (c *Controller) snapshot() State {
	cfg := c.cfg.View
	if c.view != nil {
		cfg = c.view.Config()
	}
	s := State{
		Session:       c.cfg.Session,
		Phase:         c.phase,
		Filter:        c.filter,
		Categories:    c.catalog.Options(),
		CatalogLoaded: c.catalog.Loaded(),
		Table:         c.tableState(c.filter.Active),
		View: ViewState{
			Container: cfg.Container,
			Basemap:   cfg.Basemap,
			Center:    [2]float64{cfg.Center.Lon(), cfg.Center.Lat()},
			Zoom:      cfg.Zoom,
		},
	}
	for _, k := range []dataset.Kind{dataset.Continuous, dataset.Discrete} {
		ls := LayerState{Dataset: k, Title: c.cfg.Datasets.Get(k).Title}
		if c.binding != nil {
			ls.Visible = c.binding.Visible(k)
		}
		s.Layers = append(s.Layers, ls)
	}
	if c.binding != nil {
		if r := c.binding.Renderer(c.filter.Active); r != nil {
			desc := r.Describe()
			s.Renderer = &desc
			s.Legend = symbology.Legend(r)
			s.Paint = symbology.Paint(r)
		}
	}
	return s
}

func (c *Controller) tableState(k dataset.Kind) TableState {
	return TableState{
		Dataset:    k,
		Generation: c.tables.Generation(k),
		Loaded:     c.tables.Loaded(k),
		Rows:       len(c.tables.Rows(k)),
		Error:      c.tableErrs[k],
	}
}

// Table is the attribute table of one dataset.
type Table struct {
	Dataset    dataset.Kind `json:"dataset" doc:"Dataset the rows belong to"`
	Generation uint64       `json:"generation" doc:"Query generation the rows came from or superseded"`
	Loaded     bool         `json:"loaded" doc:"Whether any rows have arrived"`
	Error      string       `json:"error,omitempty" doc:"Last query failure, if the rows are stale"`
	Columns    []string     `json:"columns" doc:"Column order"`
	Rows       []layer.Row  `json:"rows"`
}

// Table returns the rows of the active dataset.
func (c *Controller) Table() (Table, error) {
	var t Table
	err := c.call(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		k := c.filter.Active
		t = Table{
			Dataset:    k,
			Generation: c.tables.Generation(k),
			Loaded:     c.tables.Loaded(k),
			Error:      c.tableErrs[k],
			Columns:    c.cfg.Datasets.Get(k).TableFields,
			Rows:       c.tables.Rows(k),
		}
		return nil
	})
	return t, err
}

// Features queries k's geometries and styles each feature with the
// renderer assigned to k. Every feature gets _color and _width properties
// and the collection carries its bounding box.
func (c *Controller) Features(ctx context.Context, k dataset.Kind) (*geojson.FeatureCollection, error) {
	var (
		h *layer.Handle
		r symbology.Renderer
	)
	err := c.call(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		if !k.Valid() {
			return fmt.Errorf("%w: %q", dataset.ErrUnknownDataset, k)
		}
		h = c.binding.Handle(k)
		r = c.binding.Renderer(k)
		return nil
	})
	if err != nil {
		return nil, err
	}

	features, err := h.QueryFeatures(ctx)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	var bound orb.Bound
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		for name, v := range f.Properties {
			gf.Properties[name] = v
		}
		style := r.StyleFor(f.Properties[r.Field()])
		gf.Properties["_color"] = style.Color
		gf.Properties["_width"] = style.Width

		if len(fc.Features) == 0 {
			bound = f.Geometry.Bound()
		} else {
			bound = bound.Union(f.Geometry.Bound())
		}
		fc.Append(gf)
	}
	if len(fc.Features) > 0 {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc, nil
}
