// Package ui contains the viewer page and the Datastar SSE handlers that
// drive its widget, legend and attribute table.
package ui

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-paser/internal/controller"
	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/filter"
	"github.com/joeblew999/plat-paser/internal/humastar"
	"github.com/joeblew999/plat-paser/internal/session"
	"github.com/joeblew999/plat-paser/internal/symbology"
	"github.com/joeblew999/plat-paser/internal/templates"
)

// Handler serves the viewer.
type Handler struct {
	humastar.Handler
	sessions *session.Manager
	datasets dataset.Pair
	log      *logrus.Entry
}

// NewHandler creates the viewer handler.
func NewHandler(sessions *session.Manager, datasets dataset.Pair, renderer *templates.Renderer, log *logrus.Entry) *Handler {
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
		datasets: datasets,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("ui")
	huma.Get(api, "/api/v1/ui/{id}/events", h.Events, tags)
	huma.Post(api, "/api/v1/ui/{id}/toggle", h.Toggle, tags)
	huma.Post(api, "/api/v1/ui/{id}/range", h.Range, tags)
	huma.Post(api, "/api/v1/ui/{id}/category", h.Category, tags)
}

// SessionInput addresses a viewer session.
type SessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// ActionInput carries the Datastar signals of a widget action.
type ActionInput struct {
	SessionInput
	humastar.SignalsInput
}

func (h *Handler) controllerFor(id string) (*controller.Controller, error) {
	c, err := h.sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, huma.Error404NotFound("session not found")
	}
	return c, err
}

// WidgetData feeds the "widget" fragment.
type WidgetData struct {
	Session   string
	Active    dataset.Kind
	Title     string
	DomainMin int
	DomainMax int
	Options   []humastar.SelectOptionData
}

// PageData feeds the viewer page.
type PageData struct {
	Session string
	View    controller.ViewState
	Signals map[string]any
	Widget  WidgetData
	Legend  []symbology.LegendItem
}

func (h *Handler) widget(s controller.State) WidgetData {
	selected := s.Filter.Category
	if selected == "" {
		selected = filter.ShowAll
	}
	options := make([]humastar.SelectOptionData, len(s.Categories))
	for i, o := range s.Categories {
		options[i] = humastar.SelectOptionData{Value: o.Value, Label: o.Label, Selected: o.Value == selected}
	}
	return WidgetData{
		Session:   s.Session,
		Active:    s.Filter.Active,
		Title:     h.datasets.Get(s.Filter.Active).Title,
		DomainMin: filter.DomainMin,
		DomainMax: filter.DomainMax,
		Options:   options,
	}
}

func signals(s controller.State) map[string]any {
	category := s.Filter.Category
	if category == "" {
		category = filter.ShowAll
	}
	return map[string]any{
		"rangemin": s.Filter.RangeMin,
		"rangemax": s.Filter.RangeMax,
		"category": category,
		"error":    "",
	}
}

// mapState is the detail of the map-state browser event.
func mapState(s controller.State) map[string]any {
	return map[string]any{
		"layers": s.Layers,
		"paint":  s.Paint,
	}
}

// Page creates a session and serves the viewer for it.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Create(r.Context())
	if err != nil {
		h.log.WithError(err).Error("starting viewer session")
		http.Error(w, "Could not load the pavement layers", http.StatusBadGateway)
		return
	}
	s, err := c.Snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := PageData{
		Session: s.Session,
		View:    s.View,
		Signals: signals(s),
		Widget:  h.widget(s),
		Legend:  s.Legend,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.Renderer.Execute(w, "viewer.html", data); err != nil {
		h.log.WithError(err).Error("rendering viewer")
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
