package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-paser/internal/catalog"
	"github.com/joeblew999/plat-paser/internal/controller"
	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/filter"
	"github.com/joeblew999/plat-paser/internal/humastar"
	"github.com/joeblew999/plat-paser/internal/layer"
	"github.com/joeblew999/plat-paser/internal/symbology"
)

// sessionActions are offered by every ready session.
var sessionActions = []humastar.ActionDef{
	{Rel: "toggle", Pattern: "/api/v1/sessions/%s/toggle", Method: "POST", Title: "Switch the visible dataset"},
	{Rel: "dataset", Pattern: "/api/v1/sessions/%s/dataset", Method: "PUT", Title: "Show a dataset"},
	{Rel: "range", Pattern: "/api/v1/sessions/%s/range", Method: "PUT", Title: "Set the condition range"},
	{Rel: "table", Pattern: "/api/v1/sessions/%s/table", Method: "GET", Title: "Attribute table"},
	{Rel: "delete", Pattern: "/api/v1/sessions/%s", Method: "DELETE", Title: "End the session"},
}

// discreteActions are offered only while the treatment dataset is shown.
var discreteActions = []humastar.ActionDef{
	{Rel: "category", Pattern: "/api/v1/sessions/%s/category", Method: "PUT", Title: "Select a treatment category"},
	{Rel: "categories", Pattern: "/api/v1/sessions/%s/categories", Method: "GET", Title: "Treatment categories"},
}

// SessionBody is the session state plus the actions valid in it.
type SessionBody struct {
	controller.State
	actions []humastar.Action
}

// Actions implements humastar.Actor.
func (b SessionBody) Actions() []humastar.Action { return b.actions }

func newSessionBody(s controller.State) SessionBody {
	body := SessionBody{State: s}
	if s.Phase != controller.PhaseReady {
		return body
	}
	body.actions = humastar.ActionsFor(s.Session, sessionActions)
	if s.Filter.Active == dataset.Discrete {
		body.actions = append(body.actions, humastar.ActionsFor(s.Session, discreteActions)...)
	}
	return body
}

type SessionOutput struct {
	Body SessionBody
}

type CreatedSessionOutput struct {
	Location string `header:"Location" doc:"Session URL"`
	Body     SessionBody
}

func (h *APIHandler) snapshot(c *controller.Controller) (*SessionOutput, error) {
	s, err := c.Snapshot()
	if err != nil {
		return nil, problem(err)
	}
	return &SessionOutput{Body: newSessionBody(s)}, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *struct{}) (*CreatedSessionOutput, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	c, err := h.svc.Sessions.Create(ctx)
	if err != nil {
		return nil, problem(err)
	}
	s, err := c.Snapshot()
	if err != nil {
		return nil, problem(err)
	}
	return &CreatedSessionOutput{
		Location: "/api/v1/sessions/" + c.ID(),
		Body:     newSessionBody(s),
	}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	return h.snapshot(c)
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *SessionInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	if err := h.svc.Sessions.Delete(input.ID); err != nil {
		return nil, problem(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session ended"}}, nil
}

func (h *APIHandler) Toggle(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	if _, err := c.Toggle(); err != nil {
		return nil, problem(err)
	}
	return h.snapshot(c)
}

type DatasetInput struct {
	SessionInput
	Body struct {
		Dataset string `json:"dataset" enum:"condition,treatment" doc:"Dataset to show"`
	}
}

func (h *APIHandler) PutDataset(ctx context.Context, input *DatasetInput) (*SessionOutput, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	if err := c.SetActive(dataset.Kind(input.Body.Dataset)); err != nil {
		return nil, problem(err)
	}
	return h.snapshot(c)
}

type RangeInput struct {
	SessionInput
	Body struct {
		Min *int `json:"min,omitempty" doc:"New lower bound, clamped to 1..10" example:"3"`
		Max *int `json:"max,omitempty" doc:"New upper bound, clamped to 1..10" example:"8"`
	}
}

func (h *APIHandler) PutRange(ctx context.Context, input *RangeInput) (*SessionOutput, error) {
	if input.Body.Min == nil && input.Body.Max == nil {
		return nil, huma.Error422UnprocessableEntity("min or max is required")
	}
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	if _, err := c.SetRange(input.Body.Min, input.Body.Max); err != nil {
		return nil, problem(err)
	}
	return h.snapshot(c)
}

type CategoryInput struct {
	SessionInput
	Body struct {
		Code string `json:"code" doc:"Treatment code, or \"Show All\"" example:"CS"`
	}
}

func (h *APIHandler) PutCategory(ctx context.Context, input *CategoryInput) (*SessionOutput, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	if _, err := c.SelectCategory(input.Body.Code); err != nil {
		return nil, problem(err)
	}
	return h.snapshot(c)
}

type RendererInput struct {
	SessionInput
	Dataset string `query:"dataset" enum:"condition,treatment" doc:"Dataset, defaults to the visible one"`
}

type RendererBody struct {
	Dataset  dataset.Kind           `json:"dataset" doc:"Dataset the renderer is assigned to"`
	Renderer symbology.Description  `json:"renderer"`
	Legend   []symbology.LegendItem `json:"legend"`
	Paint    map[string]any         `json:"paint" doc:"MapLibre paint properties"`
}

func (h *APIHandler) GetRenderer(ctx context.Context, input *RendererInput) (*struct{ Body RendererBody }, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	k := dataset.Kind(input.Dataset)
	if k == "" {
		s, err := c.Snapshot()
		if err != nil {
			return nil, problem(err)
		}
		k = s.Filter.Active
	}
	r, err := c.Renderer(k)
	if err != nil {
		return nil, problem(err)
	}
	if r == nil {
		return nil, huma.Error503ServiceUnavailable("no renderer assigned")
	}
	return &struct{ Body RendererBody }{Body: RendererBody{
		Dataset:  k,
		Renderer: r.Describe(),
		Legend:   symbology.Legend(r),
		Paint:    symbology.Paint(r),
	}}, nil
}

type CategoriesBody struct {
	Loaded   bool             `json:"loaded" doc:"Whether the treatment schema loaded"`
	Selected string           `json:"selected" doc:"Current selection"`
	Entries  []catalog.Entry  `json:"entries" doc:"Coded values in schema order"`
	Options  []catalog.Option `json:"options" doc:"Selector options, Show All first"`
}

func (h *APIHandler) GetCategories(ctx context.Context, input *SessionInput) (*struct{ Body CategoriesBody }, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	s, err := c.Snapshot()
	if err != nil {
		return nil, problem(err)
	}
	cat, err := c.Catalog()
	if err != nil {
		return nil, problem(err)
	}
	selected := s.Filter.Category
	if selected == "" {
		selected = filter.ShowAll
	}
	return &struct{ Body CategoriesBody }{Body: CategoriesBody{
		Loaded:   cat.Loaded(),
		Selected: selected,
		Entries:  cat.Entries(),
		Options:  cat.Options(),
	}}, nil
}

type TableInput struct {
	SessionInput
	Offset int `query:"offset" minimum:"0" default:"0" doc:"First row"`
	Limit  int `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
}

// TableBody is one page of the visible dataset's attribute table.
type TableBody struct {
	Dataset    dataset.Kind `json:"dataset" doc:"Dataset the rows belong to"`
	Generation uint64       `json:"generation" doc:"Latest issued query generation"`
	Loaded     bool         `json:"loaded" doc:"Whether any rows have arrived"`
	Error      string       `json:"error,omitempty" doc:"Last query failure, if the rows are stale"`
	Columns    []string     `json:"columns" doc:"Column order"`
	humastar.PageBody[layer.Row]
}

func (h *APIHandler) GetTable(ctx context.Context, input *TableInput) (*struct{ Body TableBody }, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	t, err := c.Table()
	if err != nil {
		return nil, problem(err)
	}
	return &struct{ Body TableBody }{Body: TableBody{
		Dataset:    t.Dataset,
		Generation: t.Generation,
		Loaded:     t.Loaded,
		Error:      t.Error,
		Columns:    t.Columns,
		PageBody:   humastar.Page(t.Rows, input.Offset, input.Limit),
	}}, nil
}

type FeaturesInput struct {
	SessionInput
	Dataset string `path:"dataset" enum:"condition,treatment" doc:"Dataset"`
}

type FeaturesOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// GetFeatures returns the dataset's features as GeoJSON, styled by the
// dataset's current renderer.
func (h *APIHandler) GetFeatures(ctx context.Context, input *FeaturesInput) (*FeaturesOutput, error) {
	c, err := h.controllerFor(input.ID)
	if err != nil {
		return nil, err
	}
	fc, err := c.Features(ctx, dataset.Kind(input.Dataset))
	if err != nil {
		return nil, problem(err)
	}
	body, err := json.Marshal(fc)
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("encoding %s features", input.Dataset), err)
	}
	return &FeaturesOutput{ContentType: "application/geo+json", Body: body}, nil
}
