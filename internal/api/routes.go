// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-paser/internal/controller"
	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/session"
	"github.com/joeblew999/plat-paser/internal/symbology"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Sessions *session.Manager
	Datasets dataset.Pair
}

// Types

type SessionInput struct {
	ID string `path:"id" doc:"Session ID" example:"0b6f3e0e-5c1a-4c1e-9a59-0f7d3c1c1f0e"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status   string `json:"status" doc:"Health status" example:"ok"`
	Version  string `json:"version" doc:"API version" example:"1.0.0"`
	Sessions int    `json:"sessions" doc:"Live sessions"`
}

type DatasetsBody struct {
	Condition dataset.Descriptor `json:"condition" doc:"Continuous dataset"`
	Treatment dataset.Descriptor `json:"treatment" doc:"Discrete dataset"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterDatasets registers the dataset descriptor route.
func (h *APIHandler) RegisterDatasets(api huma.API) {
	huma.Get(api, "/api/v1/datasets", h.GetDatasets, huma.OperationTags("datasets"))
}

// RegisterSessions registers session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	tags := huma.OperationTags("sessions")
	huma.Post(api, "/api/v1/sessions", h.CreateSession, tags, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
	})
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, tags)
	huma.Delete(api, "/api/v1/sessions/{id}", h.DeleteSession, tags)
	huma.Post(api, "/api/v1/sessions/{id}/toggle", h.Toggle, tags)
	huma.Put(api, "/api/v1/sessions/{id}/dataset", h.PutDataset, tags)
	huma.Put(api, "/api/v1/sessions/{id}/range", h.PutRange, tags)
	huma.Put(api, "/api/v1/sessions/{id}/category", h.PutCategory, tags)
	huma.Get(api, "/api/v1/sessions/{id}/renderer", h.GetRenderer, tags)
	huma.Get(api, "/api/v1/sessions/{id}/categories", h.GetCategories, tags)
	huma.Get(api, "/api/v1/sessions/{id}/table", h.GetTable, tags)
	huma.Get(api, "/api/v1/sessions/{id}/datasets/{dataset}/features", h.GetFeatures, tags)
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: "1.0.0"}
	if h.svc != nil && h.svc.Sessions != nil {
		body.Sessions = h.svc.Sessions.Len()
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) GetDatasets(ctx context.Context, input *struct{}) (*struct{ Body DatasetsBody }, error) {
	return &struct{ Body DatasetsBody }{Body: DatasetsBody{
		Condition: h.svc.Datasets.Condition,
		Treatment: h.svc.Datasets.Treatment,
	}}, nil
}

// controllerFor resolves a session id.
func (h *APIHandler) controllerFor(id string) (*controller.Controller, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	c, err := h.svc.Sessions.Get(id)
	if err != nil {
		return nil, problem(err)
	}
	return c, nil
}

// problem converts domain errors to Huma problem responses.
func problem(err error) error {
	var se huma.StatusError
	switch {
	case errors.As(err, &se):
		return err
	case errors.Is(err, session.ErrNotFound):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, controller.ErrClosed):
		return huma.Error404NotFound("session closed")
	case errors.Is(err, controller.ErrNotReady):
		return huma.Error503ServiceUnavailable("session not ready")
	case errors.Is(err, symbology.ErrUnmatchedCategory), errors.Is(err, dataset.ErrUnknownDataset):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, dataset.ErrInvalidRenderer):
		return huma.Error500InternalServerError("invalid renderer configuration", err)
	}
	return huma.Error502BadGateway("feature source failed", err)
}
