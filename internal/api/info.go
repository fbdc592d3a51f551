package api

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-paser/internal/dataset"
)

// Version is reported by /api/v1/info.
const Version = "0.1.0"

// InfoHandler describes the running service and where its data comes from.
type InfoHandler struct {
	dataDir  string
	dbOK     bool
	datasets dataset.Pair
}

func NewInfoHandler(dataDir string, dbOK bool, datasets dataset.Pair) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, datasets: datasets}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

// SourceInfo names the backend of one dataset.
type SourceInfo struct {
	Dataset dataset.Kind `json:"dataset" doc:"Dataset identifier"`
	Backend string       `json:"backend" enum:"arcgis,duckdb" doc:"Feature source backend"`
	URL     string       `json:"url" doc:"Feature source URL"`
}

type InfoBody struct {
	Name     string       `json:"name" doc:"Service name"`
	Version  string       `json:"version" doc:"Service version"`
	DataDir  string       `json:"data_dir" doc:"Directory holding the local feature database"`
	DB       bool         `json:"db" doc:"Whether the local feature database is available"`
	Sources  []SourceInfo `json:"sources" doc:"Configured feature sources"`
	Features []string     `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-paser",
		Version:  Version,
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Features: []string{"arcgis", "symbology", "sessions", "datastar"},
	}
	if h.dbOK {
		body.Features = append(body.Features, "duckdb")
	}
	for _, k := range []dataset.Kind{dataset.Continuous, dataset.Discrete} {
		d := h.datasets.Get(k)
		backend := "arcgis"
		if strings.HasPrefix(d.URL, "duckdb://") {
			backend = "duckdb"
		}
		body.Sources = append(body.Sources, SourceInfo{Dataset: k, Backend: backend, URL: d.URL})
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
