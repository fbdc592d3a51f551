package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-paser/internal/db"
	"github.com/joeblew999/plat-paser/internal/featuresource/duck"
)

// DBHandler lists the local feature tables.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler.
func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("datasets"))
}

// TableInfo is one table usable as a feature source.
type TableInfo struct {
	Name     string `json:"name" doc:"Table name" example:"paser"`
	URL      string `json:"url" doc:"Dataset URL for this table" example:"duckdb://paser"`
	Features int64  `json:"features" doc:"Row count"`
	Geometry bool   `json:"geometry" doc:"Whether the table has a geometry column"`
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []TableInfo `json:"tables" doc:"Local feature tables"`
	}
}

// ListTables returns the DuckDB tables that can back a dataset.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT table_name, bool_or(column_name = ?)
		FROM information_schema.columns
		WHERE table_schema = 'main' AND table_name <> ?
		GROUP BY table_name
		ORDER BY table_name`, duck.GeometryColumn, db.DomainsTable)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	tables := []TableInfo{}
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Name, &t.Geometry); err != nil {
			return nil, huma.Error500InternalServerError("Failed to list tables", err)
		}
		t.URL = duck.Scheme + "://" + t.Name
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}

	for i := range tables {
		count, err := duck.Count(ctx, h.db, tables[i].Name)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to count features", err)
		}
		tables[i].Features = count
	}

	out := &TablesOutput{}
	out.Body.Tables = tables
	return out, nil
}
