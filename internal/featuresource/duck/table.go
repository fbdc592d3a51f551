// Package duck serves feature layers from local DuckDB tables, addressed
// as duckdb://<table>.
//
// A table holds one row per feature: attribute columns plus a geom BLOB
// column of WKB. Coded-value domains live in the coded_value_domains table.
package duck

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/paulmach/orb/encoding/wkb"

	"github.com/joeblew999/plat-paser/internal/db"
	"github.com/joeblew999/plat-paser/internal/featuresource"
)

// Scheme is the URL scheme handled by Opener.
const Scheme = "duckdb"

// GeometryColumn holds WKB geometry.
const GeometryColumn = "geom"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Opener opens tables of one database.
type Opener struct {
	DB *sql.DB
}

// Open implements featuresource.Opener.
func (o Opener) Open(_ context.Context, url string) (featuresource.Source, error) {
	name, ok := strings.CutPrefix(url, Scheme+"://")
	if !ok {
		return nil, fmt.Errorf("%w: %q", featuresource.ErrUnsupportedURL, url)
	}
	name = strings.Trim(name, "/")
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	return &Table{db: o.DB, name: name}, nil
}

// Table is one local feature table.
type Table struct {
	db   *sql.DB
	name string
}

// Load reads the table's columns and coded-value domains.
func (t *Table) Load(ctx context.Context) (featuresource.Schema, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, t.name)
	if err != nil {
		return featuresource.Schema{}, fmt.Errorf("%w: %v", featuresource.ErrSchemaLoad, err)
	}
	defer rows.Close()

	schema := featuresource.Schema{Name: t.name}
	for rows.Next() {
		var f featuresource.Field
		if err := rows.Scan(&f.Name, &f.Type); err != nil {
			return featuresource.Schema{}, fmt.Errorf("%w: %v", featuresource.ErrSchemaLoad, err)
		}
		if f.Name == GeometryColumn {
			schema.GeometryType = "wkb"
			continue
		}
		if strings.EqualFold(f.Name, "OBJECTID") {
			schema.ObjectIDField = f.Name
		}
		schema.Fields = append(schema.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return featuresource.Schema{}, fmt.Errorf("%w: %v", featuresource.ErrSchemaLoad, err)
	}
	if len(schema.Fields) == 0 {
		return featuresource.Schema{}, fmt.Errorf("%w: table %q not found", featuresource.ErrSchemaLoad, t.name)
	}

	domains, err := t.domains(ctx)
	if err != nil {
		return featuresource.Schema{}, fmt.Errorf("%w: %v", featuresource.ErrSchemaLoad, err)
	}
	for i, f := range schema.Fields {
		if cv, ok := domains[strings.ToLower(f.Name)]; ok {
			schema.Fields[i].Domain = &featuresource.Domain{Type: "codedValue", CodedValues: cv}
		}
	}
	return schema, nil
}

func (t *Table) domains(ctx context.Context) (map[string][]featuresource.CodedValue, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT field_name, code, name
		FROM `+db.DomainsTable+`
		WHERE table_name = ?
		ORDER BY field_name, ordinal`, t.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]featuresource.CodedValue)
	for rows.Next() {
		var field string
		var cv featuresource.CodedValue
		if err := rows.Scan(&field, &cv.Code, &cv.Name); err != nil {
			return nil, err
		}
		key := strings.ToLower(field)
		out[key] = append(out[key], cv)
	}
	return out, rows.Err()
}

// Query selects the requested columns of every row, ordered by the id
// field when one is given.
func (t *Table) Query(ctx context.Context, q featuresource.Query) ([]featuresource.Feature, error) {
	cols := make([]string, 0, len(q.Fields)+1)
	for _, f := range q.Fields {
		if !identRe.MatchString(f) {
			return nil, fmt.Errorf("invalid column name %q", f)
		}
		cols = append(cols, quote(f))
	}
	if len(cols) == 0 {
		cols = append(cols, "*")
	}
	if q.ReturnGeometry {
		cols = append(cols, quote(GeometryColumn))
	}

	stmt := "SELECT " + strings.Join(cols, ", ") + " FROM " + quote(t.name)
	if q.IDField != "" && identRe.MatchString(q.IDField) {
		stmt += " ORDER BY " + quote(q.IDField)
	}

	rows, err := t.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.name, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var features []featuresource.Feature
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.name, err)
		}

		f := featuresource.Feature{Properties: make(map[string]any, len(names))}
		for i, name := range names {
			if q.ReturnGeometry && name == GeometryColumn {
				if b, ok := values[i].([]byte); ok && len(b) > 0 {
					g, err := wkb.Unmarshal(b)
					if err != nil {
						return nil, fmt.Errorf("decoding geometry: %w", err)
					}
					f.Geometry = g
				}
				continue
			}
			f.Properties[name] = values[i]
		}
		if q.IDField != "" {
			f.ID = featuresource.IDString(f.Properties[q.IDField])
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// Close implements featuresource.Source. The database is shared and
// closed by its owner.
func (t *Table) Close() error { return nil }

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Count returns the number of rows of a table.
func Count(ctx context.Context, conn *sql.DB, table string) (int64, error) {
	if !identRe.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	var n int64
	err := conn.QueryRowContext(ctx, "SELECT count(*) FROM "+quote(table)).Scan(&n)
	return n, err
}
