package duck

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-paser/internal/db"
	"github.com/joeblew999/plat-paser/internal/featuresource"
)

// Import replaces table with the features of fc. Columns are DOUBLE when
// every non-null value is numeric, BOOLEAN when every value is boolean,
// and VARCHAR otherwise.
func Import(ctx context.Context, conn *sql.DB, table string, fc *geojson.FeatureCollection) (int, error) {
	if !identRe.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}

	types := columnTypes(fc)
	names := make([]string, 0, len(types))
	for name := range types {
		if !identRe.MatchString(name) || name == GeometryColumn {
			return 0, fmt.Errorf("invalid property name %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]string, 0, len(names)+1)
	for _, n := range names {
		defs = append(defs, quote(n)+" "+types[n])
	}
	defs = append(defs, quote(GeometryColumn)+" BLOB")

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "CREATE OR REPLACE TABLE "+quote(table)+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return 0, fmt.Errorf("creating %s: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)+1), ", ")
	quoted := make([]string, 0, len(names)+1)
	for _, n := range names {
		quoted = append(quoted, quote(n))
	}
	quoted = append(quoted, quote(GeometryColumn))
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quote(table)+" ("+strings.Join(quoted, ", ")+") VALUES ("+placeholders+")")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, f := range fc.Features {
		args := make([]any, 0, len(names)+1)
		for _, n := range names {
			args = append(args, columnValue(types[n], f.Properties[n]))
		}
		var geom []byte
		if f.Geometry != nil {
			if geom, err = wkb.Marshal(f.Geometry); err != nil {
				return 0, fmt.Errorf("feature %d: encoding geometry: %w", i, err)
			}
		}
		args = append(args, geom)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("feature %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(fc.Features), nil
}

// ImportDomain replaces the coded-value domain of one field.
func ImportDomain(ctx context.Context, conn *sql.DB, table, field string, values []featuresource.CodedValue) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+db.DomainsTable+" WHERE table_name = ? AND field_name = ?", table, field); err != nil {
		return err
	}
	for i, cv := range values {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+db.DomainsTable+" (table_name, field_name, code, name, ordinal) VALUES (?, ?, ?, ?, ?)",
			table, field, cv.Code, cv.Name, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ParseDomain parses a domain flag of the form FIELD=CODE:Name,CODE:Name.
func ParseDomain(spec string) (string, []featuresource.CodedValue, error) {
	field, list, ok := strings.Cut(spec, "=")
	if !ok || !identRe.MatchString(field) || list == "" {
		return "", nil, fmt.Errorf("domain %q: want FIELD=CODE:Name,...", spec)
	}
	var values []featuresource.CodedValue
	for _, item := range strings.Split(list, ",") {
		code, name, ok := strings.Cut(item, ":")
		code = strings.TrimSpace(code)
		if !ok || code == "" {
			return "", nil, fmt.Errorf("domain %q: bad entry %q", spec, item)
		}
		values = append(values, featuresource.CodedValue{Code: code, Name: strings.TrimSpace(name)})
	}
	return field, values, nil
}

func columnTypes(fc *geojson.FeatureCollection) map[string]string {
	types := make(map[string]string)
	for _, f := range fc.Features {
		for k, v := range f.Properties {
			var t string
			switch v.(type) {
			case nil:
				if _, ok := types[k]; !ok {
					types[k] = ""
				}
				continue
			case float64:
				t = "DOUBLE"
			case bool:
				t = "BOOLEAN"
			default:
				t = "VARCHAR"
			}
			if prev, ok := types[k]; ok && prev != "" && prev != t {
				t = "VARCHAR"
			}
			types[k] = t
		}
	}
	for k, t := range types {
		if t == "" {
			types[k] = "VARCHAR"
		}
	}
	return types
}

func columnValue(typ string, v any) any {
	if v == nil {
		return nil
	}
	if typ == "VARCHAR" {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return v
}
