package main

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-paser/internal/db"
	"github.com/joeblew999/plat-paser/internal/featuresource/duck"
)

// importFile loads a GeoJSON file into table, then records the given
// coded-value domains for it.
func importFile(ctx context.Context, dataDir, path, table string, domains []string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", path, err)
	}

	conn, err := db.Open(ctx, db.Config{DataDir: dataDir})
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	n, err := duck.Import(ctx, conn, table, fc)
	if err != nil {
		return 0, err
	}
	for _, spec := range domains {
		field, values, err := duck.ParseDomain(spec)
		if err != nil {
			return n, err
		}
		if err := duck.ImportDomain(ctx, conn, table, field, values); err != nil {
			return n, err
		}
	}
	return n, nil
}
