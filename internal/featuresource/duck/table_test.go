package duck

import (
	"context"
	"database/sql"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-paser/internal/db"
	"github.com/joeblew999/plat-paser/internal/featuresource"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func segments() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, tc := range []struct {
		paser float64
		treat string
	}{{7, "CS"}, {3, "OL"}, {9, "CS"}} {
		f := geojson.NewFeature(orb.LineString{{-111.57, 40.13}, {-111.58 - float64(i)/100, 40.14}})
		f.Properties["OBJECTID"] = float64(i + 1)
		f.Properties["CURRENT_PASER"] = tc.paser
		f.Properties["REC_TREATMENT"] = tc.treat
		fc.Append(f)
	}
	return fc
}

func TestImportLoadQuery(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	n, err := Import(ctx, conn, "segments", segments())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, ImportDomain(ctx, conn, "segments", "REC_TREATMENT", []featuresource.CodedValue{
		{Code: "CS", Name: "Crack Seal"},
		{Code: "OL", Name: "Overlay"},
	}))

	src, err := Opener{DB: conn}.Open(ctx, "duckdb://segments")
	require.NoError(t, err)

	schema, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OBJECTID", schema.ObjectIDField)
	assert.Equal(t, "wkb", schema.GeometryType)
	f, ok := schema.Field("REC_TREATMENT")
	require.True(t, ok)
	require.NotNil(t, f.Domain)
	assert.Equal(t, "Crack Seal", f.Domain.CodedValues[0].Name)
	assert.Equal(t, "OL", f.Domain.CodedValues[1].Code)

	features, err := src.Query(ctx, featuresource.Query{
		Fields:         []string{"OBJECTID", "CURRENT_PASER"},
		ReturnGeometry: true,
		IDField:        "OBJECTID",
	})
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.Equal(t, "2", features[1].ID)
	assert.Equal(t, 3.0, features[1].Properties["CURRENT_PASER"])
	assert.NotContains(t, features[1].Properties, "REC_TREATMENT")
	_, isLine := features[0].Geometry.(orb.LineString)
	assert.True(t, isLine)

	count, err := Count(ctx, conn, "segments")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestLoadMissingTable(t *testing.T) {
	src, err := Opener{DB: openTestDB(t)}.Open(context.Background(), "duckdb://nope")
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.ErrorIs(t, err, featuresource.ErrSchemaLoad)
}

func TestOpenRejectsBadNames(t *testing.T) {
	o := Opener{}
	_, err := o.Open(context.Background(), "duckdb://x; DROP TABLE y")
	assert.Error(t, err)
	_, err = o.Open(context.Background(), "https://example.com/0")
	assert.ErrorIs(t, err, featuresource.ErrUnsupportedURL)
}

func TestQueryRejectsBadColumns(t *testing.T) {
	src := &Table{db: openTestDB(t), name: "segments"}
	_, err := src.Query(context.Background(), featuresource.Query{Fields: []string{"a b"}})
	assert.Error(t, err)
}

func TestParseDomain(t *testing.T) {
	field, values, err := ParseDomain("REC_TREATMENT=CS:Crack Seal, OL:Overlay")
	require.NoError(t, err)
	assert.Equal(t, "REC_TREATMENT", field)
	assert.Equal(t, []featuresource.CodedValue{
		{Code: "CS", Name: "Crack Seal"},
		{Code: "OL", Name: "Overlay"},
	}, values)

	for _, bad := range []string{"REC_TREATMENT", "bad field=CS:x", "F=CS", "F=:x", "F="} {
		_, _, err := ParseDomain(bad)
		assert.Error(t, err, bad)
	}
}
