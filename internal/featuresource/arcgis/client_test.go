package arcgis

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-paser/internal/featuresource"
)

const layerJSON = `{
  "name": "Treatment",
  "geometryType": "esriGeometryPolyline",
  "objectIdField": "OBJECTID",
  "fields": [
    {"name": "OBJECTID", "alias": "Object ID", "type": "esriFieldTypeOID"},
    {"name": "REC_TREATMENT", "alias": "Treatment", "type": "esriFieldTypeString",
     "domain": {"type": "codedValue", "name": "Treatments",
       "codedValues": [{"name": "Crack Seal", "code": "CS"}, {"name": "Overlay", "code": "OL"}]}},
    {"name": "YEAR", "type": "esriFieldTypeSmallInteger",
     "domain": {"type": "codedValue", "codedValues": [{"name": "Twenty", "code": 2020}]}}
  ]
}`

func testClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.Client(), time.Minute, logrus.NewEntry(logrus.New()))
	t.Cleanup(c.Close)
	return c, srv
}

func TestLoadParsesSchemaAndCaches(t *testing.T) {
	var hits atomic.Int32
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/FeatureServer/1", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		fmt.Fprint(w, layerJSON)
	}))

	src, err := c.Open(context.Background(), srv.URL+"/FeatureServer/1/")
	require.NoError(t, err)

	schema, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Treatment", schema.Name)
	assert.Equal(t, "OBJECTID", schema.ObjectIDField)

	f, ok := schema.Field("REC_TREATMENT")
	require.True(t, ok)
	require.NotNil(t, f.Domain)
	assert.Equal(t, []featuresource.CodedValue{
		{Code: "CS", Name: "Crack Seal"},
		{Code: "OL", Name: "Overlay"},
	}, f.Domain.CodedValues)

	year, _ := schema.Field("YEAR")
	assert.Equal(t, "2020", year.Domain.CodedValues[0].Code)

	_, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"garbage", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "<html>") }},
		{"service error", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"error":{"code":499,"message":"Token Required"}}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := testClient(t, tt.h)
			src, err := c.Open(context.Background(), srv.URL+"/0")
			require.NoError(t, err)
			_, err = src.Load(context.Background())
			assert.ErrorIs(t, err, featuresource.ErrSchemaLoad)
		})
	}
}

func TestOpenRejectsOtherSchemes(t *testing.T) {
	c := NewClient(nil, time.Minute, logrus.NewEntry(logrus.New()))
	defer c.Close()
	_, err := c.Open(context.Background(), "duckdb://segments")
	assert.ErrorIs(t, err, featuresource.ErrUnsupportedURL)
}

func TestQueryPagesAndReadsIDs(t *testing.T) {
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/0/query", r.URL.Path)
		assert.Equal(t, "1=1", q.Get("where"))
		assert.Equal(t, "OBJECTID,CURRENT_PASER", q.Get("outFields"))
		assert.Equal(t, "geojson", q.Get("f"))

		offset, _ := strconv.Atoi(q.Get("resultOffset"))
		switch offset {
		case 0:
			fmt.Fprint(w, `{"type":"FeatureCollection","properties":{"exceededTransferLimit":true},"features":[
				{"type":"Feature","id":1,"geometry":{"type":"LineString","coordinates":[[-111.5,40.1],[-111.6,40.2]]},
				 "properties":{"OBJECTID":1,"CURRENT_PASER":7}}]}`)
		case 1:
			fmt.Fprint(w, `{"type":"FeatureCollection","features":[
				{"type":"Feature","geometry":null,"properties":{"OBJECTID":2,"CURRENT_PASER":3}}]}`)
		default:
			t.Errorf("unexpected offset %d", offset)
		}
	}))
	c.PageSize = 1

	src, err := c.Open(context.Background(), srv.URL+"/0")
	require.NoError(t, err)

	features, err := src.Query(context.Background(), featuresource.Query{
		Fields:         []string{"OBJECTID", "CURRENT_PASER"},
		ReturnGeometry: true,
		IDField:        "OBJECTID",
	})
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, "1", features[0].ID)
	assert.Equal(t, 7.0, features[0].Properties["CURRENT_PASER"])
	line, ok := features[0].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.Point{-111.5, 40.1}, line[0])

	assert.Equal(t, "2", features[1].ID)
	assert.Nil(t, features[1].Geometry)
}

func TestQueryServiceError(t *testing.T) {
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"code":400,"message":"Invalid query","details":["bad field"]}}`)
	}))
	src, err := c.Open(context.Background(), srv.URL+"/0")
	require.NoError(t, err)
	_, err = src.Query(context.Background(), featuresource.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad field")
}
