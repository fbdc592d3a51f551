package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-paser/internal/db"
	"github.com/joeblew999/plat-paser/internal/featuresource/duck"
)

func defaultOptions() *Options {
	return &Options{
		Host:         "0.0.0.0",
		Port:         8086,
		Basemap:      "streets",
		Center:       "-111.576820,40.136589",
		Zoom:         13,
		SessionTTL:   "30m",
		QueryTimeout: "30s",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

func TestParseCenter(t *testing.T) {
	p, err := parseCenter(" -111.5, 40.1 ")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{-111.5, 40.1}, p)

	for _, bad := range []string{"", "1", "x,2", "1,y"} {
		_, err := parseCenter(bad)
		assert.Error(t, err, bad)
	}
}

func TestServerConfig(t *testing.T) {
	opts := defaultOptions()
	opts.TreatmentURL = "duckdb://treatments"
	opts.Zoom = 15

	cfg, err := serverConfig(opts, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, "8086", cfg.Port)
	assert.Equal(t, "duckdb://treatments", cfg.Datasets.Treatment.URL)
	assert.Contains(t, cfg.Datasets.Condition.URL, "FeatureServer/0")
	assert.Equal(t, 15.0, cfg.View.Zoom)
	assert.Equal(t, orb.Point{-111.576820, 40.136589}, cfg.View.Center)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
}

func TestServerConfigRejectsBadDurations(t *testing.T) {
	opts := defaultOptions()
	opts.SessionTTL = "soon"
	_, err := serverConfig(opts, logrus.New())
	assert.ErrorContains(t, err, "session-ttl")
}

func TestImportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segments.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[-111.57,40.13],[-111.58,40.14]]},
		 "properties":{"OBJECTID":1,"REC_TREATMENT":"CS"}},
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[-111.58,40.14],[-111.59,40.15]]},
		 "properties":{"OBJECTID":2,"REC_TREATMENT":"OL"}}]}`), 0o644))

	ctx := context.Background()
	n, err := importFile(ctx, dir, path, "treatments", []string{"REC_TREATMENT=CS:Crack Seal,OL:Overlay"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	conn, err := db.Open(ctx, db.Config{DataDir: dir})
	require.NoError(t, err)
	defer conn.Close()

	src, err := duck.Opener{DB: conn}.Open(ctx, "duckdb://treatments")
	require.NoError(t, err)
	schema, err := src.Load(ctx)
	require.NoError(t, err)
	f, ok := schema.Field("REC_TREATMENT")
	require.True(t, ok)
	require.NotNil(t, f.Domain)
	assert.Len(t, f.Domain.CodedValues, 2)
}

func TestImportFileBadDomain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644))
	_, err := importFile(context.Background(), dir, path, "t", []string{"nope"})
	assert.Error(t, err)
}
