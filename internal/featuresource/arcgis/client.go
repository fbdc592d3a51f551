// Package arcgis reads ArcGIS REST FeatureServer layers.
//
// Schema comes from the layer resource (?f=json), features from the query
// operation with f=geojson so geometries decode straight into orb types.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-paser/internal/featuresource"
)

const (
	defaultPageSize = 2000
	maxPages        = 50
)

// Client opens FeatureServer layers. Layer schemas are cached per URL and
// shared by every session.
type Client struct {
	http     *http.Client
	schemas  *ttlcache.Cache[string, featuresource.Schema]
	log      *logrus.Entry
	PageSize int
}

// NewClient creates a client. schemaTTL bounds how long a layer schema is
// reused before it is fetched again.
func NewClient(httpClient *http.Client, schemaTTL time.Duration, log *logrus.Entry) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	cache := ttlcache.New[string, featuresource.Schema](
		ttlcache.WithTTL[string, featuresource.Schema](schemaTTL),
	)
	go cache.Start()
	return &Client{http: httpClient, schemas: cache, log: log, PageSize: defaultPageSize}
}

// Close stops the schema cache janitor.
func (c *Client) Close() {
	c.schemas.Stop()
}

// Open implements featuresource.Opener.
func (c *Client) Open(ctx context.Context, layerURL string) (featuresource.Source, error) {
	u, err := url.Parse(layerURL)
	if err != nil {
		return nil, fmt.Errorf("parsing layer url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", featuresource.ErrUnsupportedURL, layerURL)
	}
	u.RawQuery = ""
	return &Layer{client: c, url: strings.TrimRight(u.String(), "/")}, nil
}

// Layer is one FeatureServer layer.
type Layer struct {
	client *Client
	url    string
}

// URL returns the layer resource URL.
func (l *Layer) URL() string { return l.url }

type serviceError struct {
	Error *struct {
		Code    any      `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func (e serviceError) err() error {
	if e.Error == nil {
		return nil
	}
	msg := e.Error.Message
	if len(e.Error.Details) > 0 {
		msg += ": " + strings.Join(e.Error.Details, "; ")
	}
	return fmt.Errorf("arcgis error %v: %s", e.Error.Code, msg)
}

type layerInfo struct {
	serviceError
	Name          string `json:"name"`
	GeometryType  string `json:"geometryType"`
	ObjectIDField string `json:"objectIdField"`
	Fields        []struct {
		Name   string `json:"name"`
		Alias  string `json:"alias"`
		Type   string `json:"type"`
		Domain *struct {
			Type        string `json:"type"`
			Name        string `json:"name"`
			CodedValues []struct {
				Name string `json:"name"`
				Code any    `json:"code"`
			} `json:"codedValues"`
		} `json:"domain"`
	} `json:"fields"`
}

// Load fetches the layer schema, including coded-value domains.
func (l *Layer) Load(ctx context.Context) (featuresource.Schema, error) {
	if item := l.client.schemas.Get(l.url); item != nil {
		return item.Value(), nil
	}

	body, err := l.client.get(ctx, l.url, url.Values{"f": {"json"}})
	if err != nil {
		return featuresource.Schema{}, fmt.Errorf("%w: %v", featuresource.ErrSchemaLoad, err)
	}

	var info layerInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return featuresource.Schema{}, fmt.Errorf("%w: decoding layer info: %v", featuresource.ErrSchemaLoad, err)
	}
	if err := info.err(); err != nil {
		return featuresource.Schema{}, fmt.Errorf("%w: %v", featuresource.ErrSchemaLoad, err)
	}

	schema := featuresource.Schema{
		Name:          info.Name,
		GeometryType:  info.GeometryType,
		ObjectIDField: info.ObjectIDField,
		Fields:        make([]featuresource.Field, 0, len(info.Fields)),
	}
	for _, f := range info.Fields {
		field := featuresource.Field{Name: f.Name, Alias: f.Alias, Type: f.Type}
		if f.Domain != nil {
			d := &featuresource.Domain{Type: f.Domain.Type, Name: f.Domain.Name}
			for _, cv := range f.Domain.CodedValues {
				d.CodedValues = append(d.CodedValues, featuresource.CodedValue{
					Code: featuresource.IDString(cv.Code),
					Name: cv.Name,
				})
			}
			field.Domain = d
		}
		schema.Fields = append(schema.Fields, field)
	}

	l.client.schemas.Set(l.url, schema, ttlcache.DefaultTTL)
	return schema, nil
}

// Query returns every feature of the layer with the requested fields,
// following the service's transfer limit across pages.
func (l *Layer) Query(ctx context.Context, q featuresource.Query) ([]featuresource.Feature, error) {
	outFields := "*"
	if len(q.Fields) > 0 {
		outFields = strings.Join(q.Fields, ",")
	}

	var features []featuresource.Feature
	for page := 0; page < maxPages; page++ {
		params := url.Values{
			"where":             {"1=1"},
			"outFields":         {outFields},
			"returnGeometry":    {strconv.FormatBool(q.ReturnGeometry)},
			"outSR":             {"4326"},
			"resultOffset":      {strconv.Itoa(page * l.client.PageSize)},
			"resultRecordCount": {strconv.Itoa(l.client.PageSize)},
			"f":                 {"geojson"},
		}
		body, err := l.client.get(ctx, l.url+"/query", params)
		if err != nil {
			return nil, err
		}

		var se serviceError
		if err := json.Unmarshal(body, &se); err == nil && se.Error != nil {
			return nil, se.err()
		}

		fc, err := geojson.UnmarshalFeatureCollection(body)
		if err != nil {
			return nil, fmt.Errorf("decoding query result: %w", err)
		}
		for _, f := range fc.Features {
			features = append(features, toFeature(f, q))
		}

		if !exceededTransferLimit(fc) || len(fc.Features) == 0 {
			return features, nil
		}
	}

	l.client.log.WithField("url", l.url).Warnf("query stopped after %d pages", maxPages)
	return features, nil
}

// Close implements featuresource.Source. Layers hold no connections of
// their own.
func (l *Layer) Close() error { return nil }

func toFeature(f *geojson.Feature, q featuresource.Query) featuresource.Feature {
	id := featuresource.IDString(f.ID)
	if id == "" && q.IDField != "" {
		id = featuresource.IDString(f.Properties[q.IDField])
	}
	props := make(map[string]any, len(f.Properties))
	for k, v := range f.Properties {
		props[k] = v
	}
	out := featuresource.Feature{ID: id, Properties: props}
	if q.ReturnGeometry {
		out.Geometry = f.Geometry
	}
	return out
}

// exceededTransferLimit reads the flag ArcGIS adds to paged GeoJSON
// results, either top level or under "properties".
func exceededTransferLimit(fc *geojson.FeatureCollection) bool {
	if v, ok := fc.ExtraMembers["exceededTransferLimit"].(bool); ok {
		return v
	}
	if props, ok := fc.ExtraMembers["properties"].(map[string]any); ok {
		if v, ok := props["exceededTransferLimit"].(bool); ok {
			return v
		}
	}
	return false
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", endpoint, resp.StatusCode)
	}
	return body, nil
}
