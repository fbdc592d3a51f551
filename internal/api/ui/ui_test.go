package ui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-paser/internal/controller"
	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/featuresource"
	"github.com/joeblew999/plat-paser/internal/featuresource/featuretest"
	"github.com/joeblew999/plat-paser/internal/log"
	"github.com/joeblew999/plat-paser/internal/mapview"
	"github.com/joeblew999/plat-paser/internal/session"
	"github.com/joeblew999/plat-paser/internal/templates"
	"github.com/joeblew999/plat-paser/web"
)

type viewer struct {
	mux      *http.ServeMux
	sessions *session.Manager
}

func newViewer(t *testing.T) *viewer {
	t.Helper()
	return newViewerTTL(t, time.Minute)
}

func newViewerTTL(t *testing.T, ttl time.Duration) *viewer {
	t.Helper()
	pair := dataset.Defaults()
	opener := featuretest.Opener(map[string]*featuretest.Source{
		pair.Condition.URL: {Features: featuretest.Segments("CURRENT_PASER", 7.0, 3.0)},
		pair.Treatment.URL: {
			Schema: featuresource.Schema{Fields: []featuresource.Field{
				featuretest.CodedField("REC_TREATMENT", "CS", "Crack Seal", "OL", "Overlay"),
			}},
			Features: featuretest.Segments("REC_TREATMENT", "CS", "OL"),
		},
	})
	sessions := session.NewManager(ttl, func(id string) *controller.Controller {
		return controller.New(controller.Config{
			Session:  id,
			Datasets: pair,
			Opener:   opener,
			View:     mapview.DefaultConfig(),
			Log:      log.Discard(),
		})
	}, log.Discard())
	t.Cleanup(sessions.Close)

	renderer, err := templates.New(web.FS)
	require.NoError(t, err)

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test", "1.0.0"))
	h := NewHandler(sessions, pair, renderer, log.Discard())
	h.RegisterRoutes(api)
	mux.HandleFunc("/viewer", h.Page)
	return &viewer{mux: mux, sessions: sessions}
}

func (v *viewer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	v.mux.ServeHTTP(rec, req)
	return rec
}

func (v *viewer) stream(ctx context.Context, id string) <-chan *httptest.ResponseRecorder {
	done := make(chan *httptest.ResponseRecorder, 1)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ui/"+id+"/events", nil).WithContext(ctx)
	go func() {
		rec := httptest.NewRecorder()
		v.mux.ServeHTTP(rec, req)
		done <- rec
	}()
	return done
}

func (v *viewer) session(t *testing.T) *controller.Controller {
	t.Helper()
	c, err := v.sessions.Create(context.Background())
	require.NoError(t, err)
	return c
}

func TestPageCreatesSession(t *testing.T) {
	v := newViewer(t)
	rec := v.do(http.MethodGet, "/viewer", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, v.sessions.Len())

	body := rec.Body.String()
	assert.Contains(t, body, `id="widget"`)
	assert.Contains(t, body, "Pavement Condition (PASER)")
	assert.Contains(t, body, "1-2 (Poor)")
	assert.Contains(t, body, `id="viewDiv"`)
	assert.Contains(t, body, "/events")
}

func TestToggleReplySyncsSignals(t *testing.T) {
	v := newViewer(t)
	c := v.session(t)

	rec := v.do(http.MethodPost, "/api/v1/ui/"+c.ID()+"/toggle", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "datastar-patch-signals")

	s, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, dataset.Discrete, s.Filter.Active)
}

func TestRangeAppliesOnlyTheChangedBound(t *testing.T) {
	v := newViewer(t)
	c := v.session(t)

	rec := v.do(http.MethodPost, "/api/v1/ui/"+c.ID()+"/range", `{"rangemin":8,"rangemax":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = v.do(http.MethodPost, "/api/v1/ui/"+c.ID()+"/range", `{"rangemin":8,"rangemax":"6"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 6, s.Filter.RangeMin)
	assert.Equal(t, 6, s.Filter.RangeMax)
	assert.Contains(t, rec.Body.String(), `"rangemin":6`)
}

func TestCategoryUnmatchedReportsError(t *testing.T) {
	v := newViewer(t)
	c := v.session(t)

	rec := v.do(http.MethodPost, "/api/v1/ui/"+c.ID()+"/category", `{"category":"ZZ"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "has no map style")
	assert.Contains(t, rec.Body.String(), `"category":"Show All"`)

	rec = v.do(http.MethodPost, "/api/v1/ui/"+c.ID()+"/category", `{"category":"OL"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	s, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "OL", s.Filter.Category)
}

func TestActionOnUnknownSession(t *testing.T) {
	v := newViewer(t)
	rec := v.do(http.MethodPost, "/api/v1/ui/nope/toggle", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsStreamUntilSessionEnds(t *testing.T) {
	v := newViewer(t)
	c := v.session(t)

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- v.do(http.MethodGet, "/api/v1/ui/"+c.ID()+"/events", "") }()

	time.Sleep(100 * time.Millisecond)
	_, err := c.SelectCategory("CS")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, v.sessions.Delete(c.ID()))

	var rec *httptest.ResponseRecorder
	select {
	case rec = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not end with the session")
	}
	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "#widget")
	assert.Contains(t, body, "map-state")
	assert.Contains(t, body, "Session ended")
}

func TestOpenEventStreamKeepsSessionAlive(t *testing.T) {
	v := newViewerTTL(t, 300*time.Millisecond)
	c := v.session(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := v.stream(ctx, c.ID())

	time.Sleep(time.Second)
	_, err := c.Snapshot()
	require.NoError(t, err, "session expired while its stream was open")
	assert.Equal(t, 1, v.sessions.Len())

	cancel()
	var rec *httptest.ResponseRecorder
	select {
	case rec = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not end with its request")
	}
	assert.NotContains(t, rec.Body.String(), "Session ended")

	require.Eventually(t, func() bool {
		_, err := c.Snapshot()
		return errors.Is(err, controller.ErrClosed)
	}, 2*time.Second, 20*time.Millisecond)
}
