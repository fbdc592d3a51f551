package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/plat-paser/internal/api"
	"github.com/joeblew999/plat-paser/internal/api/ui"
	"github.com/joeblew999/plat-paser/internal/controller"
	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/db"
	"github.com/joeblew999/plat-paser/internal/featuresource"
	"github.com/joeblew999/plat-paser/internal/featuresource/arcgis"
	"github.com/joeblew999/plat-paser/internal/featuresource/duck"
	"github.com/joeblew999/plat-paser/internal/humastar"
	"github.com/joeblew999/plat-paser/internal/mapview"
	"github.com/joeblew999/plat-paser/internal/session"
	"github.com/joeblew999/plat-paser/internal/templates"
	"github.com/joeblew999/plat-paser/web"
)

// Config holds the server configuration.
type Config struct {
	Host         string
	Port         string
	DataDir      string
	WebDir       string // Path to web/ directory; the embedded copy is used when empty or missing
	Datasets     dataset.Pair
	View         mapview.Config
	SessionTTL   time.Duration
	QueryTimeout time.Duration
	SchemaTTL    time.Duration
	Log          *logrus.Entry
}

// Server is the paser HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	arcgis   *arcgis.Client
	sessions *session.Manager
	renderer *templates.Renderer
	log      *logrus.Entry
}

// New creates a new paser server.
func New(cfg Config) (*Server, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.SchemaTTL <= 0 {
		cfg.SchemaTTL = 10 * time.Minute
	}
	if err := cfg.Datasets.Validate(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-paser API", "1.0.0")
	humaConfig.Info.Description = "Pavement condition and treatment symbology. Each session owns one map controller: " +
		"toggle datasets, filter the PASER range or treatment category, read the styled features and attribute table."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer())

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		arcgis:  arcgis.NewClient(nil, cfg.SchemaTTL, cfg.Log.WithField("component", "arcgis")),
		log:     cfg.Log,
	}

	renderer, err := templates.New(s.webFS())
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	s.renderer = renderer

	// Initialize DuckDB connection for duckdb:// datasets
	conn, err := db.Get(db.Config{
		DataDir: cfg.DataDir,
		DBName:  "paser",
	})
	if err != nil {
		s.log.WithError(err).Warn("local feature database unavailable")
	} else {
		s.db = conn
	}

	sources := featuresource.Mux{"http": s.arcgis, "https": s.arcgis}
	if s.db != nil {
		sources[duck.Scheme] = duck.Opener{DB: s.db}
	}
	s.sessions = session.NewManager(cfg.SessionTTL, func(id string) *controller.Controller {
		return controller.New(controller.Config{
			Session:      id,
			Datasets:     cfg.Datasets,
			Opener:       sources,
			View:         cfg.View,
			QueryTimeout: cfg.QueryTimeout,
			Log:          cfg.Log,
		})
	}, cfg.Log.WithField("component", "sessions"))

	s.routes()
	return s, nil
}

// webFS prefers the on-disk web directory so templates can be edited
// without rebuilding.
func (s *Server) webFS() fs.FS {
	if s.config.WebDir != "" {
		if _, err := os.Stat(filepath.Join(s.config.WebDir, "templates", "fragments")); err == nil {
			return os.DirFS(s.config.WebDir)
		}
	}
	return web.FS
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Close ends every session and closes server resources.
func (s *Server) Close() error {
	s.sessions.Close()
	s.arcgis.Close()
	return db.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(&api.Services{
		Sessions: s.sessions,
		Datasets: s.config.Datasets,
	}))
	api.NewInfoHandler(s.config.DataDir, s.db != nil, s.config.Datasets).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	viewer := ui.NewHandler(s.sessions, s.config.Datasets, s.renderer, s.log.WithField("component", "ui"))
	viewer.RegisterRoutes(s.humaAPI)

	humastar.AutoLinks(s.humaAPI)

	s.mux.Handle("/metrics", promhttp.Handler())

	// Page routes
	s.mux.HandleFunc("/viewer", viewer.Page)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range humastar.RootLinks() {
		w.Header().Add("Link", link)
	}
	w.Header().Add("Link", `</viewer>; rel="alternate"; type="text/html"`)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service":  "plat-paser",
		"status":   "running",
		"sessions": s.sessions.Len(),
	})
}
