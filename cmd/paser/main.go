package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-paser/internal/api"
	"github.com/joeblew999/plat-paser/internal/dataset"
	paserlog "github.com/joeblew999/plat-paser/internal/log"
	"github.com/joeblew999/plat-paser/internal/mapview"
	"github.com/joeblew999/plat-paser/internal/server"
)

// Options defines all CLI flags and env vars for the paser server.
// Flags: --host, --port, --data-dir, --web-dir, --datasets, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir      string `doc:"Directory for the local feature database" default:".data"`
	WebDir       string `doc:"Path to web/ directory, the embedded copy is used when missing" default:"web"`
	Datasets     string `doc:"YAML file overriding the built-in dataset descriptors"`
	ConditionURL string `doc:"Condition layer URL (FeatureServer layer or duckdb://table)"`
	TreatmentURL string `doc:"Treatment layer URL (FeatureServer layer or duckdb://table)"`
	Basemap      string `doc:"Basemap style" default:"streets"`
	Center       string `doc:"Initial map centre as lon,lat" default:"-111.576820,40.136589"`
	Zoom         int    `doc:"Initial zoom level" default:"13"`
	SessionTTL   string `doc:"Idle time before a session is torn down" default:"30m"`
	QueryTimeout string `doc:"Timeout for one feature query" default:"30s"`
	LogLevel     string `doc:"Log level: debug, info, warn, error" default:"info"`
	LogFormat    string `doc:"Log format: text or json" default:"text"`
}

func parseCenter(s string) (orb.Point, error) {
	lon, lat, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("center %q: want lon,lat", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("center longitude: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("center latitude: %w", err)
	}
	return orb.Point{x, y}, nil
}

func serverConfig(opts *Options, logger *logrus.Logger) (server.Config, error) {
	pair, err := dataset.Load(opts.Datasets)
	if err != nil {
		return server.Config{}, err
	}
	pair = pair.WithURLs(opts.ConditionURL, opts.TreatmentURL)

	view := mapview.DefaultConfig()
	view.Basemap = opts.Basemap
	view.Zoom = float64(opts.Zoom)
	if view.Center, err = parseCenter(opts.Center); err != nil {
		return server.Config{}, err
	}

	sessionTTL, err := time.ParseDuration(opts.SessionTTL)
	if err != nil {
		return server.Config{}, fmt.Errorf("session-ttl: %w", err)
	}
	queryTimeout, err := time.ParseDuration(opts.QueryTimeout)
	if err != nil {
		return server.Config{}, fmt.Errorf("query-timeout: %w", err)
	}

	return server.Config{
		Host:         opts.Host,
		Port:         fmt.Sprintf("%d", opts.Port),
		DataDir:      opts.DataDir,
		WebDir:       opts.WebDir,
		Datasets:     pair,
		View:         view,
		SessionTTL:   sessionTTL,
		QueryTimeout: queryTimeout,
		Log:          logrus.NewEntry(logger),
	}, nil
}

func newServer(opts *Options) (*server.Server, *logrus.Logger, error) {
	logger, err := paserlog.NewLogger(opts.LogLevel, opts.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := serverConfig(opts, logger)
	if err != nil {
		return nil, nil, err
	}
	srv, err := server.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return srv, logger, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var (
			srv        *server.Server
			httpServer *http.Server
		)

		hooks.OnStart(func() {
			var (
				logger *logrus.Logger
				err    error
			)
			srv, logger, err = newServer(opts)
			if err != nil {
				fail("Startup error: %v", err)
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-paser API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Fatal("server error")
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
			srv.Close()
		})
	})

	cli.Root().Use = "paser"
	cli.Root().Short = "Pavement condition and treatment map symbology service"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, _, err := newServer(opts)
			if err != nil {
				fail("Error creating server: %v", err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fail("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// import subcommand: load GeoJSON into the local feature database
	importCmd := &cobra.Command{
		Use:   "import <file.geojson>",
		Short: "Load a GeoJSON FeatureCollection into a duckdb:// table",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			table, _ := cmd.Flags().GetString("table")
			domains, _ := cmd.Flags().GetStringArray("domain")
			n, err := importFile(context.Background(), opts.DataDir, args[0], table, domains)
			if err != nil {
				fail("Import failed: %v", err)
			}
			fmt.Printf("Imported %d features into duckdb://%s\n", n, table)
		}),
	}
	importCmd.Flags().StringP("table", "t", "paser", "Table to create or replace")
	importCmd.Flags().StringArrayP("domain", "d", nil, "Coded-value domain as FIELD=CODE:Name,CODE:Name (repeatable)")
	cli.Root().AddCommand(importCmd)

	cli.Run()
}
