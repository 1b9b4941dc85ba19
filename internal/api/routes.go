package api

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"camtrap/internal/cache"
	"camtrap/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Cache buster timestamp (set at startup)
var cacheBuster = strconv.FormatInt(time.Now().Unix(), 10)

// Options wires the router's dependencies
type Options struct {
	Store     Store
	Cache     cache.Cache
	Metrics   *Metrics
	Logger    *zap.Logger
	Auth      config.AuthConfig
	StaticDir string
	Version   string
}

// NewRouter creates and configures the Chi router
func NewRouter(opts Options) http.Handler {
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(RequestID)
	r.Use(Logger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(opts.Metrics.Middleware)

	h := NewHandlers(opts.Store, opts.Cache, opts.Metrics, opts.Logger)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(Cached(opts.Cache, opts.Metrics, opts.Logger))

		r.Get("/animal-list", h.AnimalList)
		r.Get("/location-list", h.LocationList)
		r.Get("/map-data", h.MapData)
		r.Get("/location-detail", h.LocationDetail)

		r.Get("/heatmap-data", h.HeatmapData)
		r.Get("/sensor-locations", h.SensorLocations)
		r.Get("/animal-stats", h.AnimalStats)
		r.Get("/point-details", h.PointDetails)
		r.Get("/heatmap-by-animal/{animal}", h.HeatmapByAnimal)

		r.Get("/chart-data", h.ChartData)
		r.Get("/location-data", h.LocationData)
		r.Get("/timeseries-data", h.TimeSeriesData)
		r.Get("/behavior-list", h.BehaviorList)
		r.Get("/activity-data", h.ActivityData)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireToken(opts.Auth))
		r.Post("/exec-sql", h.ExecSQL)
		r.Post("/query-sql", h.QuerySQL)
	})

	r.Get("/debug", h.Debug(opts.Version, time.Now()))
	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", opts.Metrics.Handler())

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err == nil {
			mountStatic(r, opts.StaticDir)
		} else {
			opts.Logger.Warn("static directory not found, frontend disabled", zap.String("dir", opts.StaticDir))
		}
	}

	return r
}

// mountStatic serves the dashboards. index.html is rendered as a template
// so asset URLs can carry the cache buster.
func mountStatic(r chi.Router, staticDir string) {
	fileServer := http.FileServer(http.Dir(staticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	indexPath := filepath.Join(staticDir, "index.html")
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := template.ParseFiles(indexPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		tmpl.Execute(w, map[string]string{
			"V": cacheBuster,
		})
	})
}
