package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Endpoint describes a route on the debug page
type Endpoint struct {
	Method      string
	Path        string
	Description string
}

var endpoints = []Endpoint{
	{"GET", "/api/animal-list", "distinct animals"},
	{"GET", "/api/location-list", "distinct locations"},
	{"GET", "/api/map-data", "map points, filtered by animal_type, start_date, end_date"},
	{"GET", "/api/location-detail", "records at a point or named location"},
	{"GET", "/api/heatmap-data", "detections per camera and animal"},
	{"GET", "/api/sensor-locations", "cameras and detection totals"},
	{"GET", "/api/animal-stats", "most detected animals"},
	{"GET", "/api/point-details", "newest detections at lat, lng"},
	{"GET", "/api/heatmap-by-animal/{animal}", "heatmap for one animal"},
	{"GET", "/api/chart-data", "top animals, optionally for the last days"},
	{"GET", "/api/location-data", "top locations"},
	{"GET", "/api/timeseries-data", "quarterly series"},
	{"GET", "/api/behavior-list", "distinct behaviors"},
	{"GET", "/api/activity-data", "hourly activity"},
	{"POST", "/exec-sql", "store one annotation record"},
	{"POST", "/query-sql", "run a read-only SELECT"},
	{"GET", "/healthz", "database health"},
	{"GET", "/metrics", "Prometheus metrics"},
}

var debugPage = template.Must(template.New("debug").Parse(`<!DOCTYPE html>
<html>
<head><title>camtrap debug</title></head>
<body>
<h1>camtrap {{.Version}}</h1>
<p>Uptime: {{.Uptime}}</p>
<p>Records: {{if .CountErr}}unavailable ({{.CountErr}}){{else}}{{.Records}}{{end}}</p>
<h2>Endpoints</h2>
<ul>
{{range .Endpoints}}<li><code>{{.Method}} {{.Path}}</code> {{.Description}}</li>
{{end}}</ul>
</body>
</html>
`))

// Debug handles GET /debug
func (h *Handlers) Debug(version string, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := struct {
			Version   string
			Uptime    string
			Records   int64
			CountErr  string
			Endpoints []Endpoint
		}{
			Version:   version,
			Uptime:    time.Since(started).Round(time.Second).String(),
			Endpoints: endpoints,
		}
		n, err := h.store.CountDetections(r.Context())
		if err != nil {
			data.CountErr = err.Error()
		}
		data.Records = n

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := debugPage.Execute(w, data); err != nil {
			h.log.Error("failed to render debug page", zap.Error(err))
		}
	}
}

// Healthz handles GET /healthz
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.PingContext(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
