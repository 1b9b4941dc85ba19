package api

import (
	"net/http"

	"camtrap/internal/geo"

	"github.com/go-chi/chi/v5"
)

// HeatmapData handles GET /api/heatmap-data
func (h *Handlers) HeatmapData(w http.ResponseWriter, r *http.Request) {
	cells, err := h.store.HeatmapData(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": statusSuccess,
		"data":   cells,
		"count":  len(cells),
	})
}

// SensorLocations handles GET /api/sensor-locations
func (h *Handlers) SensorLocations(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.store.SensorLocations(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": statusSuccess,
		"data":   sensors,
		"count":  len(sensors),
	})
}

// AnimalStats handles GET /api/animal-stats
func (h *Handlers) AnimalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.AnimalStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": statusSuccess,
		"data":   stats,
		"count":  len(stats),
	})
}

// PointDetails handles GET /api/point-details?lat=&lng=
func (h *Handlers) PointDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lng") == "" {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	lat, err := geo.ParseLatitude(q.Get("lat"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lng, err := geo.ParseLongitude(q.Get("lng"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	details, err := h.store.PointDetails(r.Context(), lat, lng)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, details)
}

// HeatmapByAnimal handles GET /api/heatmap-by-animal/{animal}
func (h *Handlers) HeatmapByAnimal(w http.ResponseWriter, r *http.Request) {
	animal := chi.URLParam(r, "animal")
	cells, err := h.store.HeatmapByAnimal(r.Context(), animal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": statusSuccess,
		"data":   cells,
		"animal": animal,
		"count":  len(cells),
	})
}
