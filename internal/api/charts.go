package api

import (
	"net/http"
	"strconv"
)

// ChartData handles GET /api/chart-data?days=
func (h *Handlers) ChartData(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	counts, err := h.store.TopAnimals(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, counts)
}

// LocationData handles GET /api/location-data?animal=
func (h *Handlers) LocationData(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.TopLocations(r.Context(), r.URL.Query().Get("animal"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, counts)
}

// TimeSeriesData handles GET /api/timeseries-data?animal=
func (h *Handlers) TimeSeriesData(w http.ResponseWriter, r *http.Request) {
	series, err := h.store.QuarterlySeries(r.Context(), r.URL.Query().Get("animal"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, series)
}

// BehaviorList handles GET /api/behavior-list?animal=
func (h *Handlers) BehaviorList(w http.ResponseWriter, r *http.Request) {
	behaviors, err := h.store.BehaviorList(r.Context(), r.URL.Query().Get("animal"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, behaviors)
}

// ActivityData handles GET /api/activity-data?animal=&behavior=
func (h *Handlers) ActivityData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hours, err := h.store.HourlyActivity(r.Context(), q.Get("animal"), q.Get("behavior"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, hours)
}
