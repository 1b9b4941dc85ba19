package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"camtrap/internal/cache"
	"camtrap/internal/db"
	"camtrap/internal/models"
	"camtrap/internal/sqlgen"

	"go.uber.org/zap"
)

// Store is the query layer the handlers read from and write to
type Store interface {
	AnimalList(ctx context.Context) ([]string, error)
	LocationList(ctx context.Context) ([]string, error)
	MapData(ctx context.Context, f db.Filter) ([]models.MapPoint, error)
	LocationDetail(ctx context.Context, q db.DetailQuery) (*models.LocationDetail, error)

	HeatmapData(ctx context.Context) ([]models.HeatmapCell, error)
	SensorLocations(ctx context.Context) ([]models.SensorLocation, error)
	AnimalStats(ctx context.Context) ([]models.AnimalStat, error)
	PointDetails(ctx context.Context, lat, lng float64) (*models.PointDetails, error)
	HeatmapByAnimal(ctx context.Context, animal string) ([]models.HeatmapCell, error)

	TopAnimals(ctx context.Context, days int) ([]models.AnimalCount, error)
	TopLocations(ctx context.Context, animal string) ([]models.LocationCount, error)
	QuarterlySeries(ctx context.Context, animal string) ([]models.SeriesPoint, error)
	BehaviorList(ctx context.Context, animal string) ([]string, error)
	HourlyActivity(ctx context.Context, animal, behavior string) (map[int]int64, error)

	InsertDetection(ctx context.Context, rec sqlgen.Record) (int64, error)
	QueryReadOnly(ctx context.Context, stmt string) ([]map[string]interface{}, error)
	CountDetections(ctx context.Context) (int64, error)
	PingContext(ctx context.Context) error
}

// MaxDetailLimit caps the limit parameter of /api/location-detail
const MaxDetailLimit = 1000

// Handlers contains HTTP handlers and their dependencies
type Handlers struct {
	store   Store
	cache   cache.Cache
	metrics *Metrics
	log     *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(store Store, c cache.Cache, m *Metrics, logger *zap.Logger) *Handlers {
	return &Handlers{store: store, cache: c, metrics: m, log: logger}
}

// fail logs err and writes the matching status code
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound):
		code = http.StatusNotFound
	case db.IsInvalid(err):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, code, err.Error())
}

func filterFrom(r *http.Request) db.Filter {
	q := r.URL.Query()
	return db.Filter{
		Animal:    q.Get("animal_type"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
}

// AnimalList handles GET /api/animal-list
func (h *Handlers) AnimalList(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.AnimalList(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// LocationList handles GET /api/location-list
func (h *Handlers) LocationList(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.LocationList(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// MapData handles GET /api/map-data
func (h *Handlers) MapData(w http.ResponseWriter, r *http.Request) {
	points, err := h.store.MapData(r.Context(), filterFrom(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// LocationDetail handles GET /api/location-detail
func (h *Handlers) LocationDetail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := db.DetailQuery{
		Longitude: q.Get("longitude"),
		Latitude:  q.Get("latitude"),
		Location:  q.Get("location"),
		Filter:    filterFrom(r),
	}
	if v := q.Get("limit"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 && val <= MaxDetailLimit {
			query.Limit = val
		}
	}

	detail, err := h.store.LocationDetail(r.Context(), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
