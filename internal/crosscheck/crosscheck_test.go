package crosscheck

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"camtrap/internal/db"
	"camtrap/internal/models"
	"camtrap/internal/sqlgen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	points  []models.MapPoint
	totals  map[string]int64
	fail    string
	mu      sync.Mutex
	queries []db.DetailQuery
	active  int32
	peak    int32
}

func (f *fakeSource) MapData(ctx context.Context, _ db.Filter) ([]models.MapPoint, error) {
	return f.points, nil
}

func (f *fakeSource) LocationDetail(ctx context.Context, q db.DetailQuery) (*models.LocationDetail, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	key := q.Longitude + "," + q.Latitude
	if key == f.fail {
		return nil, errors.New("boom")
	}
	return &models.LocationDetail{Summary: models.DetailSummary{Records: 1, TotalCount: f.totals[key]}}, nil
}

func TestRunReportsMismatches(t *testing.T) {
	src := &fakeSource{
		points: []models.MapPoint{
			{Name: "Ridge", Value: 6, Coord: []float64{124.71, 40.12}},
			{Name: "Creek", Value: 4, Coord: []float64{-120.5, -33.2}},
		},
		totals: map[string]int64{"124.71,40.12": 6, "-120.5,-33.2": 9},
	}

	report, err := Run(context.Background(), src, Options{Workers: 1, Filter: db.Filter{Animal: "tiger"}})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Consistent)
	assert.Equal(t, 1, report.Mismatched)
	assert.Equal(t, int64(10), report.MapTotal)
	assert.Equal(t, int64(15), report.DetailTotal)
	assert.True(t, report.Points[0].Consistent)
	assert.False(t, report.Points[1].Consistent)

	for _, q := range src.queries {
		assert.Equal(t, "tiger", q.Animal)
		assert.Equal(t, DefaultLimit, q.Limit)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	src := &fakeSource{totals: map[string]int64{}}
	for i := 0; i < 20; i++ {
		src.points = append(src.points, models.MapPoint{Name: "p", Coord: []float64{float64(i), 1}})
	}

	report, err := Run(context.Background(), src, Options{Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 20, report.Checked)
	assert.LessOrEqual(t, atomic.LoadInt32(&src.peak), int32(3))
}

func TestRunStopsOnError(t *testing.T) {
	src := &fakeSource{
		points: []models.MapPoint{{Name: "bad", Value: 1, Coord: []float64{1, 2}}},
		fail:   "1,2",
	}
	_, err := Run(context.Background(), src, Options{})
	assert.ErrorContains(t, err, "boom")
}

func TestRunAgainstStore(t *testing.T) {
	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, "sqlite", filepath.Join(t.TempDir(), "x.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	rec := func(lng, lat string, count int) sqlgen.Record {
		return sqlgen.Record{
			"object": "animal", "animal": "deer", "count": float64(count), "behavior": "", "status": "",
			"percentage": float64(0), "confidence": float64(0), "image_id": "", "sensor_id": "s1",
			"location": "L", "longitude": lng, "latitude": lat, "time": "1200", "date": "20230101", "caption": "",
		}
	}
	// two raw spellings of nearly the same point become two map points
	// whose detail queries see each other's rows
	_, err = store.InsertDetections(ctx, []sqlgen.Record{
		rec("E100.000", "N10.000", 2),
		rec("E100.005", "N10.000", 3),
		rec("E110", "N20", 5),
	})
	require.NoError(t, err)

	report, err := Run(ctx, store, Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, report.Consistent)
	assert.Equal(t, 2, report.Mismatched)
	assert.Equal(t, int64(10), report.MapTotal)
	assert.Equal(t, int64(15), report.DetailTotal)
}
