package db

import (
	"context"
	"fmt"

	"camtrap/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const (
	topAnimalsLimit   = 10
	topLocationsLimit = 10
	seriesQuarters    = 20
)

// HoursPerDay is the number of buckets HourlyActivity returns
const HoursPerDay = 24

// TopAnimals sums counts per animal. When days > 0 only the last days are included.
func (db *DB) TopAnimals(ctx context.Context, days int) ([]models.AnimalCount, error) {
	ctx, span := db.span(ctx, "TopAnimals", attribute.Int("days", days))
	var err error
	defer func() { endSpan(span, err) }()

	query := "SELECT animal, COALESCE(SUM(count), 0) AS total_count FROM image_info WHERE 1=1"
	args := make([]interface{}, 0)
	if days > 0 {
		since := db.now().AddDate(0, 0, -days).Format("20060102")
		query += " AND date >= ?"
		args = append(args, since)
	}
	query += fmt.Sprintf(" GROUP BY animal ORDER BY total_count DESC, animal LIMIT %d", topAnimalsLimit)

	counts := make([]models.AnimalCount, 0)
	if err = db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query top animals: %w", err)
	}
	return counts, nil
}

// TopLocations sums counts per location, optionally for one animal
func (db *DB) TopLocations(ctx context.Context, animal string) ([]models.LocationCount, error) {
	ctx, span := db.span(ctx, "TopLocations", attribute.String("animal", animal))
	var err error
	defer func() { endSpan(span, err) }()

	query := "SELECT COALESCE(location, '') AS location, COALESCE(SUM(count), 0) AS total_count FROM image_info WHERE 1=1"
	args := make([]interface{}, 0)
	if animalSet(animal) {
		query += " AND animal = ?"
		args = append(args, animal)
	}
	query += fmt.Sprintf(" GROUP BY COALESCE(location, '') ORDER BY total_count DESC, location LIMIT %d", topLocationsLimit)

	counts := make([]models.LocationCount, 0)
	if err = db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query top locations: %w", err)
	}
	return counts, nil
}

const quarterExpr = `CASE
			WHEN SUBSTR(date, 5, 2) IN ('01', '02', '03') THEN 1
			WHEN SUBSTR(date, 5, 2) IN ('04', '05', '06') THEN 2
			WHEN SUBSTR(date, 5, 2) IN ('07', '08', '09') THEN 3
			WHEN SUBSTR(date, 5, 2) IN ('10', '11', '12') THEN 4
			ELSE 0
		END`

// QuarterlySeries returns the latest quarters of detections, oldest first
func (db *DB) QuarterlySeries(ctx context.Context, animal string) ([]models.SeriesPoint, error) {
	ctx, span := db.span(ctx, "QuarterlySeries", attribute.String("animal", animal))
	var err error
	defer func() { endSpan(span, err) }()

	query := `
		SELECT
			SUBSTR(date, 1, 4) AS yr,
			` + quarterExpr + ` AS qtr,
			COALESCE(SUM(count), 0) AS total,
			COALESCE(AVG(confidence), 0) AS confidence,
			COALESCE(AVG(percentage), 0) AS percentage
		FROM image_info
		WHERE date IS NOT NULL AND date != ''`
	args := make([]interface{}, 0)
	if animalSet(animal) {
		query += " AND animal = ?"
		args = append(args, animal)
	}
	query += fmt.Sprintf(" GROUP BY yr, qtr ORDER BY yr DESC, qtr DESC LIMIT %d", seriesQuarters)

	var rows []struct {
		Year       string  `db:"yr"`
		Quarter    int64   `db:"qtr"`
		Total      int64   `db:"total"`
		Confidence float64 `db:"confidence"`
		Percentage float64 `db:"percentage"`
	}
	if err = db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query time series: %w", err)
	}

	series := make([]models.SeriesPoint, len(rows))
	for i, r := range rows {
		label := r.Year + "-unknown"
		if r.Quarter > 0 {
			label = fmt.Sprintf("%s-Q%d", r.Year, r.Quarter)
		}
		// rows are newest first
		series[len(rows)-1-i] = models.SeriesPoint{
			Date:       label,
			Count:      r.Total,
			Confidence: round2(r.Confidence),
			Percentage: round2(r.Percentage),
		}
	}
	return series, nil
}

// BehaviorList returns the distinct behaviors, optionally for one animal
func (db *DB) BehaviorList(ctx context.Context, animal string) ([]string, error) {
	ctx, span := db.span(ctx, "BehaviorList", attribute.String("animal", animal))
	var err error
	defer func() { endSpan(span, err) }()

	query := "SELECT DISTINCT behavior FROM image_info WHERE behavior IS NOT NULL AND behavior != ''"
	args := make([]interface{}, 0)
	if animalSet(animal) {
		query += " AND animal = ?"
		args = append(args, animal)
	}
	query += " ORDER BY behavior"

	behaviors := make([]string, 0)
	if err = db.SelectContext(ctx, &behaviors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list behaviors: %w", err)
	}
	return behaviors, nil
}

// HourlyActivity sums counts per hour of day. All 24 hours are present.
func (db *DB) HourlyActivity(ctx context.Context, animal, behavior string) (map[int]int64, error) {
	ctx, span := db.span(ctx, "HourlyActivity",
		attribute.String("animal", animal), attribute.String("behavior", behavior))
	var err error
	defer func() { endSpan(span, err) }()

	query := fmt.Sprintf(`
		SELECT %s AS hr, COALESCE(SUM(count), 0) AS total
		FROM image_info
		WHERE time IS NOT NULL AND time != ''`, db.dialect.IntCast("SUBSTR(time, 1, 2)"))
	args := make([]interface{}, 0)
	if animalSet(animal) {
		query += " AND animal = ?"
		args = append(args, animal)
	}
	if behavior != "" && behavior != "all" {
		query += " AND behavior = ?"
		args = append(args, behavior)
	}
	query += " GROUP BY hr ORDER BY hr"

	var rows []struct {
		Hour  int64 `db:"hr"`
		Total int64 `db:"total"`
	}
	if err = db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query hourly activity: %w", err)
	}

	hours := make(map[int]int64, HoursPerDay)
	for h := 0; h < HoursPerDay; h++ {
		hours[h] = 0
	}
	for _, r := range rows {
		if r.Hour >= 0 && r.Hour < HoursPerDay {
			hours[int(r.Hour)] += r.Total
		}
	}
	return hours, nil
}
