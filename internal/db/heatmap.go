package db

import (
	"context"
	"fmt"
	"math"
	"strings"

	"camtrap/internal/geo"
	"camtrap/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PointTolerance is how close a row must be to a clicked heatmap point
const PointTolerance = 0.001

const (
	animalStatsLimit  = 20
	pointDetailsLimit = 10
)

type cellRow struct {
	Sensor        string  `db:"sensor"`
	Site          string  `db:"site"`
	Longitude     string  `db:"lng"`
	Latitude      string  `db:"lat"`
	Kind          string  `db:"kind"`
	Animal        string  `db:"species"`
	Count         int64   `db:"n"`
	AvgConfidence float64 `db:"avg_confidence"`
	AvgPercentage float64 `db:"avg_percentage"`
}

func (db *DB) cells(rows []cellRow) []models.HeatmapCell {
	cells := make([]models.HeatmapCell, 0, len(rows))
	for _, r := range rows {
		c, err := geo.ParseCoord(r.Longitude, r.Latitude)
		if err != nil {
			db.log.Warn("skipping heatmap cell with bad coordinates",
				zap.String("sensor_id", r.Sensor),
				zap.Error(err))
			continue
		}
		animal := r.Animal
		if animal == "" {
			animal = r.Kind
		}
		cells = append(cells, models.HeatmapCell{
			SensorID:      r.Sensor,
			Location:      r.Site,
			Latitude:      c.Lat,
			Longitude:     c.Lng,
			AnimalType:    r.Kind,
			Animal:        animal,
			Count:         r.Count,
			AvgConfidence: round2(r.AvgConfidence),
			AvgPercentage: round2(r.AvgPercentage),
			Intensity:     r.Count,
		})
	}
	return cells
}

// HeatmapData counts detections per camera and animal
func (db *DB) HeatmapData(ctx context.Context) ([]models.HeatmapCell, error) {
	ctx, span := db.span(ctx, "HeatmapData")
	var rows []cellRow
	err := db.SelectContext(ctx, &rows, `
		SELECT
			COALESCE(sensor_id, '') AS sensor,
			COALESCE(location, '') AS site,
			longitude AS lng,
			latitude AS lat,
			object AS kind,
			COALESCE(animal, '') AS species,
			COUNT(*) AS n,
			COALESCE(AVG(confidence), 0) AS avg_confidence,
			COALESCE(AVG(percentage), 0) AS avg_percentage
		FROM image_info
		WHERE object IS NOT NULL AND `+hasCoords+`
		GROUP BY sensor_id, location, longitude, latitude, object, animal
		ORDER BY sensor, n DESC, species
	`)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query heatmap data: %w", err)
	}
	return db.cells(rows), nil
}

// HeatmapByAnimal counts detections of one animal per camera
func (db *DB) HeatmapByAnimal(ctx context.Context, animal string) ([]models.HeatmapCell, error) {
	ctx, span := db.span(ctx, "HeatmapByAnimal", attribute.String("animal", animal))
	var rows []cellRow
	err := db.SelectContext(ctx, &rows, `
		SELECT
			COALESCE(sensor_id, '') AS sensor,
			COALESCE(location, '') AS site,
			longitude AS lng,
			latitude AS lat,
			'' AS kind,
			'' AS species,
			COUNT(*) AS n,
			COALESCE(AVG(confidence), 0) AS avg_confidence,
			COALESCE(AVG(percentage), 0) AS avg_percentage
		FROM image_info
		WHERE (animal = ? OR object = ?) AND `+hasCoords+`
		GROUP BY sensor_id, location, longitude, latitude
		ORDER BY n DESC, sensor
	`, animal, animal)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query heatmap for %s: %w", animal, err)
	}
	return db.cells(rows), nil
}

// SensorLocations lists cameras with their detection totals
func (db *DB) SensorLocations(ctx context.Context) ([]models.SensorLocation, error) {
	ctx, span := db.span(ctx, "SensorLocations")
	var rows []struct {
		Sensor    string `db:"sensor"`
		Site      string `db:"site"`
		Longitude string `db:"lng"`
		Latitude  string `db:"lat"`
		Total     int64  `db:"total"`
	}
	err := db.SelectContext(ctx, &rows, `
		SELECT
			COALESCE(sensor_id, '') AS sensor,
			COALESCE(location, '') AS site,
			longitude AS lng,
			latitude AS lat,
			COUNT(*) AS total
		FROM image_info
		WHERE `+hasCoords+`
		GROUP BY sensor_id, location, longitude, latitude
		ORDER BY total DESC, sensor
	`)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor locations: %w", err)
	}

	sensors := make([]models.SensorLocation, 0, len(rows))
	for _, r := range rows {
		c, perr := geo.ParseCoord(r.Longitude, r.Latitude)
		if perr != nil {
			db.log.Warn("skipping sensor with bad coordinates",
				zap.String("sensor_id", r.Sensor),
				zap.Error(perr))
			continue
		}
		sensors = append(sensors, models.SensorLocation{
			SensorID:        r.Sensor,
			Location:        r.Site,
			Latitude:        c.Lat,
			Longitude:       c.Lng,
			TotalDetections: r.Total,
		})
	}
	return sensors, nil
}

// AnimalStats returns the most detected animals
func (db *DB) AnimalStats(ctx context.Context) ([]models.AnimalStat, error) {
	ctx, span := db.span(ctx, "AnimalStats")
	var stats []models.AnimalStat
	err := db.SelectContext(ctx, &stats, fmt.Sprintf(`
		SELECT
			COALESCE(NULLIF(animal, ''), object) AS animal_name,
			COUNT(*) AS count,
			COUNT(DISTINCT sensor_id) AS sensor_count,
			COALESCE(AVG(confidence), 0) AS avg_confidence
		FROM image_info
		WHERE object IS NOT NULL
		GROUP BY COALESCE(NULLIF(animal, ''), object)
		ORDER BY count DESC, animal_name
		LIMIT %d
	`, animalStatsLimit))
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query animal stats: %w", err)
	}
	for i := range stats {
		stats[i].AvgConfidence = round2(stats[i].AvgConfidence)
	}
	return stats, nil
}

type pointRow struct {
	Sensor     string  `db:"sensor"`
	Site       string  `db:"site"`
	Kind       string  `db:"kind"`
	Animal     string  `db:"species"`
	Caption    string  `db:"caption"`
	Path       string  `db:"path"`
	Confidence float64 `db:"confidence"`
	Percentage float64 `db:"percentage"`
	Date       string  `db:"day"`
	Time       string  `db:"clock"`
}

// PointDetails returns the newest detections at a clicked heatmap point
func (db *DB) PointDetails(ctx context.Context, lat, lng float64) (*models.PointDetails, error) {
	ctx, span := db.span(ctx, "PointDetails",
		attribute.Float64("lat", lat), attribute.Float64("lng", lng))
	var err error
	defer func() { endSpan(span, err) }()

	near := fmt.Sprintf("object IS NOT NULL AND %s AND ABS(%s - ?) < ? AND ABS(%s - ?) < ?",
		hasCoords, latExpr, lngExpr)
	args := []interface{}{lat, PointTolerance, lng, PointTolerance}

	var rows []pointRow
	err = db.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT
			COALESCE(sensor_id, '') AS sensor,
			COALESCE(location, '') AS site,
			object AS kind,
			COALESCE(animal, '') AS species,
			COALESCE(caption, '') AS caption,
			COALESCE(path, '') AS path,
			COALESCE(confidence, 0) AS confidence,
			COALESCE(percentage, 0) AS percentage,
			COALESCE(date, '') AS day,
			COALESCE(time, '') AS clock
		FROM image_info
		WHERE %s
		ORDER BY day DESC, clock DESC, id DESC
		LIMIT %d
	`, near, pointDetailsLimit), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query point details: %w", err)
	}
	if len(rows) == 0 {
		err = ErrNotFound
		return nil, err
	}

	// totals are per camera and object over every matching row, not just
	// the newest ones returned
	var totals []struct {
		Sensor string `db:"sensor"`
		Kind   string `db:"kind"`
		Count  int64  `db:"n"`
	}
	err = db.SelectContext(ctx, &totals, fmt.Sprintf(`
		SELECT
			COALESCE(sensor_id, '') AS sensor,
			object AS kind,
			COUNT(*) AS n
		FROM image_info
		WHERE %s
		GROUP BY sensor_id, object
	`, near), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count point detections: %w", err)
	}
	counts := make(map[string]int64, len(totals))
	for _, t := range totals {
		counts[t.Sensor+"|"+t.Kind] = t.Count
	}

	first := rows[0]
	out := &models.PointDetails{
		SensorID:   first.Sensor,
		Location:   first.Site,
		Latitude:   lat,
		Longitude:  lng,
		Caption:    first.Caption,
		Detections: make([]models.PointDetection, 0, len(rows)),
	}

	var order []string
	seen := make(map[string]int)
	for _, r := range rows {
		animal := r.Animal
		if animal == "" {
			animal = r.Kind
		}
		if _, ok := seen[animal]; !ok {
			order = append(order, animal)
		}
		seen[animal]++

		out.Detections = append(out.Detections, models.PointDetection{
			AnimalType: r.Kind,
			Animal:     animal,
			Caption:    r.Caption,
			ImagePath:  r.Path,
			Confidence: r.Confidence,
			Percentage: r.Percentage,
			Date:       r.Date,
			Time:       r.Time,
			TotalCount: counts[r.Sensor+"|"+r.Kind],
		})
	}

	if out.Caption == "" {
		parts := make([]string, len(order))
		for i, a := range order {
			parts[i] = fmt.Sprintf("%s(%d)", a, seen[a])
		}
		out.Caption = fmt.Sprintf("sensor %s at %s detected: %s",
			first.Sensor, first.Site, strings.Join(parts, ", "))
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
