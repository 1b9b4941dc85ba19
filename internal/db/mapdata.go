package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"camtrap/internal/geo"
	"camtrap/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DetailTolerance is how close a row must be to match a map point
const DetailTolerance = 0.01

// DefaultDetailLimit caps LocationDetail when no limit is given
const DefaultDetailLimit = 100

// AnimalList returns the distinct animals, sorted
func (db *DB) AnimalList(ctx context.Context) ([]string, error) {
	ctx, span := db.span(ctx, "AnimalList")
	var names []string
	err := db.SelectContext(ctx, &names, `
		SELECT DISTINCT animal FROM image_info
		WHERE animal IS NOT NULL AND animal != ''
		ORDER BY animal
	`)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list animals: %w", err)
	}
	return names, nil
}

// LocationList returns the distinct location names, sorted
func (db *DB) LocationList(ctx context.Context) ([]string, error) {
	ctx, span := db.span(ctx, "LocationList")
	var names []string
	err := db.SelectContext(ctx, &names, `
		SELECT DISTINCT location FROM image_info
		WHERE location IS NOT NULL AND location != ''
		ORDER BY location
	`)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return names, nil
}

type mapRow struct {
	Longitude string `db:"lng"`
	Latitude  string `db:"lat"`
	Site      string `db:"site"`
	Total     int64  `db:"total"`
	Animals   string `db:"animals"`
}

// MapData aggregates detections per monitoring point
func (db *DB) MapData(ctx context.Context, f Filter) ([]models.MapPoint, error) {
	ctx, span := db.span(ctx, "MapData", attribute.String("animal", f.Animal))
	var err error
	defer func() { endSpan(span, err) }()

	query := `
		SELECT
			longitude AS lng,
			latitude AS lat,
			COALESCE(location, '') AS site,
			COALESCE(SUM(count), 0) AS total,
			COALESCE(GROUP_CONCAT(DISTINCT animal), '') AS animals
		FROM image_info
		WHERE ` + hasCoords
	args := make([]interface{}, 0)

	query, args, err = f.apply(query, args)
	if err != nil {
		return nil, err
	}
	query += " GROUP BY longitude, latitude, location ORDER BY total DESC, site"

	var rows []mapRow
	if err = db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query map data: %w", err)
	}

	points := make([]models.MapPoint, 0, len(rows))
	for _, r := range rows {
		c, perr := geo.ParseCoord(r.Longitude, r.Latitude)
		if perr != nil {
			db.log.Warn("skipping map point with bad coordinates",
				zap.String("longitude", r.Longitude),
				zap.String("latitude", r.Latitude),
				zap.Error(perr))
			continue
		}

		name := r.Site
		if name == "" {
			name = c.String()
		}
		points = append(points, models.MapPoint{
			Name:        name,
			Value:       r.Total,
			AnimalTypes: splitAnimals(r.Animals),
			Coord:       c.Slice(),
		})
	}
	return points, nil
}

func splitAnimals(s string) []string {
	out := make([]string, 0)
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// DetailQuery selects the detections behind a map point
type DetailQuery struct {
	Longitude string
	Latitude  string
	Location  string
	Filter
	Limit int
}

type detailRow struct {
	Animal    string `db:"animal"`
	Caption   string `db:"caption"`
	Time      string `db:"time"`
	Date      string `db:"date"`
	Location  string `db:"location"`
	Longitude string `db:"longitude"`
	Latitude  string `db:"latitude"`
	Count     int64  `db:"count"`
	Path      string `db:"path"`
	Type      string `db:"type"`
}

// LocationDetail returns the newest detections at a point or named location
func (db *DB) LocationDetail(ctx context.Context, q DetailQuery) (*models.LocationDetail, error) {
	ctx, span := db.span(ctx, "LocationDetail", attribute.String("location", q.Location))
	var err error
	defer func() { endSpan(span, err) }()

	query := `
		SELECT
			animal,
			COALESCE(caption, '') AS caption,
			COALESCE(time, '') AS time,
			COALESCE(date, '') AS date,
			COALESCE(location, '') AS location,
			COALESCE(longitude, '') AS longitude,
			COALESCE(latitude, '') AS latitude,
			COALESCE(count, 0) AS count,
			COALESCE(path, '') AS path,
			COALESCE(type, '') AS type
		FROM image_info
		WHERE 1=1`
	args := make([]interface{}, 0)

	switch {
	case q.Longitude != "" && q.Latitude != "":
		var c geo.Coord
		c, err = geo.ParseCoord(q.Longitude, q.Latitude)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidQuery, err)
			return nil, err
		}
		query += " AND " + hasCoords
		query += fmt.Sprintf(" AND ABS(%s - ?) < ? AND ABS(%s - ?) < ?", lngExpr, latExpr)
		args = append(args, c.Lng, DetailTolerance, c.Lat, DetailTolerance)
	case q.Location != "":
		query += " AND location LIKE ?"
		args = append(args, "%"+q.Location+"%")
	default:
		err = fmt.Errorf("%w: coordinates or location required", ErrInvalidQuery)
		return nil, err
	}

	query, args, err = q.Filter.apply(query, args)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultDetailLimit
	}
	query += fmt.Sprintf(" ORDER BY date DESC, time DESC, id DESC LIMIT %d", limit)

	var rows []detailRow
	if err = db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query location detail: %w", err)
	}

	seen := make(map[string]bool)
	animals := make([]string, 0)
	for _, r := range rows {
		if !seen[r.Animal] {
			seen[r.Animal] = true
			animals = append(animals, r.Animal)
		}
	}

	levels, err := db.ProtectionLevels(ctx, animals)
	if err != nil {
		return nil, err
	}

	detail := &models.LocationDetail{
		Details:          make([]models.DetailRecord, 0, len(rows)),
		LatestByAnimal:   make(map[string]models.LatestMedia),
		ProtectionLevels: levels,
	}
	for _, r := range rows {
		mediaType := r.Type
		if mediaType == "" {
			mediaType = models.DefaultMediaType
		}
		rec := models.DetailRecord{
			AnimalType:      r.Animal,
			Caption:         r.Caption,
			Time:            r.Time,
			Date:            r.Date,
			Location:        r.Location,
			Longitude:       r.Longitude,
			Latitude:        r.Latitude,
			Coordinates:     coordinates(r.Longitude, r.Latitude),
			MediaPath:       optional(r.Path),
			MediaType:       mediaType,
			Count:           r.Count,
			ProtectionLevel: levels[r.Animal],
		}
		detail.Details = append(detail.Details, rec)
		detail.Summary.TotalCount += r.Count

		if _, ok := detail.LatestByAnimal[r.Animal]; !ok {
			detail.LatestByAnimal[r.Animal] = models.LatestMedia{
				LatestMedia:     rec.MediaPath,
				LatestMediaType: mediaType,
				LatestCaption:   r.Caption,
				LatestTime:      r.Time,
				LatestDate:      r.Date,
				ProtectionLevel: rec.ProtectionLevel,
			}
		}
	}
	detail.Summary.Records = len(detail.Details)
	return detail, nil
}

func coordinates(lng, lat string) *string {
	if lng == "" || lat == "" {
		return nil
	}
	s := "(" + lng + ", " + lat + ")"
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
