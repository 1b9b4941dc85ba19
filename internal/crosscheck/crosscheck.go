// Package crosscheck compares map point totals with the detail records
// behind each point.
package crosscheck

import (
	"context"
	"fmt"
	"strconv"

	"camtrap/internal/db"
	"camtrap/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source is the subset of the store a cross-check reads
type Source interface {
	MapData(ctx context.Context, f db.Filter) ([]models.MapPoint, error)
	LocationDetail(ctx context.Context, q db.DetailQuery) (*models.LocationDetail, error)
}

// Options configures a run
type Options struct {
	Filter  db.Filter
	Workers int
	// Limit bounds the detail rows fetched per point; it must exceed the
	// largest per-point row count for totals to be exact.
	Limit  int
	Logger *zap.Logger
}

// DefaultLimit is the per-point detail limit used when Options.Limit is unset
const DefaultLimit = 1000000

// PointResult is the comparison for one map point
type PointResult struct {
	Name        string    `json:"name"`
	Coord       []float64 `json:"coord"`
	MapValue    int64     `json:"map_value"`
	DetailTotal int64     `json:"detail_total"`
	Records     int       `json:"records"`
	Consistent  bool      `json:"consistent"`
}

// Report summarizes a run
type Report struct {
	Points      []PointResult `json:"points"`
	Checked     int           `json:"checked"`
	Consistent  int           `json:"consistent"`
	Mismatched  int           `json:"mismatched"`
	MapTotal    int64         `json:"map_total"`
	DetailTotal int64         `json:"detail_total"`
}

// Run checks every map point. The first failing detail query cancels the rest.
func Run(ctx context.Context, src Source, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	points, err := src.MapData(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load map data: %w", err)
	}

	results := make([]PointResult, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range points {
		i, p := i, p
		g.Go(func() error {
			if len(p.Coord) != 2 {
				return fmt.Errorf("point %s has no coordinates", p.Name)
			}
			detail, err := src.LocationDetail(gctx, db.DetailQuery{
				Longitude: strconv.FormatFloat(p.Coord[0], 'f', -1, 64),
				Latitude:  strconv.FormatFloat(p.Coord[1], 'f', -1, 64),
				Filter:    opts.Filter,
				Limit:     limit,
			})
			if err != nil {
				return fmt.Errorf("failed to load detail for %s: %w", p.Name, err)
			}

			results[i] = PointResult{
				Name:        p.Name,
				Coord:       p.Coord,
				MapValue:    p.Value,
				DetailTotal: detail.Summary.TotalCount,
				Records:     detail.Summary.Records,
				Consistent:  p.Value == detail.Summary.TotalCount,
			}
			if !results[i].Consistent {
				logger.Warn("map point disagrees with detail",
					zap.String("point", p.Name),
					zap.Int64("map_value", p.Value),
					zap.Int64("detail_total", detail.Summary.TotalCount))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Points: results, Checked: len(results)}
	for _, r := range results {
		report.MapTotal += r.MapValue
		report.DetailTotal += r.DetailTotal
		if r.Consistent {
			report.Consistent++
		} else {
			report.Mismatched++
		}
	}
	logger.Info("cross-check finished",
		zap.Int("checked", report.Checked),
		zap.Int("mismatched", report.Mismatched))
	return report, nil
}
