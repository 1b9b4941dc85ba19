package importer

import (
	"context"
	"fmt"

	"camtrap/internal/models"

	"go.uber.org/zap"
)

// PageSource lists detections in id order
type PageSource interface {
	ListDetections(ctx context.Context, afterID int64, limit int) ([]models.Detection, error)
}

// PageSink accepts copied detections
type PageSink interface {
	CopyDetections(ctx context.Context, rows []models.Detection) error
	DeleteAllDetections(ctx context.Context) (int64, error)
}

// MigrateOptions configures Migrate
type MigrateOptions struct {
	PageSize int
	// Truncate empties the destination before copying
	Truncate bool
	Logger   *zap.Logger
}

// Migrate copies every detection from src to dst, ids included
func Migrate(ctx context.Context, src PageSource, dst PageSink, opts MigrateOptions) (int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.PageSize
	if size <= 0 {
		size = 1000
	}

	if opts.Truncate {
		n, err := dst.DeleteAllDetections(ctx)
		if err != nil {
			return 0, err
		}
		logger.Info("cleared destination", zap.Int64("rows", n))
	}

	copied := 0
	var after int64
	for {
		page, err := src.ListDetections(ctx, after, size)
		if err != nil {
			return copied, fmt.Errorf("failed to read page after id %d: %w", after, err)
		}
		if len(page) == 0 {
			break
		}
		if err := dst.CopyDetections(ctx, page); err != nil {
			return copied, fmt.Errorf("failed to write page after id %d: %w", after, err)
		}

		copied += len(page)
		after = page[len(page)-1].ID
		logger.Info("migrated page", zap.Int("rows", len(page)), zap.Int("total", copied))

		if len(page) < size {
			break
		}
	}
	return copied, nil
}
