package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"camtrap/internal/models"
	"camtrap/internal/sqlgen"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const detectionColumns = `id, object, animal, count, behavior, status, percentage, confidence,
	image_id, sensor_id, location, longitude, latitude, time, date, caption, type, path`

// InsertDetection validates and inserts one record, returning the new row id
func (db *DB) InsertDetection(ctx context.Context, rec sqlgen.Record) (int64, error) {
	ctx, span := db.span(ctx, "InsertDetection")
	id, err := insertRecord(ctx, db.DB, rec)
	endSpan(span, err)
	return id, err
}

// InsertDetections inserts records in one transaction. Any failure rolls
// back the whole batch.
func (db *DB) InsertDetections(ctx context.Context, recs []sqlgen.Record) (int, error) {
	ctx, span := db.span(ctx, "InsertDetections", attribute.Int("records", len(recs)))
	var err error
	defer func() { endSpan(span, err) }()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, rec := range recs {
		if _, err = insertRecord(ctx, tx, rec); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(recs), nil
}

func insertRecord(ctx context.Context, ex sqlx.ExecerContext, rec sqlgen.Record) (int64, error) {
	cols, args, err := sqlgen.InsertArgs(rec)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlgen.Table, strings.Join(cols, ", "), sqlgen.Placeholders(len(cols)))

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}
	return res.LastInsertId()
}

// CountDetections returns the number of rows in image_info
func (db *DB) CountDetections(ctx context.Context) (int64, error) {
	var n int64
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM image_info"); err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return n, nil
}

// ListDetections returns up to limit rows with id greater than afterID, by id
func (db *DB) ListDetections(ctx context.Context, afterID int64, limit int) ([]models.Detection, error) {
	ctx, span := db.span(ctx, "ListDetections", attribute.Int64("after_id", afterID))
	if limit <= 0 {
		limit = DefaultDetailLimit
	}
	rows := make([]models.Detection, 0, limit)
	err := db.SelectContext(ctx, &rows,
		fmt.Sprintf("SELECT %s FROM image_info WHERE id > ? ORDER BY id LIMIT %d", detectionColumns, limit),
		afterID)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	return rows, nil
}

// CopyDetections inserts full rows, ids included, in one transaction
func (db *DB) CopyDetections(ctx context.Context, rows []models.Detection) error {
	ctx, span := db.span(ctx, "CopyDetections", attribute.Int("records", len(rows)))
	var err error
	defer func() { endSpan(span, err) }()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO image_info (` + detectionColumns + `) VALUES (
		:id, :object, :animal, :count, :behavior, :status, :percentage, :confidence,
		:image_id, :sensor_id, :location, :longitude, :latitude, :time, :date, :caption, :type, :path)`
	for _, d := range rows {
		if _, err = tx.NamedExecContext(ctx, query, d); err != nil {
			return fmt.Errorf("failed to copy detection %d: %w", d.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// DeleteAllDetections empties image_info
func (db *DB) DeleteAllDetections(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM image_info")
	if err != nil {
		return 0, fmt.Errorf("failed to delete detections: %w", err)
	}
	return res.RowsAffected()
}

// BackfillMediaPaths sets path on rows that have none. Animals in mapping get
// their mapped path; the rest get pattern with %s replaced by the lowercased
// animal name. An empty pattern skips the fallback.
func (db *DB) BackfillMediaPaths(ctx context.Context, mapping map[string]string, pattern string) (int64, error) {
	ctx, span := db.span(ctx, "BackfillMediaPaths")
	var err error
	defer func() { endSpan(span, err) }()

	const missing = " AND (path IS NULL OR path = '')"

	animals := make([]string, 0, len(mapping))
	for a := range mapping {
		animals = append(animals, a)
	}
	sort.Strings(animals)

	var total int64
	for _, a := range animals {
		var n int64
		n, err = db.execAffected(ctx, "UPDATE image_info SET path = ? WHERE animal = ?"+missing, mapping[a], a)
		if err != nil {
			return total, err
		}
		total += n
	}

	if pattern != "" {
		prefix, suffix, ok := strings.Cut(pattern, "%s")
		if !ok {
			err = fmt.Errorf("%w: path pattern %q has no %%s", ErrInvalidQuery, pattern)
			return total, err
		}
		expr := db.dialect.Concat("?", "LOWER(animal)", "?")
		var n int64
		n, err = db.execAffected(ctx, "UPDATE image_info SET path = "+expr+" WHERE 1=1"+missing, prefix, suffix)
		if err != nil {
			return total, err
		}
		total += n
	}

	db.log.Info("backfilled media paths", zap.Int64("rows", total))
	return total, nil
}

func (db *DB) execAffected(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update media paths: %w", err)
	}
	return res.RowsAffected()
}

// QueryReadOnly runs a single SELECT and returns every row as a column map
func (db *DB) QueryReadOnly(ctx context.Context, stmt string) ([]map[string]interface{}, error) {
	stmt, err := sqlgen.CheckSelect(stmt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	ctx, span := db.span(ctx, "QueryReadOnly")
	defer func() { endSpan(span, err) }()

	rows, err := db.QueryxContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err = rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

// IsInvalid reports whether err came from bad caller input
func IsInvalid(err error) bool {
	var verr *sqlgen.ValidationError
	return errors.Is(err, ErrInvalidQuery) || errors.As(err, &verr)
}
