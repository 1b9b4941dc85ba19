package importer

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"camtrap/internal/models"
	"camtrap/internal/sqlgen"

	"go.uber.org/zap"
)

// RecordOf converts a stored detection back into an annotation record.
// NULL columns become nil; the id is dropped.
func RecordOf(d models.Detection) sqlgen.Record {
	rec := sqlgen.Record{
		"object":     d.Object,
		"animal":     d.Animal,
		"count":      nullInt(d.Count),
		"behavior":   nullString(d.Behavior),
		"status":     nullString(d.Status),
		"percentage": nullInt(d.Percentage),
		"confidence": nullInt(d.Confidence),
		"image_id":   nullString(d.ImageID),
		"sensor_id":  nullString(d.SensorID),
		"location":   nullString(d.Location),
		"longitude":  nullString(d.Longitude),
		"latitude":   nullString(d.Latitude),
		"time":       nullString(d.Time),
		"date":       nullString(d.Date),
		"caption":    nullString(d.Caption),
	}
	if d.MediaType.Valid {
		rec["type"] = d.MediaType.String
	}
	if d.Path.Valid {
		rec["path"] = d.Path.String
	}
	return rec
}

func nullString(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

func nullInt(n sql.NullInt64) any {
	if !n.Valid {
		return nil
	}
	return n.Int64
}

// Export writes every detection in src as one INSERT statement, each
// terminated by a newline. String literals keep their line breaks, so a
// statement can span several lines; ReplaySQL joins them again.
func Export(ctx context.Context, src PageSource, w io.Writer, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}

	written := 0
	var after int64
	for {
		page, err := src.ListDetections(ctx, after, pageSize)
		if err != nil {
			return written, fmt.Errorf("failed to read page after id %d: %w", after, err)
		}
		for _, d := range page {
			stmt, err := sqlgen.InsertStatement(RecordOf(d))
			if err != nil {
				return written, fmt.Errorf("detection %d: %w", d.ID, err)
			}
			if _, err := fmt.Fprintln(w, stmt); err != nil {
				return written, err
			}
			written++
		}
		if len(page) < pageSize {
			return written, nil
		}
		after = page[len(page)-1].ID
	}
}

// Execer runs a single statement
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ReplaySQL executes a dump written by Export. Lines that end inside a
// string literal are joined with the following ones, so every statement is
// read whole. Each statement must be a single INSERT or UPDATE; statements
// that fail the guard or the database are counted and skipped. Lines counts
// physical lines.
func ReplaySQL(ctx context.Context, r io.Reader, ex Execer, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		res     Result
		pending strings.Builder
		start   int
	)
	run := func() {
		stmt, err := sqlgen.CheckWrite(pending.String())
		if err == nil {
			_, err = ex.ExecContext(ctx, stmt)
		}
		pending.Reset()
		if err != nil {
			res.Errors++
			logger.Warn("skipping statement", zap.Int("line", start), zap.Error(err))
			return
		}
		res.Imported++
	}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			res.Lines++
			if pending.Len() == 0 {
				if strings.TrimSpace(line) == "" {
					line = ""
				} else {
					start = res.Lines
				}
			}
			pending.WriteString(line)
			if pending.Len() > 0 && !sqlgen.Unterminated(pending.String()) {
				run()
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("failed to read statements: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
	if pending.Len() > 0 {
		res.Errors++
		logger.Warn("dump ends inside a string literal", zap.Int("line", start))
	}
	return res, nil
}
