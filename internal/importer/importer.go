// Package importer loads detections and species lists into the store.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"camtrap/internal/models"
	"camtrap/internal/sqlgen"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Inserter receives decoded detection records
type Inserter interface {
	InsertDetection(ctx context.Context, rec sqlgen.Record) (int64, error)
	InsertDetections(ctx context.Context, recs []sqlgen.Record) (int, error)
}

// Options configures an import
type Options struct {
	BatchSize int
	Logger    *zap.Logger
}

// Result counts what an import did
type Result struct {
	Lines    int `json:"lines"`
	Imported int `json:"imported"`
	Errors   int `json:"errors"`
}

const (
	progressEvery = 100
	maxLineBytes  = 4 << 20
)

// numericFields default to 0 rather than "" when absent
var numericFields = map[string]bool{"count": true, "percentage": true, "confidence": true}

// ImportJSONL reads one JSON object per line and inserts them in batches.
// Bad lines are counted and skipped.
func ImportJSONL(ctx context.Context, r io.Reader, dst Inserter, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.BatchSize
	if size <= 0 {
		size = 500
	}

	var res Result
	batch := make([]sqlgen.Record, 0, size)
	batchLines := make([]int, 0, size)
	decoded := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := dst.InsertDetections(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// isolate the bad rows
			logger.Warn("batch insert failed, retrying rows one by one", zap.Error(err))
			n = 0
			for i, rec := range batch {
				if _, err := dst.InsertDetection(ctx, rec); err != nil {
					logger.Warn("failed to insert line", zap.Int("line", batchLines[i]), zap.Error(err))
					res.Errors++
					continue
				}
				n++
			}
		}
		res.Imported += n
		batch = batch[:0]
		batchLines = batchLines[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		res.Lines++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec, err := decodeRecord(line)
		if err != nil {
			logger.Warn("skipping bad line", zap.Int("line", res.Lines), zap.Error(err))
			res.Errors++
			continue
		}

		batch = append(batch, rec)
		batchLines = append(batchLines, res.Lines)
		decoded++
		if decoded%progressEvery == 0 {
			logger.Info("import progress",
				zap.Int("rows", decoded),
				zap.Int("imported", res.Imported),
				zap.Int("errors", res.Errors))
		}
		if len(batch) >= size {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("failed to read input: %w", err)
	}
	if err := flush(); err != nil {
		return res, err
	}

	logger.Info("import finished",
		zap.Int("imported", res.Imported),
		zap.Int("errors", res.Errors))
	return res, nil
}

func decodeRecord(line []byte) (sqlgen.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var rec sqlgen.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if rec == nil {
		return nil, errors.New("line is not an object")
	}

	for _, f := range sqlgen.RequiredFields {
		if _, ok := rec[f]; ok {
			continue
		}
		if numericFields[f] {
			rec[f] = json.Number("0")
		} else {
			rec[f] = ""
		}
	}
	if err := sqlgen.Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// LoadSpecies parses a YAML list of protected species
func LoadSpecies(r io.Reader) ([]models.Species, error) {
	var species []models.Species
	if err := yaml.NewDecoder(r).Decode(&species); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse species list: %w", err)
	}
	for i, s := range species {
		if s.SpeciesName == "" || s.ProtectionLevel == "" {
			return nil, fmt.Errorf("species entry %d needs species_name and protection_level", i+1)
		}
	}
	return species, nil
}
