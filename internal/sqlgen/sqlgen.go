// Package sqlgen turns annotation records into image_info inserts and
// guards the raw statements accepted over HTTP.
package sqlgen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Table is the detections table every generated statement targets
const Table = "image_info"

// RequiredFields must be present in every record, in column order
var RequiredFields = []string{
	"object", "animal", "count", "behavior", "status", "percentage", "confidence",
	"image_id", "sensor_id", "location", "longitude", "latitude", "time", "date", "caption",
}

// OptionalFields are copied when present
var OptionalFields = []string{"type", "path"}

// Record is a decoded annotation as produced by the labelling pipeline
type Record map[string]any

// ValidationError lists what is wrong with a record
type ValidationError struct {
	Missing []string
	Field   string
	Value   any
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return fmt.Sprintf("field %q has unsupported type %T", e.Field, e.Value)
}

// Validate checks required fields and value types
func Validate(r Record) error {
	var missing []string
	for _, f := range RequiredFields {
		if _, ok := r[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	for _, f := range columns(r) {
		switch r[f].(type) {
		case nil, string, bool, json.Number, float64, float32, int, int64, int32:
		default:
			return &ValidationError{Field: f, Value: r[f]}
		}
	}
	return nil
}

// InsertArgs returns the columns present in r and their values, ready for
// a parameterized INSERT
func InsertArgs(r Record) ([]string, []any, error) {
	if err := Validate(r); err != nil {
		return nil, nil, err
	}

	cols := columns(r)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = bindValue(r[c])
	}
	return cols, args, nil
}

// InsertStatement renders r as a literal INSERT statement. Strings are
// quoted with embedded single quotes doubled.
func InsertStatement(r Record) (string, error) {
	cols, args, err := InsertArgs(r)
	if err != nil {
		return "", err
	}

	values := make([]string, len(args))
	for i, a := range args {
		values[i] = literal(a)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		Table, strings.Join(cols, ", "), strings.Join(values, ", ")), nil
}

// Placeholders returns n comma-separated bind markers
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func columns(r Record) []string {
	cols := make([]string, 0, len(RequiredFields)+len(OptionalFields))
	for _, f := range RequiredFields {
		if _, ok := r[f]; ok {
			cols = append(cols, f)
		}
	}
	for _, f := range OptionalFields {
		if _, ok := r[f]; ok {
			cols = append(cols, f)
		}
	}
	return cols
}

func bindValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case float32:
		return float64(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
