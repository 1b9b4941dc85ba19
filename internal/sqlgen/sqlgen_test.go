package sqlgen

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		"object":     "animal",
		"animal":     "moose",
		"count":      float64(1),
		"behavior":   "grazing",
		"status":     "healthy",
		"percentage": float64(25),
		"confidence": float64(95),
		"caption":    "a moose's breakfast",
		"image_id":   "08997y8y",
		"sensor_id":  "cam-7",
		"location":   "Daxinganling",
		"longitude":  "E124.71",
		"latitude":   "N52.33",
		"time":       "0325",
		"date":       "20050726",
	}
}

func TestInsertStatement(t *testing.T) {
	r := sampleRecord()
	r["path"] = "/images/moose_001.jpg"

	stmt, err := InsertStatement(r)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stmt,
		"INSERT INTO image_info (object, animal, count, behavior, status, percentage, confidence, image_id, sensor_id, location, longitude, latitude, time, date, caption, path) VALUES ("))
	assert.Contains(t, stmt, "'a moose''s breakfast'")
	assert.Contains(t, stmt, "'animal', 'moose', 1, 'grazing'")
	assert.True(t, strings.HasSuffix(stmt, "'/images/moose_001.jpg');"))
	assert.NotContains(t, stmt, "type")
}

func TestInsertArgs(t *testing.T) {
	r := sampleRecord()
	r["count"] = json.Number("3")
	r["confidence"] = json.Number("87.5")
	r["type"] = nil

	cols, args, err := InsertArgs(r)
	require.NoError(t, err)
	require.Len(t, args, len(cols))
	assert.Equal(t, "type", cols[len(cols)-1])
	assert.Nil(t, args[len(args)-1])
	assert.Equal(t, int64(3), args[2])
	assert.Equal(t, 87.5, args[6])
}

func TestValidateMissingFields(t *testing.T) {
	r := sampleRecord()
	delete(r, "caption")
	delete(r, "animal")

	err := Validate(r)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"animal", "caption"}, verr.Missing)
	assert.Equal(t, "missing required fields: animal, caption", err.Error())
}

func TestValidateUnsupportedType(t *testing.T) {
	r := sampleRecord()
	r["behavior"] = []any{"walking"}

	err := Validate(r)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "behavior", verr.Field)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}

func TestCheckWrite(t *testing.T) {
	s, err := CheckWrite("  INSERT INTO image_info (animal) VALUES ('a;b');  ")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO image_info (animal) VALUES ('a;b')", s)

	_, err = CheckWrite("update image_info set path = 'x'")
	assert.NoError(t, err)

	_, err = CheckWrite("DELETE FROM image_info")
	assert.ErrorIs(t, err, ErrNotWrite)

	_, err = CheckWrite("inserted")
	assert.ErrorIs(t, err, ErrNotWrite)

	_, err = CheckWrite("INSERT INTO t VALUES (1); DROP TABLE t")
	assert.ErrorIs(t, err, ErrMultipleStatements)
}

func TestCheckSelect(t *testing.T) {
	_, err := CheckSelect("SELECT * FROM protected_species WHERE species_name = 'it''s'")
	assert.NoError(t, err)

	_, err = CheckSelect("select(1)")
	assert.NoError(t, err)

	_, err = CheckSelect(";")
	assert.ErrorIs(t, err, ErrEmptyStatement)

	_, err = CheckSelect("INSERT INTO t VALUES (1)")
	assert.ErrorIs(t, err, ErrNotSelect)

	_, err = CheckSelect("SELECT 1 -- x\n; DELETE FROM t")
	assert.ErrorIs(t, err, ErrMultipleStatements)

	_, err = CheckSelect("SELECT `a;b` FROM t")
	assert.NoError(t, err)
}

func TestGuardsHonourBackslashEscapes(t *testing.T) {
	// MySQL reads \' as an escaped quote, so the semicolons below are
	// statement separators there
	_, err := CheckSelect(`SELECT 'a\''; DELETE FROM image_info; -- '`)
	assert.ErrorIs(t, err, ErrMultipleStatements)

	_, err = CheckWrite(`INSERT INTO image_info (object, animal) VALUES ('x\'', 'y'); DROP TABLE image_info; -- ')`)
	assert.ErrorIs(t, err, ErrMultipleStatements)

	_, err = CheckSelect(`SELECT "a\""; DELETE FROM image_info; -- "`)
	assert.ErrorIs(t, err, ErrMultipleStatements)

	_, err = CheckSelect(`SELECT 'C:\\temp', 'it''s' FROM image_info`)
	assert.NoError(t, err)
}

func TestGuardsHonourComments(t *testing.T) {
	_, err := CheckSelect("SELECT 1 /* ' */; DELETE FROM image_info")
	assert.ErrorIs(t, err, ErrMultipleStatements)

	_, err = CheckSelect("SELECT 1 /*!; DELETE FROM image_info */")
	assert.ErrorIs(t, err, ErrMultipleStatements)

	_, err = CheckSelect("SELECT 1 # '\n; DELETE FROM image_info")
	assert.ErrorIs(t, err, ErrMultipleStatements)

	_, err = CheckSelect("SELECT animal /* species */ FROM image_info -- newest\nORDER BY id DESC")
	assert.NoError(t, err)
}

func TestUnterminated(t *testing.T) {
	assert.False(t, Unterminated("INSERT INTO image_info (caption) VALUES ('done');"))
	assert.True(t, Unterminated("INSERT INTO image_info (caption) VALUES ('A tiger walks."))
	assert.False(t, Unterminated("INSERT INTO image_info (caption) VALUES ('A tiger walks.\nIt then rests.');"))
	assert.True(t, Unterminated("INSERT INTO image_info (caption) VALUES ('it''s"))
	assert.False(t, Unterminated(`INSERT INTO image_info (path) VALUES ('C:\');`))
	assert.True(t, Unterminated("SELECT 1 /* open"))
}
