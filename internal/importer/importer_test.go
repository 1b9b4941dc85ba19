package importer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"camtrap/internal/db"
	"camtrap/internal/models"
	"camtrap/internal/sqlgen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func openStore(t *testing.T, name string) *db.DB {
	t.Helper()
	store, err := db.OpenSQLite(context.Background(), "sqlite", filepath.Join(t.TempDir(), name), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

const sample = `{"object":"animal","animal":"tiger","count":2,"location":"Ridge","longitude":"E124.71","latitude":"N40.12","time":"0830","date":"20230105"}

{"object":"animal","animal":"deer","count":1,"behavior":"grazing","type":"video","path":"/static/deer.mp4"}
not json
{"object":"animal","animal":"boar","count":{"nested":true}}
{"object":"animal","animal":"fox"}
`

func TestImportJSONL(t *testing.T) {
	store := openStore(t, "import.db")
	ctx := context.Background()

	res, err := ImportJSONL(ctx, strings.NewReader(sample), store, Options{BatchSize: 2, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, Result{Lines: 6, Imported: 3, Errors: 2}, res)

	rows, err := store.ListDetections(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "tiger", rows[0].Animal)
	assert.Equal(t, int64(2), rows[0].Count.Int64)
	assert.Equal(t, "E124.71", rows[0].Longitude.String)

	assert.Equal(t, "video", rows[1].MediaType.String)
	assert.Equal(t, "/static/deer.mp4", rows[1].Path.String)

	// absent fields take the importer defaults
	assert.True(t, rows[2].Count.Valid)
	assert.Zero(t, rows[2].Count.Int64)
	assert.Equal(t, "", rows[2].Location.String)
	assert.True(t, rows[2].Location.Valid)
	assert.False(t, rows[2].Path.Valid)
}

type flakyInserter struct {
	batches  int
	inserted []string
}

func (f *flakyInserter) InsertDetections(ctx context.Context, recs []sqlgen.Record) (int, error) {
	f.batches++
	return 0, assert.AnError
}

func (f *flakyInserter) InsertDetection(ctx context.Context, rec sqlgen.Record) (int64, error) {
	if rec["animal"] == "bad" {
		return 0, assert.AnError
	}
	f.inserted = append(f.inserted, rec["animal"].(string))
	return int64(len(f.inserted)), nil
}

func TestImportIsolatesFailedBatch(t *testing.T) {
	input := `{"animal":"a"}
{"animal":"bad"}
{"animal":"c"}`
	dst := &flakyInserter{}

	res, err := ImportJSONL(context.Background(), strings.NewReader(input), dst, Options{BatchSize: 10})
	require.NoError(t, err)
	assert.Equal(t, Result{Lines: 3, Imported: 2, Errors: 1}, res)
	assert.Equal(t, 1, dst.batches)
	assert.Equal(t, []string{"a", "c"}, dst.inserted)
}

func TestDecodeRecordDefaults(t *testing.T) {
	rec, err := decodeRecord([]byte(`{"animal":"lynx","count":3}`))
	require.NoError(t, err)
	assert.Equal(t, "lynx", rec["animal"])
	assert.Equal(t, "", rec["object"])
	assert.Equal(t, json.Number("0"), rec["percentage"])

	_, err = decodeRecord([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = decodeRecord([]byte(`null`))
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	src := openStore(t, "src.db")
	dst := openStore(t, "dst.db")
	ctx := context.Background()

	var lines []string
	for i := 0; i < 7; i++ {
		lines = append(lines, `{"object":"animal","animal":"deer","count":1}`)
	}
	_, err := ImportJSONL(ctx, strings.NewReader(strings.Join(lines, "\n")), src, Options{})
	require.NoError(t, err)

	n, err := Migrate(ctx, src, dst, MigrateOptions{PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	count, err := dst.CountDetections(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	// ids are preserved, so a second copy conflicts unless truncated
	_, err = Migrate(ctx, src, dst, MigrateOptions{PageSize: 3})
	assert.Error(t, err)

	n, err = Migrate(ctx, src, dst, MigrateOptions{PageSize: 10, Truncate: true})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestLoadSpecies(t *testing.T) {
	species, err := LoadSpecies(strings.NewReader(`
- species_name: tiger
  scientific_name: Panthera tigris
  protection_level: class I
- species_name: leopard cat
  protection_level: class II
`))
	require.NoError(t, err)
	assert.Equal(t, []models.Species{
		{SpeciesName: "tiger", ScientificName: "Panthera tigris", ProtectionLevel: "class I"},
		{SpeciesName: "leopard cat", ProtectionLevel: "class II"},
	}, species)

	_, err = LoadSpecies(strings.NewReader("- species_name: nameless\n"))
	assert.Error(t, err)

	species, err = LoadSpecies(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, species)
}

func TestExportRoundTrip(t *testing.T) {
	src := openStore(t, "export.db")
	ctx := context.Background()

	_, err := src.InsertDetection(ctx, sqlgen.Record{
		"object": "animal", "animal": "O'Brien's fox", "count": json.Number("2"),
		"behavior": nil, "status": "ok", "percentage": json.Number("50"), "confidence": json.Number("9"),
		"image_id": "img1", "sensor_id": "cam1", "location": "Ridge",
		"longitude": "E124.71", "latitude": "N40.12", "time": "0830", "date": "20230105", "caption": "",
		"path": "/static/fox.jpg",
	})
	require.NoError(t, err)

	var out strings.Builder
	n, err := Export(ctx, src, &out, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stmt := out.String()
	assert.Contains(t, stmt, "'O''Brien''s fox'")
	assert.Contains(t, stmt, "NULL")
	assert.Contains(t, stmt, "'/static/fox.jpg'")
	assert.True(t, strings.HasPrefix(stmt, "INSERT INTO image_info ("))

	dst := openStore(t, "replay.db")
	dump := strings.TrimSpace(stmt) + "\nDELETE FROM image_info;\n\nINSERT INTO image_info (object) VALUES ('a'); DROP TABLE image_info;\n"
	res, err := ReplaySQL(ctx, strings.NewReader(dump), dst, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, Result{Lines: 4, Imported: 1, Errors: 2}, res)

	rows, err := dst.ListDetections(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "O'Brien's fox", rows[0].Animal)
	assert.False(t, rows[0].Behavior.Valid)
	assert.Equal(t, int64(50), rows[0].Percentage.Int64)
}

func TestExportKeepsMultiLineCaptions(t *testing.T) {
	src := openStore(t, "multiline.db")
	ctx := context.Background()

	captions := []string{
		"A tiger walks.\nIt then rests.",
		"Two deer;\r\none grazing, one 'alert'\n",
		"single line",
	}
	for _, c := range captions {
		_, err := src.InsertDetection(ctx, sqlgen.Record{
			"object": "animal", "animal": "tiger", "count": json.Number("1"),
			"behavior": "", "status": "", "percentage": json.Number("0"), "confidence": json.Number("0"),
			"image_id": "", "sensor_id": "", "location": "", "longitude": "", "latitude": "",
			"time": "", "date": "", "caption": c,
		})
		require.NoError(t, err)
	}

	var dump strings.Builder
	n, err := Export(ctx, src, &dump, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dst := openStore(t, "multiline-replay.db")
	res, err := ReplaySQL(ctx, strings.NewReader(dump.String()), dst, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Zero(t, res.Errors)
	assert.Equal(t, strings.Count(dump.String(), "\n"), res.Lines)

	rows, err := dst.ListDetections(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, c := range captions {
		assert.Equal(t, c, rows[i].Caption.String)
	}
}

func TestReplayReportsTruncatedDump(t *testing.T) {
	dst := openStore(t, "truncated.db")
	dump := "INSERT INTO image_info (object, animal, caption) VALUES ('animal', 'deer', 'ok');\n" +
		"INSERT INTO image_info (object, animal, caption) VALUES ('animal', 'deer', 'cut off\n"

	res, err := ReplaySQL(context.Background(), strings.NewReader(dump), dst, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, Result{Lines: 2, Imported: 1, Errors: 1}, res)
}

func TestImportLogsProgressEveryHundredRows(t *testing.T) {
	store := openStore(t, "progress.db")
	core, logs := observer.New(zap.InfoLevel)

	lines := make([]string, 250)
	for i := range lines {
		lines[i] = `{"object":"animal","animal":"deer","count":1}`
	}
	res, err := ImportJSONL(context.Background(), strings.NewReader(strings.Join(lines, "\n")), store,
		Options{BatchSize: 500, Logger: zap.New(core)})
	require.NoError(t, err)
	assert.Equal(t, 250, res.Imported)

	progress := logs.FilterMessage("import progress").All()
	require.Len(t, progress, 2)
	assert.Equal(t, int64(100), progress[0].ContextMap()["rows"])
	assert.Equal(t, int64(200), progress[1].ContextMap()["rows"])
}
