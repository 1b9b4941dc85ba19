package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"camtrap/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestImportVerifyExport(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "tools.db")
	common := []string{"--config", filepath.Join(dir, "missing.yaml"), "--driver", "sqlite", "--db", dbFile, "--log-level", "error"}

	out := run(t, append([]string{"init-db"}, common...)...)
	assert.Contains(t, out, "Schema ready")

	jsonl := filepath.Join(dir, "records.jsonl")
	require.NoError(t, os.WriteFile(jsonl, []byte(
		`{"object":"animal","animal":"tiger","count":2,"location":"Ridge","longitude":"E124.71","latitude":"N40.12","date":"20230105"}`+"\n"+
			`{"object":"animal","animal":"deer","count":1,"location":"Ridge","longitude":"E124.71","latitude":"N40.12","date":"20230106"}`+"\n"), 0644))

	out = run(t, append([]string{"import", jsonl}, common...)...)
	assert.Contains(t, out, "Imported 2 of 2 lines")

	out = run(t, append([]string{"verify"}, common...)...)
	assert.Contains(t, out, "Detections: 2")
	assert.Contains(t, out, "Animals:    2")

	out = run(t, append([]string{"crosscheck"}, common...)...)
	assert.Contains(t, out, "Checked 1 points: 1 consistent, 0 mismatched")

	dump := filepath.Join(dir, "dump.sql")
	run(t, append([]string{"export", "-o", dump}, common...)...)
	data, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "INSERT INTO image_info"))

	replica := append([]string{}, common...)
	replica[5] = filepath.Join(dir, "replica.db")
	out = run(t, append([]string{"replay", dump}, replica...)...)
	assert.Contains(t, out, "Executed 2 statements (0 errors)")
}

type countingCache struct {
	invalidated, closed int
}

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidated++
	return nil
}

func (c *countingCache) Close() error {
	c.closed++
	return nil
}

func TestWritesInvalidateResponseCache(t *testing.T) {
	fake := &countingCache{}
	prev := openCache
	openCache = func(context.Context, config.CacheConfig, *zap.Logger) (invalidator, error) {
		return fake, nil
	}
	t.Cleanup(func() { openCache = prev })
	t.Setenv("CAMTRAP_CACHE_ENABLED", "true")

	dir := t.TempDir()
	common := []string{"--config", filepath.Join(dir, "missing.yaml"), "--driver", "sqlite", "--db", filepath.Join(dir, "cache.db"), "--log-level", "error"}

	run(t, append([]string{"init-db"}, common...)...)
	assert.Zero(t, fake.invalidated)

	jsonl := filepath.Join(dir, "records.jsonl")
	require.NoError(t, os.WriteFile(jsonl, []byte(`{"object":"animal","animal":"deer","count":1}`+"\n"), 0644))
	run(t, append([]string{"import", jsonl}, common...)...)
	assert.Equal(t, 1, fake.invalidated)

	run(t, append([]string{"backfill-paths"}, common...)...)
	assert.Equal(t, 2, fake.invalidated)
	assert.Equal(t, 2, fake.closed)
}
