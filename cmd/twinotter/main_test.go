package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurec4a/twinotter/internal/config"
	"github.com/eurec4a/twinotter/internal/flight/flighttest"
	"github.com/eurec4a/twinotter/internal/segments"
	"github.com/eurec4a/twinotter/internal/summary"
)

const segmentDoc = `flight_id: TO-0330
segments:
  - kinds: [level]
    segment_id: TO-0330_s01
    start: 2020-01-24 14:02:10
    end: 2020-01-24 14:02:19
  - kinds: [level]
    segment_id: TO-0330_s02
    start: 2020-01-24 14:02:30
    end: 2020-01-24 14:02:39
`

func testEnv(t *testing.T) (*env, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	flighttest.New(60).Write(t, filepath.Join(root, "MASIN", "core_masin_20200124_r001_flight330_1hz.nc"))

	cfg := config.Default()
	cfg.Data.Root = root
	cfg.Data.Segments = filepath.Join(root, "flight-segments")
	cfg.Data.Summary = filepath.Join(root, "flight_summary.csv")
	cfg.Export.Dir = root
	require.NoError(t, os.MkdirAll(cfg.Data.Segments, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Data.Segments, "TO-0330.yaml"), []byte(segmentDoc), 0o644))

	var out bytes.Buffer
	return &env{
		ctx:  context.Background(),
		cfg:  cfg,
		log:  log.New(io.Discard, "", 0),
		out:  &out,
		json: true,
	}, &out
}

func decode(t *testing.T, out *bytes.Buffer) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	return v
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.toml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = loadConfig(missing, true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInfo(t *testing.T) {
	e, out := testEnv(t)
	require.NoError(t, runInfo(e, nil))
	v := decode(t, out)
	assert.EqualValues(t, 60, v["rows"])
	assert.Contains(t, v["channels"], "LON_OXTS")
}

func TestDeriveOnSegment(t *testing.T) {
	e, out := testEnv(t)
	require.NoError(t, runDerive(e, []string{e.cfg.Data.Root, "air_potential_temperature", "--segments", "TO-0330.yaml", "--kind", "level", "--index", "1"}))
	v := decode(t, out)
	assert.Equal(t, "derived", v["resolution"])
	assert.EqualValues(t, 10, v["stats"].(map[string]any)["count"])

	err := runDerive(e, []string{e.cfg.Data.Root, "altitude", "--kind", "level"})
	assert.ErrorContains(t, err, "--segments")
}

func TestExtractWritesSelectedVariables(t *testing.T) {
	e, out := testEnv(t)
	dst := filepath.Join(t.TempDir(), "level.csv")
	require.NoError(t, runExtract(e, []string{"--segments", "TO-0330.yaml", "--kind", "level", "--vars", "altitude,relative_humidity", "-o", dst}))
	v := decode(t, out)
	assert.EqualValues(t, 20, v["rows"])
	assert.Equal(t, "csv", v["format"])

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(b), "time,altitude,relative_humidity")
}

func TestSummaryWritesAllOutputs(t *testing.T) {
	e, _ := testEnv(t)
	xlsx := filepath.Join(t.TempDir(), "flights.xlsx")
	db := filepath.Join(t.TempDir(), "flights.db")
	require.NoError(t, runSummary(e, []string{"--xlsx", xlsx, "--index", db}))

	entries, err := summary.ReadCSV(e.cfg.Data.Summary)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 330, entries[0].FlightNumber)
	assert.FileExists(t, xlsx)

	ix, err := summary.OpenIndex(db)
	require.NoError(t, err)
	defer ix.Close()
	rows, err := ix.Flights()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSegmentsInitFromLegs(t *testing.T) {
	e, _ := testEnv(t)
	legs := filepath.Join(t.TempDir(), "legs.csv")
	require.NoError(t, os.WriteFile(legs, []byte("Label,Start,End\nLevel,14:02:05,14:02:20\n"), 0o644))
	dst := filepath.Join(t.TempDir(), "new.yaml")

	require.NoError(t, runSegmentsInit(e, []string{"--legs", legs, "-o", dst}))
	c, err := segments.Load(dst)
	require.NoError(t, err)
	require.Len(t, c.Segments, 1)
	assert.Equal(t, []string{"level"}, c.Segments[0].Kinds)
}
