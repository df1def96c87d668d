package segments

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurec4a/twinotter/internal/flight"
	"github.com/eurec4a/twinotter/internal/flight/flighttest"
)

const document = `name: RF01
mission: EUREC4A
platform: TO
flight_id: TO-0330
date: 2020-01-24
takeoff: 2020-01-24 14:02:00
landing: 2020-01-24 14:02:59
remarks:
  - fixture
segments:
  - kinds: [level, cloud_base]
    name: leg 1
    irregularities: []
    segment_id: TO-0330_s01
    start: 2020-01-24 14:02:10
    end: 2020-01-24 14:02:19
  - kinds: [profile]
    name: descent
    irregularities: [turbulence]
    segment_id: TO-0330_s02
    start: 2020-01-24 14:02:15
    end: 2020-01-24 14:02:24
  - kinds: [level]
    name: leg 2
    segment_id: TO-0330_s03
    start: 2020-01-24T14:02:30Z
    end: 2020-01-24 14:02:39.000000
  - kinds: [level]
    name: leg 3 (overlaps leg 2)
    segment_id: TO-0330_s04
    start: 2020-01-24 14:02:35
    end: 2020-01-24 14:02:44
`

func loadFixture(t *testing.T) (*flight.Dataset, *flighttest.Fixture) {
	t.Helper()
	fx := flighttest.New(60)
	path := fx.Write(t, filepath.Join(t.TempDir(), "core_masin_20200124_r001_flight330_1hz.nc"))
	ds, err := flight.Load(path, flight.DefaultOptions())
	require.NoError(t, err)
	return ds, fx
}

func parse(t *testing.T, doc string) *Catalog {
	t.Helper()
	c, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return c
}

func TestParseDocument(t *testing.T) {
	c := parse(t, document)

	assert.Equal(t, "TO-0330", c.FlightID)
	assert.Equal(t, time.Date(2020, 1, 24, 0, 0, 0, 0, time.UTC), c.Date.Time)
	require.Len(t, c.Segments, 4)
	assert.Equal(t, time.Date(2020, 1, 24, 14, 2, 10, 0, time.UTC), c.Segments[0].Start.Time)
	assert.Equal(t, time.Date(2020, 1, 24, 14, 2, 30, 0, time.UTC), c.Segments[2].Start.Time)
	assert.Equal(t, []string{"turbulence"}, c.Segments[1].Irregularities)
	assert.Equal(t, []string{"cloud_base", "level", "profile"}, c.Kinds())
}

func TestCountMatchesMatching(t *testing.T) {
	c := parse(t, document)
	for _, kind := range append(c.Kinds(), "circle") {
		assert.Equal(t, len(c.Matching(kind)), c.Count(kind), kind)
	}
	assert.Equal(t, 3, c.Count("level"))

	ids := []string{}
	for _, s := range c.Matching("level") {
		ids = append(ids, s.SegmentID)
	}
	assert.Equal(t, []string{"TO-0330_s01", "TO-0330_s03", "TO-0330_s04"}, ids)
}

func TestParseMalformed(t *testing.T) {
	docs := map[string]string{
		"not yaml":       "segments: [",
		"not a mapping":  "- a\n- b\n",
		"no segments":    "name: RF01\n",
		"bad time":       "segments:\n  - kinds: [level]\n    segment_id: a\n    start: yesterday\n    end: 2020-01-24 14:00:00\n",
		"end before":     "segments:\n  - kinds: [level]\n    segment_id: a\n    start: 2020-01-24 14:00:00\n    end: 2020-01-24 13:00:00\n",
		"missing id":     "segments:\n  - kinds: [level]\n    start: 2020-01-24 14:00:00\n    end: 2020-01-24 15:00:00\n",
		"missing end":    "segments:\n  - kinds: [level]\n    segment_id: a\n    start: 2020-01-24 14:00:00\n",
		"kinds not list": "segments:\n  - kinds: {a: b}\n    segment_id: a\n    start: 2020-01-24 14:00:00\n    end: 2020-01-24 15:00:00\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrMalformedDocument)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Segments, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractIndexedInclusive(t *testing.T) {
	ds, _ := loadFixture(t)
	c := parse(t, document)

	for i, seg := range c.Matching("level") {
		got, err := ExtractOne(ds, c, "level", i)
		require.NoError(t, err)
		require.Equal(t, 10, got.Len())
		assert.Equal(t, seg.Start.Time, got.Start())
		assert.Equal(t, seg.End.Time, got.End())
		for _, ts := range got.Time {
			assert.False(t, ts.Before(seg.Start.Time) || ts.After(seg.End.Time))
		}

		again, err := ExtractOne(ds, c, "level", i)
		require.NoError(t, err)
		assert.Equal(t, got.Time, again.Time)
	}
}

func TestExtractIndexOutOfRange(t *testing.T) {
	ds, _ := loadFixture(t)
	c := parse(t, document)

	_, err := ExtractOne(ds, c, "level", 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = ExtractOne(ds, c, "level", -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = ExtractOne(ds, c, "circle", 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

// Legs 2 and 3 overlap by five samples; concatenation repeats them rather
// than merging.
func TestExtractAllConcatenatesWithoutDedup(t *testing.T) {
	ds, fx := loadFixture(t)
	c := parse(t, document)

	all, err := ExtractAll(ds, c, "level")
	require.NoError(t, err)
	assert.Equal(t, 30, all.Len())
	assert.Equal(t, fx.Time(10), all.Time[0])
	assert.Equal(t, fx.Time(30), all.Time[10])
	assert.Equal(t, fx.Time(35), all.Time[20])
	assert.Equal(t, fx.Time(44), all.End())

	count := 0
	for _, ts := range all.Time {
		if ts.Equal(fx.Time(37)) {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestExtractAllNoMatches(t *testing.T) {
	ds, _ := loadFixture(t)
	c := parse(t, document)

	got, err := ExtractAll(ds, c, "circle")
	require.NoError(t, err)
	assert.Zero(t, got.Len())
	assert.Equal(t, ds.Names(), got.Names())
}

func TestParseLegsCSV(t *testing.T) {
	day := time.Date(2020, 1, 24, 0, 0, 0, 0, time.UTC)
	c, err := ParseLegsCSV(strings.NewReader("Label,Start,End\nLeg,14:02:10,14:02:19\nProfile, 14:02:20,14:02:40\nLeg,14:02:45,14:02:50\n"), day)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Count("leg"))
	assert.Equal(t, 1, c.Count("profile"))
	assert.Equal(t, "leg_02", c.Segments[2].SegmentID)
	assert.Equal(t, day.Add(14*time.Hour+2*time.Minute+20*time.Second), c.Segments[1].Start.Time)

	_, err = ParseLegsCSV(strings.NewReader("Name,From,To\n"), day)
	assert.ErrorIs(t, err, ErrMalformedDocument)
	_, err = ParseLegsCSV(strings.NewReader("Type,Start,End\nLeg,14:00:00,13:00:00\n"), day)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestAuthorAndRoundTrip(t *testing.T) {
	ds, fx := loadFixture(t)
	c := NewForFlight(ds)

	assert.Equal(t, "RF01", c.Name)
	assert.Equal(t, "TO-0330", c.FlightID)
	assert.Equal(t, fx.Time(0), c.Takeoff.Time)
	assert.Equal(t, fx.Time(59), c.Landing.Time)

	late, err := c.Add(ds, []string{"level"}, "leg 2", fx.Time(40), fx.Time(50).Add(400*time.Millisecond))
	require.NoError(t, err)
	early, err := c.Add(ds, []string{"profile"}, "ascent", fx.Time(20), fx.Time(5))
	require.NoError(t, err)

	assert.Equal(t, "TO-0330_s01", late.SegmentID)
	assert.Equal(t, "TO-0330_s02", early.SegmentID)
	assert.Equal(t, fx.Time(50), late.End.Time)
	assert.Equal(t, fx.Time(5), early.Start.Time)
	assert.Equal(t, "ascent", c.Segments[0].Name, "sorted by start")

	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))
	back, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, c.Segments, back.Segments)
	assert.Equal(t, c.Date.Time, back.Date.Time)

	assert.True(t, c.Remove("TO-0330_s01"))
	assert.False(t, c.Remove("TO-0330_s01"))
	assert.Equal(t, "EUREC4A_TO_Flight-Segments_20200124_0.1.yaml", DocumentName(c.Date.Time, "v0.1"))
}
