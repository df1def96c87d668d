package masin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestBuildFilename(t *testing.T) {
	date := time.Date(2020, 1, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "core_masin_20200124_r004_flight330_1hz.nc", BuildFilename(330, date, 1, 4))
	assert.Equal(t, "core_masin_20200124_r012_flight007_50hz.nc", BuildFilename(7, date, 50, 12))
}

func TestFilenameRoundTrip(t *testing.T) {
	dates := []time.Time{
		time.Date(2020, 1, 24, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, date := range dates {
		for _, fn := range []int{0, 1, 330, 999} {
			for _, freq := range []int{1, 32, 50} {
				for _, rev := range []int{1, 4, 999} {
					want := Metadata{Date: date, Revision: rev, FlightNumber: fn, Frequency: freq}
					got, err := ParseFilename(BuildFilename(fn, date, freq, rev))
					require.NoError(t, err)
					assert.Equal(t, want, got)
				}
			}
		}
	}
}

func TestParseFilenameRejects(t *testing.T) {
	names := []string{
		"core_masin_20200124_r4_flight330_1hz.nc",
		"core_masin_2020012_r004_flight330_1hz.nc",
		"core_masin_20200124_r004_flight33_1hz.nc",
		"core_masin_20200124_r004_flight330_hz.nc",
		"core_masin_20200124_r004_flight330_1hz.nc.bak",
		"core_masin_20201324_r004_flight330_1hz.nc",
		"flight330.nc",
	}
	for _, name := range names {
		_, err := ParseFilename(name)
		assert.ErrorIs(t, err, ErrNoMatch, name)
	}
}

func TestParseFilenameUsesBaseName(t *testing.T) {
	m, err := ParseFilename("/data/obs/MASIN/core_masin_20200124_r001_flight330_1hz.nc")
	require.NoError(t, err)
	assert.Equal(t, 330, m.FlightNumber)
}

func TestPatternGlob(t *testing.T) {
	assert.Equal(t, "core_masin_*_r*_flight*_*hz.nc", Pattern{}.Glob())
	p := Pattern{Revision: Revision(4), FlightNumber: FlightNumber(330), Frequency: Frequency(1)}
	assert.Equal(t, "core_masin_*_r004_flight330_1hz.nc", p.Glob())
}

func TestFindCandidates(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "MASIN", "a", "core_masin_20200124_r004_flight330_1hz.nc"))
	touch(t, filepath.Join(root, "MASIN", "core_masin_20200124_r001_flight330_1hz.nc"))
	touch(t, filepath.Join(root, "MASIN", "core_masin_20200124_r001_flight330_50hz.nc"))
	touch(t, filepath.Join(root, "MASIN", "notes.txt"))
	touch(t, filepath.Join(root, "other", "core_masin_20200126_r001_flight331_1hz.nc"))

	got, err := FindCandidates(root, Pattern{Frequency: Frequency(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "MASIN", "a", "core_masin_20200124_r004_flight330_1hz.nc"),
		filepath.Join(root, "MASIN", "core_masin_20200124_r001_flight330_1hz.nc"),
	}, got)

	got, err = FindCandidates(filepath.Join(root, "other"), Pattern{})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = FindCandidates(root, Pattern{Revision: Revision(7)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindCandidatesMissingRoot(t *testing.T) {
	_, err := FindCandidates(filepath.Join(t.TempDir(), "nope"), Pattern{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSelectMostRecent(t *testing.T) {
	got, err := SelectMostRecent([]string{
		"x/core_masin_20200124_r001_flight330_1hz.nc",
		"x/core_masin_20200124_r004_flight330_1hz.nc",
		"x/core_masin_20200124_r002_flight330_1hz.nc",
	})
	require.NoError(t, err)
	assert.Equal(t, "x/core_masin_20200124_r004_flight330_1hz.nc", got)
}

// Two files sharing the highest revision: the lexically smallest path wins.
func TestSelectMostRecentTieBreak(t *testing.T) {
	got, err := SelectMostRecent([]string{
		"b/core_masin_20200124_r004_flight330_1hz.nc",
		"a/core_masin_20200124_r004_flight330_1hz.nc",
		"a/core_masin_20200124_r003_flight330_1hz.nc",
	})
	require.NoError(t, err)
	assert.Equal(t, "a/core_masin_20200124_r004_flight330_1hz.nc", got)

	_, err = SelectMostRecent(nil)
	assert.ErrorIs(t, err, ErrNoMatch)
}
