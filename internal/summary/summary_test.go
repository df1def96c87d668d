package summary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eurec4a/twinotter/internal/flight/flighttest"
	"github.com/eurec4a/twinotter/internal/segments"
)

func fixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	a := flighttest.New(120)
	a.FlightNumber = 331
	a.Date = time.Date(2020, 1, 26, 0, 0, 0, 0, time.UTC)
	a.Start = 9*3600 + 5*60
	a.Write(t, filepath.Join(root, "MASIN", "core_masin_20200126_r002_flight331_1hz.nc"))

	b := flighttest.New(60)
	b.Write(t, filepath.Join(root, "MASIN", "core_masin_20200124_r001_flight330_1hz.nc"))
	return root
}

func TestGenerateNewSummary(t *testing.T) {
	root := fixtureTree(t)
	out := filepath.Join(t.TempDir(), "summary.csv")

	entries, err := NewGenerator(nil).Generate(root, out)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 330, entries[0].FlightNumber)
	assert.Equal(t, 331, entries[1].FlightNumber)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Flight Number,Date,Start,End,Revision,Frequency",
		"330,2020-01-24,14:02:00,14:02:59,1,1",
		"331,2020-01-26,9:05:00,9:06:59,2,1",
		"",
	}, "\n"), string(body))
}

func TestGenerateKeepsExistingRows(t *testing.T) {
	root := fixtureTree(t)
	out := filepath.Join(t.TempDir(), "summary.csv")
	require.NoError(t, os.WriteFile(out, []byte(
		"Flight Number,Date,Start,End,Revision,Frequency\n"+
			"331,2020-01-26,9:00:00,12:00:00,2,1\n"+
			"345,2020-02-13,13:00:00,16:00:00,1,1\n"), 0o644))

	entries, err := NewGenerator(nil).Generate(root, out)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []int{330, 331, 345}, []int{entries[0].FlightNumber, entries[1].FlightNumber, entries[2].FlightNumber})
	assert.Equal(t, 12*time.Hour, entries[1].End, "existing row is not re-read")

	again, err := ReadCSV(out)
	require.NoError(t, err)
	for i := range again {
		again[i].Path = entries[i].Path
	}
	assert.Equal(t, entries, again)
}

func TestReadCSVErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadCSV(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Flight Number,Date\n330,2020-01-24\n"), 0o644))
	_, err = ReadCSV(bad)
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	entries, err := NewGenerator(nil).Scan(fixtureTree(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, WriteXLSX(path, entries))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"330", "2020-01-24", "14:02:00", "14:02:59", "1", "1"}, rows[1])
}

func TestIndex(t *testing.T) {
	entries, err := NewGenerator(nil).Scan(fixtureTree(t))
	require.NoError(t, err)

	ix, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.PutFlights(entries))
	require.NoError(t, ix.PutFlights(entries[:1]))
	got, err := ix.Flights()
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	c, err := segments.Parse(strings.NewReader(`flight_id: TO-0330
segments:
  - kinds: [level, cloud_base]
    segment_id: a
    start: 2020-01-24 14:02:10
    end: 2020-01-24 14:02:19
  - kinds: [profile]
    segment_id: b
    start: 2020-01-24 14:02:20
    end: 2020-01-24 14:02:29
`))
	require.NoError(t, err)
	require.NoError(t, ix.PutSegments(c))
	require.NoError(t, ix.PutSegments(c))

	counts, err := ix.CountSegments("level")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"TO-0330": 1}, counts)
}
