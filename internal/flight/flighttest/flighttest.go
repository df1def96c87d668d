// Package flighttest writes small MASIN-shaped netCDF files for tests.
package flighttest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/require"
)

// Fill is the _FillValue MASIN uses for missing samples. The CDF writer
// rejects attribute names with a leading underscore, so files written here
// never carry it; tests that need it decode through an in-memory table.
const Fill = -9999.0

// Column is one channel of a fixture. Flag columns are written as int32.
type Column struct {
	Name   string
	Units  string
	Values []float64
	Flag   bool
}

// Fixture describes a core file. Rows are one second apart starting at
// Start seconds after midnight of Date.
type Fixture struct {
	Date         time.Time
	FlightNumber int
	Start        int
	Comment      string
	Columns      []Column
}

// New returns a fixture with n rows of plausible values for every channel
// the loader and the derived variables use.
func New(n int) *Fixture {
	f := &Fixture{
		Date:         time.Date(2020, 1, 24, 0, 0, 0, 0, time.UTC),
		FlightNumber: 330,
		Start:        14*3600 + 2*60,
		Comment:      "Fixture flight for tests",
	}
	ramp := func(a, step float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = a + step*float64(i)
		}
		return out
	}
	f.Columns = []Column{
		{Name: "LON_OXTS", Units: "degree_east", Values: ramp(-57.7, 0.001)},
		{Name: "LAT_OXTS", Units: "degree_north", Values: ramp(13.2, 0.001)},
		{Name: "ALT_OXTS", Units: "m", Values: ramp(300, 1)},
		{Name: "LON_OXTS_FLAG", Units: "1b", Values: make([]float64, n), Flag: true},
		{Name: "ROLL_OXTS", Units: "degree", Values: make([]float64, n)},
		{Name: "TAT_ND_R", Units: "K", Values: ramp(295, -0.01)},
		{Name: "TAT_DI_R", Units: "K", Values: ramp(294.5, -0.01)},
		{Name: "TDEW_BUCK", Units: "K", Values: ramp(290, -0.01)},
		{Name: "PS_AIR", Units: "hPa", Values: ramp(980, -0.1)},
		{Name: "H2O_LICOR", Units: "mol mol-1", Values: ramp(0.02, 0)},
		{Name: "CO2_LICOR", Units: "ppm", Values: ramp(410, 0)},
		{Name: "U_OXTS", Units: "m s-1", Values: ramp(-8, 0)},
		{Name: "V_OXTS", Units: "m s-1", Values: ramp(-2, 0)},
		{Name: "W_OXTS", Units: "m s-1", Values: ramp(0, 0)},
	}
	return f
}

// Rows returns the number of rows.
func (f *Fixture) Rows() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return len(f.Columns[0].Values)
}

// Set overwrites one sample of the named column.
func (f *Fixture) Set(name string, row int, v float64) *Fixture {
	f.Column(name).Values[row] = v
	return f
}

// Column returns the named column, adding an empty one if absent.
func (f *Fixture) Column(name string) *Column {
	for i := range f.Columns {
		if f.Columns[i].Name == name {
			return &f.Columns[i]
		}
	}
	f.Columns = append(f.Columns, Column{Name: name, Values: make([]float64, f.Rows())})
	return &f.Columns[len(f.Columns)-1]
}

// Remove drops the named column.
func (f *Fixture) Remove(name string) *Fixture {
	out := f.Columns[:0]
	for _, c := range f.Columns {
		if c.Name != name {
			out = append(out, c)
		}
	}
	f.Columns = out
	return f
}

// Time returns the timestamp of row i.
func (f *Fixture) Time(i int) time.Time {
	return f.Date.Add(time.Duration(f.Start+i) * time.Second)
}

// Seconds returns the raw Time channel: seconds after midnight per row.
func (f *Fixture) Seconds() []float64 {
	out := make([]float64, f.Rows())
	for i := range out {
		out[i] = float64(f.Start + i)
	}
	return out
}

// TimeUnits is the units attribute written on the Time channel.
func (f *Fixture) TimeUnits() string {
	return "seconds since " + f.Date.Format("2006-01-02") + " 00:00:00 +0000 UTC"
}

func hms(s int) string {
	return fmt.Sprintf("%02d:%02d:%02d UTC", s/3600, s/60%60, s%60)
}

// Write stores f as a netCDF file at path, creating parent directories.
func (f *Fixture) Write(t testing.TB, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	w, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	n := f.Rows()
	dims := []string{"data_point"}

	require.NoError(t, w.AddVar("Time", api.Variable{
		Values:     f.Seconds(),
		Dimensions: dims,
		Attributes: attrs(t, []string{"units"}, map[string]any{"units": f.TimeUnits()}),
	}))

	for _, c := range f.Columns {
		var values any = c.Values
		if c.Flag {
			ints := make([]int32, len(c.Values))
			for i, v := range c.Values {
				ints[i] = int32(v)
			}
			values = ints
		}
		require.NoError(t, w.AddVar(c.Name, api.Variable{
			Values:     values,
			Dimensions: dims,
			Attributes: attrs(t, []string{"units"}, map[string]any{"units": c.Units}),
		}))
	}

	require.NoError(t, w.AddAttributes(attrs(t,
		[]string{"data_date", "time_coverage_start", "time_coverage_end", "comment"},
		map[string]any{
			"data_date":           f.Date.Format("20060102"),
			"time_coverage_start": hms(f.Start),
			"time_coverage_end":   hms(f.Start + max(n-1, 0)),
			"comment":             f.Comment,
		})))

	require.NoError(t, w.Close())
	return path
}

func attrs(t testing.TB, keys []string, m map[string]any) api.AttributeMap {
	t.Helper()
	om, err := util.NewOrderedMap(keys, m)
	require.NoError(t, err)
	return om
}

// NaN is a convenience for building columns with missing samples.
var NaN = math.NaN()
