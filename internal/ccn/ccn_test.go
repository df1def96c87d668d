package ccn

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Date, 01/24/20
Instrument ID, CCN-100
Version, 1.0
Time, Current SS, Temperature Std Dev, CCN Number Conc
14:02:00, 0.2, 0.01, 310.5
14:02:01, 0.2, 0.02, 
14:02:02, 0.3, 0.01, 322.0
`

func TestParse(t *testing.T) {
	ds, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, time.Date(2020, 1, 24, 14, 2, 0, 0, time.UTC), ds.Start())
	assert.Equal(t, []string{"current_ss", "temperature_std_dev", "ccn_number_conc"}, ds.Names())
	assert.Equal(t, "CCN-100", ds.Attrs.Global["instrument id"], "metadata keys are only lower-cased")

	conc, ok := ds.Var("ccn_number_conc")
	require.True(t, ok)
	assert.Equal(t, 310.5, conc.Values[0])
	assert.True(t, math.IsNaN(conc.Values[1]))
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"short metadata": "Date, 01/24/20\n",
		"bad date":       "Date, 2020-01-24\nA, b\nC, d\nTime\n",
		"no time":        "Date, 01/24/20\nA, b\nC, d\nX, Y\n1, 2\n",
		"bad time":       "Date, 01/24/20\nA, b\nC, d\nTime, X\nnoon, 2\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadAll(dir)
	assert.ErrorIs(t, err, ErrNoData)

	later := strings.Replace(sample, "14:02:0", "15:00:0", 3)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte(later), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(sample), 0o644))

	ds, err := LoadAll(dir)
	require.NoError(t, err)
	assert.Equal(t, 6, ds.Len())
	assert.Equal(t, time.Date(2020, 1, 24, 15, 0, 2, 0, time.UTC), ds.End())
}
