package flight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnits(t *testing.T) {
	cases := map[string]string{
		"1b":          "1",
		"  1b ":       "1",
		"hpa":         "hPa",
		"degrees  C":  "degC",
		"K":           "K",
		"m  s-1":      "m s-1",
		"degree_east": "degree_east",
	}
	for in, want := range cases {
		attrs := map[string]any{"units": in, "long_name": "x"}
		out := NormalizeUnits(attrs)
		assert.Equal(t, want, out["units"], in)
		assert.Equal(t, in, attrs["units"], "input untouched")
		assert.Equal(t, "x", out["long_name"])
	}

	assert.Empty(t, NormalizeUnits(nil))
	assert.Equal(t, map[string]any{"units": 3}, NormalizeUnits(map[string]any{"units": 3}))
}

func TestTimeOfDay(t *testing.T) {
	d, err := ParseTimeOfDay("14:02:10 UTC")
	require.NoError(t, err)
	assert.Equal(t, 14*time.Hour+2*time.Minute+10*time.Second, d)
	assert.Equal(t, "14:02:10", FormatTimeOfDay(d))
	assert.Equal(t, "9:05:00", FormatTimeOfDay(9*time.Hour+5*time.Minute))

	for _, bad := range []string{"", "14:02", "14:61:00 UTC", "aa:00:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeBase(t *testing.T) {
	date := time.Date(2020, 1, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, date, timeBase(map[string]any{"units": "seconds since 2020-01-24 00:00:00 +0000 UTC"}, time.Time{}))
	assert.Equal(t, date, timeBase(map[string]any{"units": "seconds since 2020-01-24"}, time.Time{}))
	assert.Equal(t, date, timeBase(map[string]any{"units": "seconds since midnight"}, date))
	assert.Equal(t, date, timeBase(nil, date))
}
