package quicklook

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skypies/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurec4a/twinotter/internal/derive"
	"github.com/eurec4a/twinotter/internal/flight"
	"github.com/eurec4a/twinotter/internal/flight/flighttest"
	"github.com/eurec4a/twinotter/internal/segments"
)

func TestDescribe(t *testing.T) {
	st := Describe([]float64{4, math.NaN(), 1, 3, 2})
	require.NotNil(t, st)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 2.5, st.Mean)
	assert.Equal(t, 2.5, st.Median)
	assert.Equal(t, 1.25, st.Variance)
	assert.Equal(t, 3.0, st.Range)

	assert.Equal(t, 2.0, Describe([]float64{3, 1, 2}).Median)
	assert.Nil(t, Describe([]float64{math.NaN()}))
	assert.Nil(t, Describe(nil))
}

func TestDistance(t *testing.T) {
	track := []geo.Latlong{{Lat: 0, Long: 0}, {Lat: 0, Long: 1}, {Lat: 0, Long: 2}}
	assert.InDelta(t, 2*HaloRadiusKM, DistanceKM(track), 1)
	assert.Zero(t, DistanceKM(track[:1]))

	assert.Equal(t, 1.0, FractionWithin([]geo.Latlong{HaloCircle}, HaloCircle, HaloRadiusKM))
	far := geo.Latlong{Lat: HaloCircle.Lat + 2, Long: HaloCircle.Long}
	assert.Equal(t, 0.5, FractionWithin([]geo.Latlong{HaloCircle, far}, HaloCircle, HaloRadiusKM))
	assert.Zero(t, FractionWithin(nil, HaloCircle, HaloRadiusKM))

	box := BoundingBox(track)
	assert.True(t, box.Contains(geo.Latlong{Lat: 0, Long: 1}))
}

func TestSummarize(t *testing.T) {
	fx := flighttest.New(60)
	path := fx.Write(t, filepath.Join(t.TempDir(), "core_masin_20200124_r001_flight330_1hz.nc"))
	ds, err := flight.Load(path, flight.DefaultOptions())
	require.NoError(t, err)

	c, err := segments.Parse(strings.NewReader(`segments:
  - kinds: [level]
    segment_id: s1
    start: 2020-01-24 14:02:10
    end: 2020-01-24 14:02:19
  - kinds: [profile]
    segment_id: s2
    start: 2020-01-24 14:02:20
    end: 2020-01-24 14:02:49
`))
	require.NoError(t, err)

	all, err := Summarize(ds, c, "", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	level := all[0]
	assert.Equal(t, "s1", level.SegmentID)
	assert.Equal(t, 10, level.Samples)
	assert.Greater(t, level.DistanceKM, 0.0)
	assert.Equal(t, 1.0, level.HaloFraction)

	alt := level.Channels[derive.Altitude]
	require.NotNil(t, alt)
	assert.Equal(t, 314.5, alt.Mean)
	assert.Contains(t, level.Channels, derive.AirTemperature)

	profiles, err := Summarize(ds, c, "profile", []string{derive.Altitude, "not_a_channel"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, 30, profiles[0].Samples)
	assert.Len(t, profiles[0].Channels, 1)
}
