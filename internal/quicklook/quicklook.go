// Package quicklook produces the numbers behind the per-flight quicklook
// sheets: where each segment went and what the key channels did during it.
package quicklook

import (
	"errors"
	"math"
	"time"

	"github.com/skypies/geo"

	"github.com/eurec4a/twinotter/internal/derive"
	"github.com/eurec4a/twinotter/internal/flight"
	"github.com/eurec4a/twinotter/internal/segments"
)

// DefaultChannels are summarised when the caller does not name any.
var DefaultChannels = []string{
	derive.Altitude,
	derive.AirPressure,
	derive.AirTemperature,
	derive.DewPointTemperature,
	derive.RelativeHumidity,
	derive.PotentialTemperatureName,
	derive.EastwardWind,
	derive.NorthwardWind,
}

// HaloCircle is the centre of the HALO sampling circle. Its radius is one
// degree of great circle.
var HaloCircle = geo.Latlong{Lat: 13 + 18.0/60, Long: -(57 + 43.0/60)}

// HaloRadiusKM is one degree of arc on the mean Earth sphere.
const HaloRadiusKM = 111.195

// Segment is the quicklook record of one labelled segment.
type Segment struct {
	SegmentID    string            `json:"segment_id"`
	Name         string            `json:"name,omitempty"`
	Kinds        []string          `json:"kinds"`
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	Samples      int               `json:"samples"`
	DistanceKM   float64           `json:"distance_km"`
	Bearing      float64           `json:"bearing"`
	HaloFraction float64           `json:"halo_fraction"`
	Channels     map[string]*Stats `json:"channels"`
}

// Duration is End minus Start.
func (s Segment) Duration() time.Duration { return s.End.Sub(s.Start) }

// Summarize describes every segment of c carrying kind, or every segment
// when kind is empty. Channels that cannot be computed for this dataset
// are left out of the record.
func Summarize(ds *flight.Dataset, c *segments.Catalog, kind string, channels []string) ([]Segment, error) {
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	segs := c.Segments
	if kind != "" {
		segs = c.Matching(kind)
	}

	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		cut := segments.Cut(ds, s)
		rec := Segment{
			SegmentID: s.SegmentID,
			Name:      s.Name,
			Kinds:     s.Kinds,
			Start:     s.Start.Time,
			End:       s.End.Time,
			Samples:   cut.Len(),
			Channels:  map[string]*Stats{},
		}

		if track := Track(cut); len(track) > 0 {
			rec.DistanceKM = DistanceKM(track)
			rec.Bearing = track[0].BearingTowards(track[len(track)-1])
			rec.HaloFraction = FractionWithin(track, HaloCircle, HaloRadiusKM)
		}

		for _, name := range channels {
			v, err := derive.Calculate(name, cut)
			if errors.Is(err, derive.ErrNotComputable) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if st := Describe(v.Values); st != nil {
				rec.Channels[name] = st
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Track returns the positions of ds, skipping rows without a fix.
func Track(ds *flight.Dataset) []geo.Latlong {
	lon, okLon := ds.Var(flight.LongitudeChannel)
	lat, okLat := ds.Var("LAT_OXTS")
	if !okLon || !okLat {
		return nil
	}
	track := make([]geo.Latlong, 0, ds.Len())
	for i := range lon.Values {
		if math.IsNaN(lon.Values[i]) || math.IsNaN(lat.Values[i]) {
			continue
		}
		track = append(track, geo.Latlong{Lat: lat.Values[i], Long: lon.Values[i]})
	}
	return track
}

// DistanceKM is the along-track length of track.
func DistanceKM(track []geo.Latlong) float64 {
	d := 0.0
	for i := 1; i < len(track); i++ {
		d += track[i-1].DistKM(track[i])
	}
	return d
}

// FractionWithin is the share of track points within radiusKM of centre.
func FractionWithin(track []geo.Latlong, centre geo.Latlong, radiusKM float64) float64 {
	if len(track) == 0 {
		return 0
	}
	n := 0
	for _, p := range track {
		if centre.DistKM(p) <= radiusKM {
			n++
		}
	}
	return float64(n) / float64(len(track))
}

// BoundingBox is the extent of track.
func BoundingBox(track []geo.Latlong) geo.LatlongBox {
	if len(track) == 0 {
		return geo.LatlongBox{}
	}
	sw, ne := track[0], track[0]
	for _, p := range track[1:] {
		sw.Lat, sw.Long = math.Min(sw.Lat, p.Lat), math.Min(sw.Long, p.Long)
		ne.Lat, ne.Long = math.Max(ne.Lat, p.Lat), math.Max(ne.Long, p.Long)
	}
	return sw.BoxTo(ne)
}
