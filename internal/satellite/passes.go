package satellite

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/eurec4a/twinotter/internal/flight"
)

// Pass is one overpass of an orbiter above the flight area.
type Pass struct {
	Orbiter     Orbiter       `json:"orbiter"`
	AOS         time.Time     `json:"aos"`
	LOS         time.Time     `json:"los"`
	MaxElev     float64       `json:"max_elevation"`
	MaxElevTime time.Time     `json:"max_elevation_time"`
	Duration    time.Duration `json:"duration"`
}

// Location is a point on the ground in degrees and metres.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// FlightCentre is the mean position of a dataset, at sea level.
func FlightCentre(ds *flight.Dataset) (Location, error) {
	lon, okLon := ds.Var(flight.LongitudeChannel)
	lat, okLat := ds.Var(flight.LatitudeChannel)
	if !okLon || !okLat || ds.Len() == 0 {
		return Location{}, fmt.Errorf("flight centre: no positions")
	}
	var loc Location
	for i := range lon.Values {
		loc.Lat += lat.Values[i]
		loc.Lon += lon.Values[i]
	}
	loc.Lat /= float64(ds.Len())
	loc.Lon /= float64(ds.Len())
	return loc, nil
}

// Predictor finds orbiter overpasses during a time window.
type Predictor struct {
	store   *TLEStore
	minElev float64
	log     *log.Logger
}

// NewPredictor creates a predictor. A nil logger discards output.
func NewPredictor(store *TLEStore, minElevation float64, logger *log.Logger) *Predictor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Predictor{store: store, minElev: minElevation, log: logger}
}

// Passes returns overpasses of loc between start and end that peak at or
// above the minimum elevation, sorted by AOS.
func (p *Predictor) Passes(ctx context.Context, loc Location, start, end time.Time) ([]Pass, error) {
	tles, err := p.store.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch TLEs: %w", err)
	}
	return PassesFrom(tles, loc, start, end, p.minElev, p.log), nil
}

// ForFlight predicts passes over the centre of ds during its coverage.
func (p *Predictor) ForFlight(ctx context.Context, ds *flight.Dataset) ([]Pass, error) {
	loc, err := FlightCentre(ds)
	if err != nil {
		return nil, err
	}
	return p.Passes(ctx, loc, ds.Start(), ds.End())
}

// PassesFrom runs SGP4 for every known orbiter in tles.
func PassesFrom(tles map[int]*sgp4.TLE, loc Location, start, end time.Time, minElev float64, logger *log.Logger) []Pass {
	var all []Pass
	for _, o := range Orbiters {
		tle, ok := tles[o.NoradID]
		if !ok {
			logger.Printf("satellite: no TLE for %s (NORAD %d)", o.Name, o.NoradID)
			continue
		}

		raw, err := tle.GeneratePasses(loc.Lat, loc.Lon, loc.Alt, start, end, 1)
		if err != nil {
			logger.Printf("satellite: error computing passes for %s: %v", o.Name, err)
			continue
		}
		for _, rp := range raw {
			if rp.MaxElevation < minElev {
				continue
			}
			all = append(all, Pass{
				Orbiter:     o,
				AOS:         rp.AOS,
				LOS:         rp.LOS,
				MaxElev:     rp.MaxElevation,
				MaxElevTime: rp.MaxElevationTime,
				Duration:    rp.Duration,
			})
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].AOS.Before(all[j].AOS) })
	return all
}
