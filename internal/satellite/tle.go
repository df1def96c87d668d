package satellite

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/eurec4a/twinotter/internal/config"
)

// Orbiter is a polar-orbiting imager worth matching against a flight.
type Orbiter struct {
	Name       string `json:"name"`
	NoradID    int    `json:"norad_id"`
	Instrument string `json:"instrument"`
}

// Orbiters carry the MODIS and VIIRS imagers shown in Worldview.
var Orbiters = []Orbiter{
	{Name: "TERRA", NoradID: 25994, Instrument: "MODIS"},
	{Name: "AQUA", NoradID: 27424, Instrument: "MODIS"},
	{Name: "SUOMI NPP", NoradID: 37849, Instrument: "VIIRS"},
	{Name: "NOAA 20", NoradID: 43013, Instrument: "VIIRS"},
}

// OrbiterByNoradID returns the orbiter with the given catalog number, or
// nil if it is not in Orbiters.
func OrbiterByNoradID(id int) *Orbiter {
	for i := range Orbiters {
		if Orbiters[i].NoradID == id {
			return &Orbiters[i]
		}
	}
	return nil
}

// TLEStore reads Two-Line Element sets from a local file, refreshing it
// from url when the file is older than maxAge. A stale file is still used
// when the refresh fails.
type TLEStore struct {
	url    string
	path   string
	maxAge time.Duration
	client *http.Client
}

// NewTLEStore returns a store backed by path. An empty url disables
// network refreshes.
func NewTLEStore(tleURL, path string, maxAge time.Duration) *TLEStore {
	return &TLEStore{
		url:    tleURL,
		path:   path,
		maxAge: maxAge,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// TLEStoreFromConfig builds a store from the [satellite] section.
func TLEStoreFromConfig(cfg config.SatelliteConfig) *TLEStore {
	return NewTLEStore(cfg.TLEURL, cfg.TLEFile, time.Duration(cfg.TLEMaxAgeHours)*time.Hour)
}

// Fetch returns the TLEs of the known orbiters keyed by NORAD ID.
func (s *TLEStore) Fetch(ctx context.Context) (map[int]*sgp4.TLE, error) {
	raw, err := s.loadOrFetch(ctx)
	if err != nil {
		return nil, err
	}
	return ParseTLEs(raw)
}

func (s *TLEStore) loadOrFetch(ctx context.Context) (string, error) {
	info, err := os.Stat(s.path)
	fresh := err == nil && (s.url == "" || time.Since(info.ModTime()) < s.maxAge)
	if fresh {
		if b, readErr := os.ReadFile(s.path); readErr == nil && len(b) > 0 {
			return string(b), nil
		}
	}

	var fetchErr error = fmt.Errorf("no TLE file at %s", s.path)
	if s.url != "" {
		body, err := s.fetchFromNetwork(ctx)
		if err == nil {
			_ = writeAtomic(s.path, strings.NewReader(body))
			return body, nil
		}
		fetchErr = err
	}

	if b, readErr := os.ReadFile(s.path); readErr == nil && len(b) > 0 {
		return string(b), nil
	}
	return "", fmt.Errorf("all TLE sources exhausted: %w", fetchErr)
}

func (s *TLEStore) fetchFromNetwork(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("TLE fetch returned HTTP %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseTLEs extracts the known orbiters from a three-line TLE dump.
func ParseTLEs(raw string) (map[int]*sgp4.TLE, error) {
	result := make(map[int]*sgp4.TLE)
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	for i := 0; i+2 < len(lines); i += 3 {
		group := strings.TrimSpace(lines[i]) + "\n" +
			strings.TrimSpace(lines[i+1]) + "\n" +
			strings.TrimSpace(lines[i+2])

		tle, err := sgp4.ParseTLE(group)
		if err != nil {
			continue
		}
		if OrbiterByNoradID(tle.SatelliteNumber) != nil {
			result[tle.SatelliteNumber] = tle
		}
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no imaging orbiter TLEs found in %d lines of input", len(lines))
	}
	return result, nil
}
