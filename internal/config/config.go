// Package config handles loading, defaulting, and validation of the twinotter
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// MostRecent is the loader.revision value that selects the highest revision
// found on disk.
const MostRecent = "most_recent"

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data      DataConfig      `toml:"data"      json:"data"`
	Loader    LoaderConfig    `toml:"loader"    json:"loader"`
	Logging   LoggingConfig   `toml:"logging"   json:"logging"`
	Server    ServerConfig    `toml:"server"    json:"server"`
	Satellite SatelliteConfig `toml:"satellite" json:"satellite"`
	Export    ExportConfig    `toml:"export"    json:"export"`
}

type DataConfig struct {
	Root     string `toml:"root"     json:"root"`
	Segments string `toml:"segments" json:"segments"`
	Summary  string `toml:"summary"  json:"summary"`
}

type LoaderConfig struct {
	Frequency     int    `toml:"frequency"      json:"frequency"`
	Revision      string `toml:"revision"       json:"revision"`
	FilterInvalid bool   `toml:"filter_invalid" json:"filter_invalid"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type SatelliteConfig struct {
	Layer          string     `toml:"layer"           json:"layer"`
	CadenceMinutes int        `toml:"cadence_minutes" json:"cadence_minutes"`
	Resolution     float64    `toml:"resolution"      json:"resolution"`
	BBox           [4]float64 `toml:"bbox"            json:"bbox"`
	TLEFile        string     `toml:"tle_file"        json:"tle_file"`
	TLEURL         string     `toml:"tle_url"         json:"tle_url"`
	TLEMaxAgeHours int        `toml:"tle_max_age_hours" json:"tle_max_age_hours"`
	MinElevation   float64    `toml:"min_elevation"   json:"min_elevation"`
}

type ExportConfig struct {
	Format string `toml:"format" json:"format"`
	Dir    string `toml:"dir"    json:"dir"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Root:     "obs",
			Segments: "obs/flight-segments",
			Summary:  "obs/flight_summary.csv",
		},
		Loader: LoaderConfig{
			Frequency:     1,
			Revision:      MostRecent,
			FilterInvalid: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind: "127.0.0.1:8090",
		},
		Satellite: SatelliteConfig{
			Layer:          "GOES-East_ABI_Band2_Red_Visible_1km",
			CadenceMinutes: 10,
			Resolution:     0.01,
			BBox:           [4]float64{10, -60, 15, -50},
			TLEFile:        "obs/orbiters_tle.txt",
			TLEURL:         "https://celestrak.org/NORAD/elements/gp.php?GROUP=active&FORMAT=tle",
			TLEMaxAgeHours: 24,
			MinElevation:   30,
		},
		Export: ExportConfig{
			Format: "parquet",
			Dir:    ".",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// RevisionNumber interprets loader.revision. It returns 0 for "most_recent".
func (l LoaderConfig) RevisionNumber() (int, error) {
	if l.Revision == "" || l.Revision == MostRecent {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(l.Revision, "r"))
	if err != nil {
		return 0, fmt.Errorf("loader.revision %q: %w", l.Revision, err)
	}
	return n, nil
}

// Debug reports whether verbose logging was requested.
func (l LoggingConfig) Debug() bool {
	return strings.EqualFold(l.Level, "debug")
}

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if cfg.Loader.Frequency <= 0 {
		return errors.New("loader.frequency must be > 0")
	}
	if n, err := cfg.Loader.RevisionNumber(); err != nil {
		return err
	} else if n < 0 || n > 999 {
		return errors.New("loader.revision must be most_recent or between 1 and 999")
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q not recognised", cfg.Logging.Level)
	}
	if cfg.Satellite.CadenceMinutes < 1 {
		return errors.New("satellite.cadence_minutes must be >= 1")
	}
	if cfg.Satellite.TLEMaxAgeHours < 0 {
		return errors.New("satellite.tle_max_age_hours must be >= 0")
	}
	if cfg.Satellite.MinElevation < 0 || cfg.Satellite.MinElevation > 90 {
		return errors.New("satellite.min_elevation must be between 0 and 90")
	}
	if b := cfg.Satellite.BBox; b[0] >= b[2] || b[1] >= b[3] {
		return errors.New("satellite.bbox must be [south, west, north, east]")
	}
	switch cfg.Export.Format {
	case "parquet", "csv":
	default:
		return fmt.Errorf("export.format %q must be parquet or csv", cfg.Export.Format)
	}
	return nil
}
