package ctl

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/eurec4a/twinotter/internal/satellite"
)

// Passes prints orbiter overpasses above a flight.
func Passes(w io.Writer, loc satellite.Location, passes []satellite.Pass, jsonOutput bool) error {
	if jsonOutput {
		return PrintJSON(w, map[string]any{"location": loc, "passes": passes})
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  OVERPASSES"))
	fmt.Fprintf(w, "  %s %.4f, %.4f\n", colorize(dim, "Centre:"), loc.Lat, loc.Lon)
	rule(w, 76)

	if len(passes) == 0 {
		fmt.Fprintln(w, colorize(dim, "  No passes during the flight."))
		fmt.Fprintln(w)
		return nil
	}

	tw := newTable(w)
	row(tw, colorize(dim, "#"), colorize(dim, "Orbiter"), colorize(dim, "Instrument"), colorize(dim, "AOS"), colorize(dim, "Max elev"), colorize(dim, "LOS"), colorize(dim, "Duration"))
	for i, p := range passes {
		row(tw,
			fmt.Sprint(i+1),
			colorize(bold, p.Orbiter.Name),
			p.Orbiter.Instrument,
			clock(p.AOS),
			fmt.Sprintf("%.1f° at %s", p.MaxElev, clock(p.MaxElevTime)),
			clock(p.LOS),
			formatDuration(p.Duration),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

// Images prints the satellite images matched to a flight; local paths are
// shown for images already on disk.
func Images(w io.Writer, images []satellite.Image, local map[time.Time]string, jsonOutput bool) error {
	if jsonOutput {
		type out struct {
			satellite.Image
			Local string `json:"local,omitempty"`
		}
		rows := make([]out, len(images))
		for i, im := range images {
			rows[i] = out{Image: im, Local: local[im.Time]}
		}
		return PrintJSON(w, rows)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  SATELLITE IMAGES"))
	rule(w, 76)
	tw := newTable(w)
	for _, im := range images {
		path := local[im.Time]
		if path == "" {
			path = colorize(dim, "-")
		}
		row(tw, clock(im.Time), im.Filename, path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
