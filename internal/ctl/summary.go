package ctl

import (
	"fmt"
	"io"

	"github.com/eurec4a/twinotter/internal/flight"
	"github.com/eurec4a/twinotter/internal/summary"
)

// Summary prints the flight summary table.
func Summary(w io.Writer, entries []summary.Entry, jsonOutput bool) error {
	if jsonOutput {
		return PrintJSON(w, entries)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  FLIGHT SUMMARY"))
	rule(w, 60)
	if len(entries) == 0 {
		fmt.Fprintln(w, colorize(dim, "  No flights found."))
		fmt.Fprintln(w)
		return nil
	}

	tw := newTable(w)
	hdr := make([]string, len(summary.Header))
	for i, h := range summary.Header {
		hdr[i] = colorize(dim, h)
	}
	row(tw, hdr...)
	for _, e := range entries {
		row(tw,
			colorize(bold, fmt.Sprint(e.FlightNumber)),
			e.Date.Format("2006-01-02"),
			flight.FormatTimeOfDay(e.Start),
			flight.FormatTimeOfDay(e.End),
			fmt.Sprint(e.Revision),
			fmt.Sprintf("%d Hz", e.Frequency),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

// SegmentCounts prints how many segments of each kind every flight has.
func SegmentCounts(w io.Writer, kind string, counts map[string]int, jsonOutput bool) error {
	if jsonOutput {
		return PrintJSON(w, map[string]any{"kind": kind, "counts": counts})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  SEGMENTS OF KIND "+kind))
	tw := newTable(w)
	for _, id := range sortedKeys(counts) {
		row(tw, id, fmt.Sprint(counts[id]))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}
