package ctl

import (
	"fmt"
	"io"
	"sort"

	"github.com/eurec4a/twinotter/internal/quicklook"
)

// Quicklook prints per-segment track figures followed by channel means.
func Quicklook(w io.Writer, rows []quicklook.Segment, jsonOutput bool) error {
	if jsonOutput {
		return PrintJSON(w, rows)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  QUICKLOOK"))
	rule(w, 76)
	if len(rows) == 0 {
		fmt.Fprintln(w, colorize(dim, "  No matching segments."))
		fmt.Fprintln(w)
		return nil
	}

	tw := newTable(w)
	row(tw, colorize(dim, "ID"), colorize(dim, "Start"), colorize(dim, "Duration"), colorize(dim, "Samples"), colorize(dim, "Dist km"), colorize(dim, "Bearing"), colorize(dim, "In circle"))
	for _, s := range rows {
		row(tw,
			s.SegmentID,
			clock(s.Start),
			formatDuration(s.Duration()),
			fmt.Sprint(s.Samples),
			fmt.Sprintf("%.1f", s.DistanceKM),
			fmt.Sprintf("%.0f°", s.Bearing),
			fmt.Sprintf("%.0f%%", 100*s.HaloFraction),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range rows {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s %s\n", colorize(bold, s.SegmentID), colorize(dim, s.Name))
		names := make([]string, 0, len(s.Channels))
		for n := range s.Channels {
			names = append(names, n)
		}
		sort.Strings(names)
		tw := newTable(w)
		row(tw, colorize(dim, "channel"), colorize(dim, "mean"), colorize(dim, "std"), colorize(dim, "min"), colorize(dim, "max"))
		for _, n := range names {
			st := s.Channels[n]
			row(tw, n, formatValue(st.Mean), formatValue(st.StdDev), formatValue(st.Min), formatValue(st.Max))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	return nil
}

// Variable prints the statistics of one computed variable.
func Variable(w io.Writer, name, units, resolution string, st *quicklook.Stats, jsonOutput bool) error {
	if jsonOutput {
		return PrintJSON(w, map[string]any{
			"name": name, "units": units, "resolution": resolution, "stats": st,
		})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  "+name))
	rule(w, 38)
	field(w, "Units", units)
	field(w, "Resolved", resolution)
	if st == nil {
		field(w, "Samples", 0)
		fmt.Fprintln(w)
		return nil
	}
	field(w, "Samples", st.Count)
	field(w, "Mean", formatValue(st.Mean))
	field(w, "Std dev", formatValue(st.StdDev))
	field(w, "Median", formatValue(st.Median))
	field(w, "Range", formatValue(st.Min)+" .. "+formatValue(st.Max))
	fmt.Fprintln(w)
	return nil
}
