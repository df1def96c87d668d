package ctl

import (
	"fmt"
	"io"
	"strings"

	"github.com/eurec4a/twinotter/internal/segments"
)

// Segments lists the segments of a catalog, optionally only one kind.
func Segments(w io.Writer, c *segments.Catalog, kind string, jsonOutput bool) error {
	segs := c.Segments
	if kind != "" {
		segs = c.Matching(kind)
	}
	if jsonOutput {
		out := *c
		out.Segments = segs
		return PrintJSON(w, out)
	}

	fmt.Fprintln(w)
	title := "  SEGMENTS"
	if c.FlightID != "" {
		title += " " + c.FlightID
	}
	if c.Name != "" {
		title += " (" + c.Name + ")"
	}
	fmt.Fprintln(w, header(title))
	rule(w, 76)

	if len(segs) == 0 {
		fmt.Fprintln(w, colorize(dim, "  No segments."))
		fmt.Fprintln(w)
		return nil
	}

	tw := newTable(w)
	row(tw, colorize(dim, "#"), colorize(dim, "ID"), colorize(dim, "Kinds"), colorize(dim, "Start"), colorize(dim, "End"), colorize(dim, "Duration"), colorize(dim, "Name"))
	for i, s := range segs {
		name := s.Name
		if len(s.Irregularities) > 0 {
			name += colorize(yellow, " ["+strings.Join(s.Irregularities, ", ")+"]")
		}
		row(tw,
			fmt.Sprint(i),
			s.SegmentID,
			strings.Join(s.Kinds, ","),
			clock(s.Start.Time),
			clock(s.End.Time),
			formatDuration(s.Duration()),
			name,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", colorize(dim, "kinds:"), strings.Join(c.Kinds(), ", "))
	fmt.Fprintln(w)
	return nil
}
