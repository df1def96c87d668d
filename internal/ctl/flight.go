package ctl

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/eurec4a/twinotter/internal/derive"
	"github.com/eurec4a/twinotter/internal/flight"
)

// FlightInfo prints the attributes and channels of a loaded flight, and
// how each canonical variable would resolve against it.
func FlightInfo(w io.Writer, ds *flight.Dataset, jsonOutput bool) error {
	if jsonOutput {
		attrs := ds.Attrs
		attrs.Global = nil
		return PrintJSON(w, map[string]any{
			"attributes": attrs,
			"rows":       ds.Len(),
			"start":      ds.Start(),
			"end":        ds.End(),
			"channels":   ds.Names(),
		})
	}

	a := ds.Attrs
	fmt.Fprintln(w)
	fmt.Fprintln(w, header(fmt.Sprintf("  FLIGHT %d", a.FlightNumber)))
	rule(w, 50)
	field(w, "File", filepath.Base(a.SourceFile))
	field(w, "Date", a.Date.Format("2006-01-02"))
	field(w, "Revision", a.Revision)
	field(w, "Frequency", fmt.Sprintf("%d Hz", a.Frequency))
	if ds.Len() > 0 {
		field(w, "Rows", fmt.Sprintf("%d (%s to %s)", ds.Len(), clock(ds.Start()), clock(ds.End())))
	} else {
		field(w, "Rows", 0)
	}
	if a.TimeCoverageStart != "" {
		field(w, "Coverage", a.TimeCoverageStart+" to "+a.TimeCoverageEnd)
	}
	if a.Comment != "" {
		field(w, "Comment", a.Comment)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  CHANNELS"))
	tw := newTable(w)
	for _, name := range ds.Names() {
		v, _ := ds.Var(name)
		long, _ := v.Attrs["long_name"].(string)
		row(tw, name, v.Units(), colorize(dim, long))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  VARIABLES"))
	tw = newTable(w)
	for _, name := range derive.Names() {
		res := derive.Resolve(name, ds)
		via := res.Channel
		if res.Derivation != nil {
			via = fmt.Sprint(res.Derivation.Args)
		}
		row(tw, name, res.Kind.String(), colorize(dim, via))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}
