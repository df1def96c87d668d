// Package flight loads MASIN core files into time-indexed datasets.
//
// A Dataset is built once per load and never modified afterwards. Slicing,
// selecting, concatenating and adding variables all return new datasets.
package flight

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Variable is one named channel of a dataset.
type Variable struct {
	Name   string         `json:"name"`
	Values []float64      `json:"values"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

// Units returns the units attribute, or "" if the channel has none.
func (v *Variable) Units() string {
	s, _ := v.Attrs["units"].(string)
	return s
}

// FillValue returns the _FillValue attribute if one is set.
func (v *Variable) FillValue() (float64, bool) {
	return toFloat(v.Attrs["_FillValue"])
}

// Clone returns a deep copy of v.
func (v *Variable) Clone() *Variable {
	return &Variable{
		Name:   v.Name,
		Values: slices.Clone(v.Values),
		Attrs:  maps.Clone(v.Attrs),
	}
}

// Renamed returns a copy of v under a new name with the given units.
func (v *Variable) Renamed(name, units string) *Variable {
	c := v.Clone()
	c.Name = name
	if c.Attrs == nil {
		c.Attrs = map[string]any{}
	}
	c.Attrs["long_name"] = v.Name
	if units != "" {
		c.Attrs["units"] = units
	}
	return c
}

// Dataset is a table of channels keyed by sample time.
type Dataset struct {
	// Time is the row index. Seconds holds the raw Time channel it was
	// built from.
	Time    []time.Time
	Seconds []float64
	Attrs   Attributes

	vars  map[string]*Variable
	order []string
}

// NewDataset assembles a dataset, checking that every variable has one value
// per row. vars keep the order given.
func NewDataset(index []time.Time, seconds []float64, vars []*Variable, attrs Attributes) (*Dataset, error) {
	if seconds != nil && len(seconds) != len(index) {
		return nil, fmt.Errorf("seconds has %d rows, time index has %d", len(seconds), len(index))
	}
	ds := &Dataset{
		Time:    index,
		Seconds: seconds,
		Attrs:   attrs,
		vars:    make(map[string]*Variable, len(vars)),
	}
	if ds.Seconds == nil {
		ds.Seconds = secondsOf(index, attrs.Date)
	}
	for _, v := range vars {
		if len(v.Values) != len(index) {
			return nil, fmt.Errorf("variable %s has %d rows, time index has %d", v.Name, len(v.Values), len(index))
		}
		if _, dup := ds.vars[v.Name]; dup {
			return nil, fmt.Errorf("variable %s defined twice", v.Name)
		}
		ds.vars[v.Name] = v
		ds.order = append(ds.order, v.Name)
	}
	return ds, nil
}

func secondsOf(index []time.Time, base time.Time) []float64 {
	out := make([]float64, len(index))
	for i, t := range index {
		out[i] = t.Sub(base).Seconds()
	}
	return out
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Time) }

// Names returns the channel names in file order.
func (d *Dataset) Names() []string { return slices.Clone(d.order) }

// Has reports whether name is a channel of d.
func (d *Dataset) Has(name string) bool {
	_, ok := d.vars[name]
	return ok
}

// Var returns the named channel. The returned value is shared with d and
// must not be modified; Clone it first.
func (d *Dataset) Var(name string) (*Variable, bool) {
	v, ok := d.vars[name]
	return v, ok
}

// Start and End return the first and last index time, or zero times when
// the dataset is empty.
func (d *Dataset) Start() time.Time {
	if len(d.Time) == 0 {
		return time.Time{}
	}
	return d.Time[0]
}

func (d *Dataset) End() time.Time {
	if len(d.Time) == 0 {
		return time.Time{}
	}
	return d.Time[len(d.Time)-1]
}

// Select returns the rows where keep is true.
func (d *Dataset) Select(keep []bool) *Dataset {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	out := d.emptyLike(n)
	for i, k := range keep {
		if !k {
			continue
		}
		out.appendRow(d, i)
	}
	return out
}

// Slice returns the rows whose time lies in [start, end], both ends
// included.
func (d *Dataset) Slice(start, end time.Time) *Dataset {
	keep := make([]bool, d.Len())
	for i, t := range d.Time {
		keep[i] = !t.Before(start) && !t.After(end)
	}
	return d.Select(keep)
}

// WithVariable returns a copy of d with v added, replacing any channel of
// the same name.
func (d *Dataset) WithVariable(v *Variable) (*Dataset, error) {
	if len(v.Values) != d.Len() {
		return nil, fmt.Errorf("variable %s has %d rows, dataset has %d", v.Name, len(v.Values), d.Len())
	}
	out := d.emptyLike(d.Len())
	out.Time = append(out.Time, d.Time...)
	out.Seconds = append(out.Seconds, d.Seconds...)
	for _, name := range d.order {
		out.vars[name].Values = append(out.vars[name].Values, d.vars[name].Values...)
	}
	if _, ok := out.vars[v.Name]; !ok {
		out.order = append(out.order, v.Name)
	}
	out.vars[v.Name] = v.Clone()
	return out, nil
}

// Concat joins datasets along time in the order given. Channels missing
// from a part are rejected. Rows are not de-duplicated.
func Concat(parts ...*Dataset) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("concat: no datasets")
	}
	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out := parts[0].emptyLike(total)
	for _, p := range parts {
		for _, name := range out.order {
			if !p.Has(name) {
				return nil, fmt.Errorf("concat: %s missing channel %s", p.Attrs.SourceFile, name)
			}
		}
		for i := range p.Time {
			out.appendRow(p, i)
		}
	}
	return out, nil
}

func (d *Dataset) emptyLike(capacity int) *Dataset {
	out := &Dataset{
		Time:    make([]time.Time, 0, capacity),
		Seconds: make([]float64, 0, capacity),
		Attrs:   d.Attrs.clone(),
		vars:    make(map[string]*Variable, len(d.vars)),
		order:   slices.Clone(d.order),
	}
	for name, v := range d.vars {
		out.vars[name] = &Variable{
			Name:   v.Name,
			Values: make([]float64, 0, capacity),
			Attrs:  maps.Clone(v.Attrs),
		}
	}
	return out
}

func (d *Dataset) appendRow(src *Dataset, i int) {
	d.Time = append(d.Time, src.Time[i])
	d.Seconds = append(d.Seconds, src.Seconds[i])
	for _, name := range d.order {
		v := d.vars[name]
		v.Values = append(v.Values, src.vars[name].Values[i])
	}
}
