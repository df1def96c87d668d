package segments

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eurec4a/twinotter/internal/flight"
)

// firstFlight is the flight number of research flight RF01.
const firstFlight = 330

// NewForFlight starts an empty document for ds with the header filled in
// from the dataset attributes.
func NewForFlight(ds *flight.Dataset) *Catalog {
	a := ds.Attrs
	c := &Catalog{
		Name:     fmt.Sprintf("RF%02d", a.FlightNumber-firstFlight+1),
		Mission:  "EUREC4A",
		Platform: "TO",
		FlightID: fmt.Sprintf("TO-%04d", a.FlightNumber),
		Date:     Timestamp{a.Date},
		Segments: []Segment{},
	}
	if t, err := a.CoverageStart(); err == nil {
		c.Takeoff = Timestamp{t}
	}
	if t, err := a.CoverageEnd(); err == nil {
		c.Landing = Timestamp{t}
	}
	if a.Comment != "" {
		c.Remarks = []string{a.Comment}
	}
	return c
}

// Add labels [start, end] of ds as a new segment. Both ends are moved to
// the nearest sample time and the segment list is kept sorted by start.
func (c *Catalog) Add(ds *flight.Dataset, kinds []string, name string, start, end time.Time) (Segment, error) {
	if ds.Len() == 0 {
		return Segment{}, fmt.Errorf("add segment: empty dataset")
	}
	if end.Before(start) {
		start, end = end, start
	}
	seg := Segment{
		Kinds:     append([]string(nil), kinds...),
		Name:      name,
		SegmentID: fmt.Sprintf("%s_s%02d", c.FlightID, c.nextSerial()),
		Start:     Timestamp{nearest(ds.Time, start)},
		End:       Timestamp{nearest(ds.Time, end)},
	}
	c.Segments = append(c.Segments, seg)
	sort.SliceStable(c.Segments, func(i, j int) bool {
		return c.Segments[i].Start.Before(c.Segments[j].Start.Time)
	})
	return seg, nil
}

// Remove deletes the segment with the given id.
func (c *Catalog) Remove(id string) bool {
	for i, s := range c.Segments {
		if s.SegmentID == id {
			c.Segments = append(c.Segments[:i], c.Segments[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Catalog) nextSerial() int {
	n := 0
	for _, s := range c.Segments {
		rest, ok := strings.CutPrefix(s.SegmentID, c.FlightID+"_s")
		if !ok {
			continue
		}
		if k, err := strconv.Atoi(rest); err == nil && k > n {
			n = k
		}
	}
	return n + 1
}

// nearest returns the element of the sorted index closest to t.
func nearest(index []time.Time, t time.Time) time.Time {
	i := sort.Search(len(index), func(i int) bool { return !index[i].Before(t) })
	switch {
	case i == 0:
		return index[0]
	case i == len(index):
		return index[len(index)-1]
	}
	if t.Sub(index[i-1]) <= index[i].Sub(t) {
		return index[i-1]
	}
	return index[i]
}
