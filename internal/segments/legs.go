package segments

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/eurec4a/twinotter/internal/flight"
)

// LoadLegsCSV reads the older per-flight legs table, a CSV with Label (or
// Type), Start and End columns holding times of day, and returns it as a
// catalog. day is the flight date the times are relative to.
func LoadLegsCSV(path string, day time.Time) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := ParseLegsCSV(f, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseLegsCSV is LoadLegsCSV on an open reader.
func ParseLegsCSV(r io.Reader, day time.Time) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: legs header: %v", ErrMalformedDocument, err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	label, ok := col["label"]
	if !ok {
		label, ok = col["type"]
	}
	start, okStart := col["start"]
	end, okEnd := col["end"]
	if !ok || !okStart || !okEnd {
		return nil, fmt.Errorf("%w: legs header %v needs Label, Start and End", ErrMalformedDocument, header)
	}

	day = day.Truncate(24 * time.Hour)
	c := &Catalog{Date: Timestamp{day}}
	counts := map[string]int{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedDocument, line, err)
		}

		name := strings.TrimSpace(rec[label])
		kind := strings.ToLower(name)
		s, err := flight.ParseTimeOfDay(rec[start])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedDocument, line, err)
		}
		e, err := flight.ParseTimeOfDay(rec[end])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedDocument, line, err)
		}

		seg := Segment{
			Kinds:     []string{kind},
			Name:      fmt.Sprintf("%s %d", name, counts[kind]+1),
			SegmentID: fmt.Sprintf("%s_%02d", kind, counts[kind]+1),
			Start:     Timestamp{day.Add(s)},
			End:       Timestamp{day.Add(e)},
		}
		if err := validate(seg); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedDocument, line, err)
		}
		counts[kind]++
		c.Segments = append(c.Segments, seg)
	}
	return c, nil
}
