package segments

import (
	"fmt"

	"github.com/eurec4a/twinotter/internal/flight"
)

// Extract cuts segments of the given kind out of ds. With a non-nil index
// the index-th matching segment (0-based, document order) is returned.
// With a nil index every matching segment is concatenated in document
// order; rows covered by more than one segment appear once per segment.
// Both ends of a segment are included.
func Extract(ds *flight.Dataset, c *Catalog, kind string, index *int) (*flight.Dataset, error) {
	matches := c.Matching(kind)

	if index != nil {
		i := *index
		if i < 0 || i >= len(matches) {
			return nil, fmt.Errorf("%w: %s %d of %d", ErrIndexOutOfRange, kind, i, len(matches))
		}
		return Cut(ds, matches[i]), nil
	}

	if len(matches) == 0 {
		return ds.Select(make([]bool, ds.Len())), nil
	}
	parts := make([]*flight.Dataset, len(matches))
	for i, s := range matches {
		parts[i] = Cut(ds, s)
	}
	return flight.Concat(parts...)
}

// ExtractOne returns the index-th segment of kind.
func ExtractOne(ds *flight.Dataset, c *Catalog, kind string, index int) (*flight.Dataset, error) {
	return Extract(ds, c, kind, &index)
}

// ExtractAll returns every segment of kind joined together.
func ExtractAll(ds *flight.Dataset, c *Catalog, kind string) (*flight.Dataset, error) {
	return Extract(ds, c, kind, nil)
}

// Cut returns the rows of ds inside s, both ends included.
func Cut(ds *flight.Dataset, s Segment) *flight.Dataset {
	return ds.Slice(s.Start.Time, s.End.Time)
}
