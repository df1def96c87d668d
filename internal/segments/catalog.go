// Package segments reads flight-segmentation documents and cuts flight
// datasets into the labelled time ranges they describe.
package segments

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMalformedDocument means a segment document does not have the
	// expected shape.
	ErrMalformedDocument = errors.New("malformed segment document")

	// ErrIndexOutOfRange means a segment index beyond the matching count
	// was requested.
	ErrIndexOutOfRange = errors.New("segment index out of range")
)

// Segment is one labelled time range of a flight.
type Segment struct {
	Kinds          []string  `yaml:"kinds"                    json:"kinds"`
	Name           string    `yaml:"name,omitempty"           json:"name,omitempty"`
	Irregularities []string  `yaml:"irregularities,omitempty" json:"irregularities,omitempty"`
	SegmentID      string    `yaml:"segment_id"               json:"segment_id"`
	Start          Timestamp `yaml:"start"                    json:"start"`
	End            Timestamp `yaml:"end"                      json:"end"`
}

// Has reports whether kind is one of the segment's labels.
func (s Segment) Has(kind string) bool {
	return slices.Contains(s.Kinds, kind)
}

// Duration is End minus Start.
func (s Segment) Duration() time.Duration {
	return s.End.Sub(s.Start.Time)
}

// Catalog is a whole segmentation document: a flight header followed by
// the segment list in document order.
type Catalog struct {
	Name         string           `yaml:"name,omitempty"          json:"name,omitempty"`
	Mission      string           `yaml:"mission,omitempty"       json:"mission,omitempty"`
	Platform     string           `yaml:"platform,omitempty"      json:"platform,omitempty"`
	FlightID     string           `yaml:"flight_id,omitempty"     json:"flight_id,omitempty"`
	Contacts     []map[string]any `yaml:"contacts,omitempty"      json:"contacts,omitempty"`
	Date         Timestamp        `yaml:"date,omitempty"          json:"date"`
	FlightReport string           `yaml:"flight_report,omitempty" json:"flight_report,omitempty"`
	Takeoff      Timestamp        `yaml:"takeoff,omitempty"       json:"takeoff"`
	Landing      Timestamp        `yaml:"landing,omitempty"       json:"landing"`
	Events       []map[string]any `yaml:"events,omitempty"        json:"events,omitempty"`
	Remarks      []string         `yaml:"remarks,omitempty"       json:"remarks,omitempty"`
	Segments     []Segment        `yaml:"segments"                json:"segments"`
}

// Load reads the segment document at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a segment document. Any shape problem is reported as
// ErrMalformedDocument.
func Parse(r io.Reader) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrMalformedDocument)
	}
	if !hasKey(root.Content[0], "segments") {
		return nil, fmt.Errorf("%w: no segments key", ErrMalformedDocument)
	}

	var c Catalog
	if err := root.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	for i, s := range c.Segments {
		if err := validate(s); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrMalformedDocument, i, err)
		}
	}
	return &c, nil
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}

func validate(s Segment) error {
	switch {
	case s.SegmentID == "":
		return errors.New("segment_id missing")
	case s.Start.IsZero() || s.End.IsZero():
		return fmt.Errorf("%s: start and end are required", s.SegmentID)
	case s.End.Before(s.Start.Time):
		return fmt.Errorf("%s: end %s before start %s", s.SegmentID, s.End, s.Start)
	}
	return nil
}

// Count returns how many segments carry kind.
func (c *Catalog) Count(kind string) int {
	n := 0
	for _, s := range c.Segments {
		if s.Has(kind) {
			n++
		}
	}
	return n
}

// Matching returns the segments carrying kind in document order.
func (c *Catalog) Matching(kind string) []Segment {
	var out []Segment
	for _, s := range c.Segments {
		if s.Has(kind) {
			out = append(out, s)
		}
	}
	return out
}

// Kinds returns every label used in the document, sorted.
func (c *Catalog) Kinds() []string {
	seen := map[string]bool{}
	for _, s := range c.Segments {
		for _, k := range s.Kinds {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ByID looks a segment up by its identifier.
func (c *Catalog) ByID(id string) (Segment, bool) {
	for _, s := range c.Segments {
		if s.SegmentID == id {
			return s, true
		}
	}
	return Segment{}, false
}

// Write encodes c as YAML.
func (c *Catalog) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes c to path.
func (c *Catalog) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DocumentName is the conventional file name of a segmentation document.
func DocumentName(date time.Time, version string) string {
	return fmt.Sprintf("EUREC4A_TO_Flight-Segments_%s_%s.yaml", date.Format("20060102"), strings.TrimPrefix(version, "v"))
}
