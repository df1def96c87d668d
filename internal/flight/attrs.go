package flight

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"
)

// Attributes are the dataset-level facts carried alongside the table.
type Attributes struct {
	SourceFile        string    `json:"source_file"`
	FlightNumber      int       `json:"flight_number"`
	Date              time.Time `json:"date"`
	Revision          int       `json:"revision"`
	Frequency         int       `json:"frequency"`
	TimeCoverageStart string    `json:"time_coverage_start,omitempty"`
	TimeCoverageEnd   string    `json:"time_coverage_end,omitempty"`
	Comment           string    `json:"comment,omitempty"`

	// Global holds every global attribute of the backing file.
	Global map[string]any `json:"global,omitempty"`
}

func (a Attributes) clone() Attributes {
	a.Global = maps.Clone(a.Global)
	return a
}

// CoverageStart is the flight date plus time_coverage_start.
func (a Attributes) CoverageStart() (time.Time, error) {
	return a.coverage("time_coverage_start", a.TimeCoverageStart)
}

// CoverageEnd is the flight date plus time_coverage_end.
func (a Attributes) CoverageEnd() (time.Time, error) {
	return a.coverage("time_coverage_end", a.TimeCoverageEnd)
}

func (a Attributes) coverage(name, value string) (time.Time, error) {
	d, err := ParseTimeOfDay(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return a.Date.Add(d), nil
}

// ParseTimeOfDay parses the "HH:MM:SS UTC" form used by the coverage
// attributes into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "UTC"))
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("time of day %q: want HH:MM:SS", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("time of day %q: bad field %q", s, p)
		}
		n[i] = v
	}
	if n[1] > 59 || n[2] > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return time.Duration(n[0])*time.Hour + time.Duration(n[1])*time.Minute + time.Duration(n[2])*time.Second, nil
}

// FormatTimeOfDay renders d as H:MM:SS with unpadded hours.
func FormatTimeOfDay(d time.Duration) string {
	s := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}

func attrString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case nil:
		return ""
	default:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	}
}

func attrInt(m map[string]any, key string) (int, bool) {
	if f, ok := toFloat(m[key]); ok && !math.IsNaN(f) {
		return int(f), true
	}
	if s, ok := m[key].(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	}
	return 0, false
}

// toFloat converts a numeric attribute value to float64. Single-element
// slices are unwrapped since readers differ on how scalars come back.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case []float64:
		if len(x) == 1 {
			return x[0], true
		}
	case []float32:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	case []int32:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	case []int16:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	case []int8:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	}
	return 0, false
}
