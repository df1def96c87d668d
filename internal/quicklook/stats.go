package quicklook

import (
	"math"
	"sort"
)

// Stats are summary statistics of one channel over a segment. NaN samples
// are left out.
type Stats struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Range    float64 `json:"range"`
	Median   float64 `json:"median"`
}

// Describe computes Stats over the finite values of data. It returns nil
// when there are none.
func Describe(data []float64) *Stats {
	vals := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil
	}

	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	sq := 0.0
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	variance := sq / float64(len(vals))

	sort.Float64s(vals)
	n := len(vals)
	median := vals[n/2]
	if n%2 == 0 {
		median = (vals[n/2-1] + vals[n/2]) / 2
	}

	return &Stats{
		Count:    n,
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Min:      vals[0],
		Max:      vals[n-1],
		Range:    vals[n-1] - vals[0],
		Median:   median,
	}
}
