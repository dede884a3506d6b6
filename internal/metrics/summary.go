package metrics

import (
	"math"
	"sort"
)

// Summary describes the delay samples of one station
type Summary struct {
	Count  int     `json:"count"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"` // rounded to 2 decimals
	Median int     `json:"median"`
	StdDev float64 `json:"stdDev"`
}

// Empty reports whether the summary has no samples behind it
func (s Summary) Empty() bool {
	return s.Count == 0
}

// Summarize computes statistics over samples. The median is the element at
// index n/2 of the sorted samples; for an even count that is the upper of the
// two middle values, not their average. Existing reports depend on this.
func Summarize(samples []int) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	var acc Accumulator
	for _, v := range samples {
		acc.Add(v)
	}

	sorted := append([]int(nil), samples...)
	sort.Ints(sorted)

	return Summary{
		Count:  acc.Count,
		Min:    acc.Min,
		Max:    acc.Max,
		Mean:   round2(acc.Mean()),
		Median: sorted[len(sorted)/2],
		StdDev: round2(acc.StdDev()),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
