package metrics

import "math"

// Accumulator keeps running statistics over integer delay samples using
// Welford's online algorithm for the variance.
// Reference: https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
type Accumulator struct {
	Count int
	Sum   int
	Min   int
	Max   int
	mean  float64
	m2    float64
}

// Add records one sample
func (a *Accumulator) Add(value int) {
	if a.Count == 0 || value < a.Min {
		a.Min = value
	}
	if a.Count == 0 || value > a.Max {
		a.Max = value
	}
	a.Count++
	a.Sum += value

	delta := float64(value) - a.mean
	a.mean += delta / float64(a.Count)
	a.m2 += delta * (float64(value) - a.mean)
}

// Mean returns the arithmetic mean, or 0 with no samples
func (a *Accumulator) Mean() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.Sum) / float64(a.Count)
}

// StdDev returns the population standard deviation.
// Returns 0 if fewer than 2 samples.
func (a *Accumulator) StdDev() float64 {
	if a.Count < 2 {
		return 0
	}
	return math.Sqrt(a.m2 / float64(a.Count))
}
