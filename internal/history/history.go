// Package history keeps the rolling per-station delay samples of each train.
package history

import "github.com/marc-delays/tracker/internal/delay"

// DefaultCapacity is the number of samples kept per station
const DefaultCapacity = 30

// Document holds the delay samples of one train, keyed by station name.
// Each list is ordered most recent first and holds at most the capacity.
type Document map[string][]int

// Clone returns a deep copy of the document
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for station, samples := range d {
		out[station] = append([]int(nil), samples...)
	}
	return out
}

// Samples returns the samples of a station, most recent first
func (d Document) Samples(station string) []int {
	return d[station]
}

// Update returns a copy of doc with each delay in record prepended to its
// station's samples, dropping the oldest samples beyond capacity. Stations
// not in record are carried over unchanged. doc may be nil.
func Update(doc Document, record delay.Record, capacity int) Document {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	out := doc.Clone()
	for station, minutes := range record {
		samples := make([]int, 0, len(out[station])+1)
		samples = append(samples, minutes)
		samples = append(samples, out[station]...)
		if len(samples) > capacity {
			samples = samples[:capacity]
		}
		out[station] = samples
	}
	return out
}
