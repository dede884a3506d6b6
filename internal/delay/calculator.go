package delay

import "github.com/marc-delays/tracker/internal/timetable"

// Record maps a station name to its delay in whole minutes (never negative).
// Stations without a matched actual time are absent.
type Record map[string]int

// Compute matches report against schedule and converts every matched stop
// to a delay.
func Compute(schedule timetable.Schedule, report ArrivalReport) (Record, []Diagnostic) {
	arrivals, diags := Match(schedule, report)
	record, more := Delays(arrivals)
	return record, append(diags, more...)
}

// Delays converts matched arrivals to a Record. Arrivals with unparseable
// times are skipped with a diagnostic.
func Delays(arrivals []Arrival) (Record, []Diagnostic) {
	record := make(Record, len(arrivals))
	var diags []Diagnostic

	for _, a := range arrivals {
		minutes, err := Minutes(a.Scheduled, a.Actual)
		if err != nil {
			diags = append(diags, Diagnostic{
				Kind:    DiagUnparseableTime,
				Station: a.Station,
				Detail:  err.Error(),
			})
			continue
		}
		record[a.Station] = minutes
	}

	return record, diags
}
