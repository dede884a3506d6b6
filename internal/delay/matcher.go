package delay

import (
	"fmt"
	"strconv"

	"github.com/marc-delays/tracker/internal/timetable"
)

// ArrivalReport maps a stop index key ("0", "1", ...) to the actual arrival
// time reported by the live tracker. Whether indices start at 0 or 1 differs
// between trains and is not stated in the report.
type ArrivalReport map[string]string

// Arrival pairs a scheduled stop with its reported actual time
type Arrival struct {
	Station   string
	Scheduled string
	Actual    string
}

// DiagnosticKind classifies a non-fatal data-quality finding
type DiagnosticKind string

const (
	DiagMissingActual   DiagnosticKind = "missing_actual"
	DiagUnparseableTime DiagnosticKind = "unparseable_time"
	DiagLengthMismatch  DiagnosticKind = "length_mismatch"
)

// Diagnostic describes a station (or whole report) left out of the result
type Diagnostic struct {
	Kind    DiagnosticKind
	Station string
	Key     string
	Detail  string
}

func (d Diagnostic) String() string {
	if d.Station == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
	}
	return fmt.Sprintf("%s at %s (key %s): %s", d.Kind, d.Station, d.Key, d.Detail)
}

// DetectOffset decides the index origin of a report: reports containing key
// "0" are zero-based, all others one-based. Replace this if the tracker ever
// states the origin explicitly.
func DetectOffset(report ArrivalReport) int {
	if _, ok := report["0"]; ok {
		return 0
	}
	return 1
}

// Match aligns each scheduled stop with its reported arrival, in stop order.
// Stops without a reported time are left out and reported as diagnostics.
func Match(schedule timetable.Schedule, report ArrivalReport) ([]Arrival, []Diagnostic) {
	var diags []Diagnostic
	if len(report) != len(schedule) {
		diags = append(diags, Diagnostic{
			Kind:   DiagLengthMismatch,
			Detail: fmt.Sprintf("schedule has %d stops, report has %d entries", len(schedule), len(report)),
		})
	}

	offset := DetectOffset(report)
	arrivals := make([]Arrival, 0, len(schedule))

	for idx, stop := range schedule {
		key := strconv.Itoa(idx + offset)
		actual, ok := report[key]
		if !ok || actual == "" {
			diags = append(diags, Diagnostic{
				Kind:    DiagMissingActual,
				Station: stop.Station,
				Key:     key,
				Detail:  "no actual time reported",
			})
			continue
		}
		arrivals = append(arrivals, Arrival{Station: stop.Station, Scheduled: stop.Scheduled, Actual: actual})
	}

	return arrivals, diags
}
