package delay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marc-delays/tracker/internal/timetable"
)

var twoStops = timetable.Schedule{
	{Station: "A", Scheduled: "08:00AM"},
	{Station: "B", Scheduled: "08:10AM"},
}

func TestDetectOffset(t *testing.T) {
	tests := []struct {
		name     string
		report   ArrivalReport
		expected int
	}{
		{"zero key present", ArrivalReport{"0": "8:00 AM", "1": "8:10 AM"}, 0},
		{"zero key only", ArrivalReport{"0": "8:00 AM"}, 0},
		{"one based", ArrivalReport{"1": "8:00 AM", "2": "8:10 AM"}, 1},
		{"empty report", ArrivalReport{}, 1},
		{"nil report", nil, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectOffset(tc.report))
		})
	}
}

func TestComputeZeroBased(t *testing.T) {
	record, diags := Compute(twoStops, ArrivalReport{"0": "08:00 AM", "1": "08:13 AM"})

	assert.Equal(t, Record{"A": 0, "B": 3}, record)
	assert.Empty(t, diags)
}

func TestComputeOneBased(t *testing.T) {
	record, diags := Compute(twoStops, ArrivalReport{"1": "08:02 AM", "2": "08:10 AM"})

	assert.Equal(t, Record{"A": 2, "B": 0}, record)
	assert.Empty(t, diags)
}

func TestComputeMissingStation(t *testing.T) {
	schedule := append(timetable.Schedule{}, twoStops...)
	schedule = append(schedule, timetable.Stop{Station: "C", Scheduled: "08:20AM"})

	record, diags := Compute(schedule, ArrivalReport{"1": "08:02 AM", "3": "08:25 AM"})

	assert.Equal(t, Record{"A": 2, "C": 5}, record)
	require.Len(t, diags, 2)
	assert.Equal(t, DiagLengthMismatch, diags[0].Kind)
	assert.Equal(t, DiagMissingActual, diags[1].Kind)
	assert.Equal(t, "B", diags[1].Station)
	assert.Equal(t, "2", diags[1].Key)
}

func TestComputeUnparseableActual(t *testing.T) {
	record, diags := Compute(twoStops, ArrivalReport{"0": "08:00 AM", "1": "soon"})

	assert.Equal(t, Record{"A": 0}, record)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagUnparseableTime, diags[0].Kind)
	assert.Equal(t, "B", diags[0].Station)
}

func TestMatchKeepsScheduleOrder(t *testing.T) {
	schedule := timetable.Schedule{
		{Station: "Z", Scheduled: "9:00 AM"},
		{Station: "M", Scheduled: "9:10 AM"},
		{Station: "A", Scheduled: "9:20 AM"},
	}
	arrivals, _ := Match(schedule, ArrivalReport{"1": "9:00 AM", "2": "9:11 AM", "3": "9:22 AM"})

	require.Len(t, arrivals, 3)
	assert.Equal(t, "Z", arrivals[0].Station)
	assert.Equal(t, "M", arrivals[1].Station)
	assert.Equal(t, "A", arrivals[2].Station)
}

func TestComputeEmptyReport(t *testing.T) {
	record, diags := Compute(twoStops, ArrivalReport{})

	assert.Empty(t, record)
	assert.Len(t, diags, 3)
}
