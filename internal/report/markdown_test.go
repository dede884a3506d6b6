package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/timetable"
)

var schedule = timetable.Schedule{
	{Station: "Perryville", Scheduled: "5:00 AM"},
	{Station: "Aberdeen", Scheduled: "5:12 AM"},
	{Station: "Baltimore Penn Station", Scheduled: "5:45 AM"},
}

func TestRowsFollowScheduleOrder(t *testing.T) {
	doc := history.Document{
		"Baltimore Penn Station": {1, 2, 3, 4},
		"Perryville":             {0},
	}

	rows := Rows(schedule, doc)

	require.Len(t, rows, 3)
	assert.Equal(t, Row{Station: "Perryville", Count: "1", Min: "0", Max: "0", Mean: "0.00", Median: "0"}, rows[0])
	assert.Equal(t, Row{Station: "Aberdeen", Count: "0"}, rows[1], "no samples renders blank, not zero")
	assert.Equal(t, Row{Station: "Baltimore Penn Station", Count: "4", Min: "1", Max: "4", Mean: "2.50", Median: "3"}, rows[2])
}

func TestRender(t *testing.T) {
	doc := history.Document{"Perryville": {5, 3, 1}}
	at := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	out := Render("401", schedule, doc, at)

	assert.True(t, strings.HasPrefix(out, "## Train 401\n\n| Station | Num Samples |"))
	assert.Contains(t, out, "| Perryville | 3 | 1 | 5 | 3.00 | 3 |\n")
	assert.Contains(t, out, "| Aberdeen | 0 |  |  |  |  |\n")
	assert.NotContains(t, out, "0.00 |  |")
	assert.True(t, strings.HasSuffix(out, "Last Updated: 2024-05-01T07:00:00Z\n"))
}

func TestRenderIsStableApartFromTimestamp(t *testing.T) {
	doc := history.Document{"Aberdeen": {2, 9, 4}, "Perryville": {1}}

	first := Render("401", schedule, doc, time.Now())
	second := Render("401", schedule, doc, time.Now().Add(time.Hour))

	tableOf := func(s string) string { return s[:strings.Index(s, "Last Updated")] }
	assert.Equal(t, tableOf(first), tableOf(second))
	assert.Equal(t, Rows(schedule, doc), Rows(schedule, doc))
}
