// Package report renders per-station delay statistics of a train as a
// Markdown table.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/metrics"
	"github.com/marc-delays/tracker/internal/timetable"
)

// Row is one rendered station line. Statistic cells are blank when the
// station has no samples.
type Row struct {
	Station string
	Count   string
	Min     string
	Max     string
	Mean    string
	Median  string
}

// Rows builds the table rows in schedule order
func Rows(schedule timetable.Schedule, doc history.Document) []Row {
	rows := make([]Row, 0, len(schedule))
	for _, stop := range schedule {
		s := metrics.Summarize(doc.Samples(stop.Station))
		row := Row{Station: stop.Station, Count: strconv.Itoa(s.Count)}
		if !s.Empty() {
			row.Min = strconv.Itoa(s.Min)
			row.Max = strconv.Itoa(s.Max)
			row.Mean = fmt.Sprintf("%.2f", s.Mean)
			row.Median = strconv.Itoa(s.Median)
		}
		rows = append(rows, row)
	}
	return rows
}

// Render produces the Markdown report for one train, ending with the time it
// was generated
func Render(trainID string, schedule timetable.Schedule, doc history.Document, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Train %s\n\n", trainID)
	b.WriteString("| Station | Num Samples | Min | Max | Mean | Median |\n")
	b.WriteString("| :-----: | :---------: | :-: | :-: | :--: | :----: |\n")

	for _, r := range Rows(schedule, doc) {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n", r.Station, r.Count, r.Min, r.Max, r.Mean, r.Median)
	}

	fmt.Fprintf(&b, "\n\nLast Updated: %s\n", generatedAt.Format(time.RFC3339))
	return b.String()
}
