package timetable

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/marc-delays/tracker/internal/config"
)

// MarkupFetcher retrieves the timetable page for one line and direction
type MarkupFetcher interface {
	FetchTimetable(ctx context.Context, line string, direction Direction, serviceDate time.Time) (string, error)
}

// Aggregate parses the timetable of every line in both directions and merges
// the results into one mapping keyed by train number. Combinations are merged
// in line order, then direction order; a train present in several combinations
// keeps the last one. A failed fetch skips that combination only.
func Aggregate(ctx context.Context, fetcher MarkupFetcher, lines []config.Line, directions []Direction, serviceDate time.Time) map[string]Schedule {
	merged := make(map[string]Schedule)

	for _, line := range lines {
		for _, direction := range directions {
			markup, err := fetcher.FetchTimetable(ctx, line.Slug, direction, serviceDate)
			if err != nil {
				log.Printf("Timetable: failed to fetch %s %s: %v", line.Slug, direction, err)
				continue
			}

			parsed := Parse(strings.NewReader(markup))
			if len(parsed) == 0 {
				log.Printf("Timetable: Warning: no trains parsed for %s %s", line.Slug, direction)
				continue
			}

			for trainID, schedule := range parsed {
				if _, exists := merged[trainID]; exists {
					log.Printf("Timetable: train %s also listed on %s %s, replacing earlier schedule", trainID, line.Slug, direction)
				}
				merged[trainID] = schedule
			}
		}
	}

	log.Printf("Timetable: %d trains scheduled for %s", len(merged), serviceDate.Format("2006-01-02"))
	return merged
}
