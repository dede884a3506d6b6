// Package gtfsrt builds arrival reports from a GTFS-Realtime TripUpdates feed.
// Stop sequences in the feed are used as stop index keys; like the tracker,
// agencies number them from either 0 or 1.
package gtfsrt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/marc-delays/tracker/internal/delay"
)

// trainNumberRegex pulls the train number out of a vehicle label such as "MARC 401"
var trainNumberRegex = regexp.MustCompile(`(\d+)\s*$`)

// Source polls a TripUpdates feed
type Source struct {
	url    string
	loc    *time.Location
	client *http.Client
}

// NewSource creates a feed source. Times are rendered in loc.
func NewSource(url string, loc *time.Location) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{
		url: url,
		loc: loc,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Reports fetches the feed and returns an arrival report per train
func (s *Source) Reports(ctx context.Context) (map[string]delay.ArrivalReport, error) {
	feed, err := s.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}
	return Reports(feed, s.loc), nil
}

// Reports converts the stop time updates of a feed into arrival reports.
// Only events at or before the feed timestamp are kept, since later ones are
// predictions rather than actual arrivals.
func Reports(feed *gtfs.FeedMessage, loc *time.Location) map[string]delay.ArrivalReport {
	now := time.Now()
	if ts := feed.GetHeader().GetTimestamp(); ts > 0 {
		now = time.Unix(int64(ts), 0)
	}

	reports := make(map[string]delay.ArrivalReport)
	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		trainID := trainIdentifier(tripUpdate)
		if trainID == "" {
			continue
		}

		report := make(delay.ArrivalReport)
		for _, stu := range tripUpdate.GetStopTimeUpdate() {
			if stu.StopSequence == nil {
				continue
			}
			switch stu.GetScheduleRelationship() {
			case gtfs.TripUpdate_StopTimeUpdate_SKIPPED, gtfs.TripUpdate_StopTimeUpdate_NO_DATA:
				continue
			}

			eventTime := stu.GetArrival().GetTime()
			if eventTime == 0 {
				eventTime = stu.GetDeparture().GetTime()
			}
			if eventTime == 0 {
				continue
			}

			at := time.Unix(eventTime, 0)
			if at.After(now) {
				continue
			}
			report[strconv.FormatUint(uint64(stu.GetStopSequence()), 10)] = at.In(loc).Format("3:04 PM")
		}

		if len(report) > 0 {
			reports[trainID] = report
		}
	}
	return reports
}

// trainIdentifier prefers the number in the vehicle label and falls back to the trip ID
func trainIdentifier(tu *gtfs.TripUpdate) string {
	if match := trainNumberRegex.FindStringSubmatch(tu.GetVehicle().GetLabel()); match != nil {
		return match[1]
	}
	return tu.GetTrip().GetTripId()
}

// fetchFeed fetches and decodes the TripUpdates feed
func (s *Source) fetchFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to parse protobuf: %w", err)
	}

	return feed, nil
}
