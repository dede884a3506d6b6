// Package tracker talks to the live train tracker and the published
// timetable pages.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	resty "gopkg.in/resty.v1"

	"github.com/marc-delays/tracker/internal/delay"
	"github.com/marc-delays/tracker/internal/timetable"
)

// Client fetches active trains, arrival reports and timetable markup
type Client struct {
	http              *resty.Client
	baseURL           string
	timetableTemplate string
	newBackOff        func() backoff.BackOff
}

// NewClient creates a tracker client. timetableTemplate may contain the
// placeholders {line}, {direction} and {date} (YYYY-MM-DD).
func NewClient(baseURL, timetableTemplate string) *Client {
	return &Client{
		http:              resty.New().SetTimeout(15 * time.Second),
		baseURL:           strings.TrimRight(baseURL, "/"),
		timetableTemplate: timetableTemplate,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			b.MaxElapsedTime = time.Minute
			return b
		},
	}
}

// WithBackOff replaces the retry policy used for every request
func (c *Client) WithBackOff(newBackOff func() backoff.BackOff) *Client {
	c.newBackOff = newBackOff
	return c
}

// ActiveTrains returns the numbers of the trains currently running
func (c *Client) ActiveTrains(ctx context.Context) ([]string, error) {
	var body vehiclesResponse
	if err := c.getJSON(ctx, c.baseURL+"/fetchvehicles", &body); err != nil {
		return nil, fmt.Errorf("failed to fetch vehicles: %w", err)
	}

	if body.VehicleArr == nil {
		return nil, nil
	}

	trains := make([]string, 0, len(body.VehicleArr.Trains))
	for _, v := range body.VehicleArr.Trains {
		number, ok := TrainNumber(v.TripName)
		if !ok {
			log.Printf("Tracker: Warning: unrecognized trip name %q", v.TripName)
			continue
		}
		trains = append(trains, number)
	}
	return trains, nil
}

// ArrivalReport returns the actual arrival times reported so far for a train,
// with the stop events collapsed into one mapping
func (c *Client) ArrivalReport(ctx context.Context, trainID string) (delay.ArrivalReport, error) {
	var body tripsResponse
	if err := c.getJSON(ctx, c.baseURL+"/fetchtrips/"+trainID, &body); err != nil {
		return nil, fmt.Errorf("failed to fetch trips for train %s: %w", trainID, err)
	}

	report := make(delay.ArrivalReport)
	if body.VehicleArr == nil {
		return report, nil
	}
	for _, event := range body.VehicleArr.StopEvents {
		for key, actual := range event {
			report[key] = actual
		}
	}
	return report, nil
}

// FetchTimetable implements timetable.MarkupFetcher
func (c *Client) FetchTimetable(ctx context.Context, line string, direction timetable.Direction, serviceDate time.Time) (string, error) {
	url := strings.NewReplacer(
		"{line}", line,
		"{direction}", strconv.Itoa(int(direction)),
		"{date}", serviceDate.Format("2006-01-02"),
	).Replace(c.timetableTemplate)

	resp, err := c.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch timetable %s: %w", url, err)
	}
	return resp.String(), nil
}

// TrainNumber extracts "401" from a trip name such as "Train 401"
func TrainNumber(tripName string) (string, bool) {
	fields := strings.Fields(tripName)
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}

func (c *Client) getJSON(ctx context.Context, url string, result interface{}) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	// the tracker does not always label its JSON, so decode regardless of Content-Type
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// get performs a GET with retries. Client errors (4xx) are not retried.
func (c *Client) get(ctx context.Context, url string) (*resty.Response, error) {
	return backoff.RetryNotifyWithData(
		func() (*resty.Response, error) {
			resp, err := c.http.R().SetContext(ctx).Get(url)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
				return nil, backoff.Permanent(fmt.Errorf("HTTP %d from %s", resp.StatusCode(), url))
			}
			if resp.StatusCode() != http.StatusOK {
				return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode(), url)
			}
			return resp, nil
		},
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, d time.Duration) {
			log.Printf("Tracker: retrying in %s: %v", d, err)
		},
	)
}

// Reports fetches the arrival report of every active train. A train whose
// report cannot be fetched is logged and left out.
func (c *Client) Reports(ctx context.Context) (map[string]delay.ArrivalReport, error) {
	trains, err := c.ActiveTrains(ctx)
	if err != nil {
		return nil, err
	}

	reports := make(map[string]delay.ArrivalReport, len(trains))
	for _, trainID := range trains {
		report, err := c.ArrivalReport(ctx, trainID)
		if err != nil {
			log.Printf("Tracker: skipping train %s: %v", trainID, err)
			continue
		}
		reports[trainID] = report
	}
	return reports, nil
}
