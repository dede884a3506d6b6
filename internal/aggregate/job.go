// Package aggregate runs the daily pass that turns a service day's arrival
// snapshots into delay histories and published reports.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"github.com/marc-delays/tracker/internal/config"
	"github.com/marc-delays/tracker/internal/delay"
	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/models"
	"github.com/marc-delays/tracker/internal/report"
	"github.com/marc-delays/tracker/internal/timetable"
)

const dateLayout = "2006-01-02"

// Store is the persistence the job reads from and writes to
type Store interface {
	ArrivalsForDate(ctx context.Context, serviceDate string) (map[string]delay.ArrivalReport, error)
	CleanupArrivals(ctx context.Context, before string) (int, error)
	LoadHistory(ctx context.Context, trainID string) (history.Document, error)
	SaveHistory(ctx context.Context, trainID string, doc history.Document) error
	SaveReport(ctx context.Context, trainID, markdown string, generatedAt time.Time) error
	RecordRun(ctx context.Context, run models.AggregationRun) error
	HasRun(ctx context.Context, serviceDate string) (bool, error)
}

// Publisher makes reports public
type Publisher interface {
	PublishReport(ctx context.Context, trainID, markdown string) (bool, error)
	AddToIndex(ctx context.Context, trainID string) error
	ArchiveArrivals(ctx context.Context, serviceDate, trainID string, report delay.ArrivalReport) error
}

// Job is one configured daily aggregation. Publisher may be nil.
type Job struct {
	Fetcher       timetable.MarkupFetcher
	Lines         []config.Line
	Store         Store
	Publisher     Publisher
	Capacity      int
	RetentionDays int
	Location      *time.Location

	// Force re-aggregates a service date that already has a completed run.
	// Every rerun prepends the day's samples again.
	Force bool

	now func() time.Time
}

// Result summarizes a run
type Result struct {
	RunID       string
	ServiceDate string
	AlreadyRun  bool
	Cleaned     int
	Trains      int
	Processed   int
	Skipped     int
	Failed      int
	Diagnostics int
}

func (j *Job) clock() time.Time {
	if j.now != nil {
		return j.now()
	}
	return time.Now()
}

// Run aggregates the arrivals of serviceDate. A train without a schedule is
// skipped; a train whose store or publish step fails is counted as failed and
// the remaining trains still run. The run is recorded even when some trains
// failed or the context was cancelled part way, since rerunning would
// duplicate the samples of those that succeeded.
func (j *Job) Run(ctx context.Context, serviceDate time.Time) (Result, error) {
	loc := j.Location
	if loc == nil {
		loc = time.UTC
	}
	date := serviceDate.Format(dateLayout)
	result := Result{RunID: uuid.New().String(), ServiceDate: date}
	startedAt := j.clock()

	if !j.Force {
		ran, err := j.Store.HasRun(ctx, date)
		if err != nil {
			return result, err
		}
		if ran {
			log.Printf("Aggregate: %s already aggregated, skipping", date)
			result.AlreadyRun = true
			return result, nil
		}
	}

	log.Printf("Aggregate: run %s for %s", result.RunID, date)

	if j.RetentionDays > 0 {
		cutoff := startedAt.In(loc).AddDate(0, 0, -j.RetentionDays).Format(dateLayout)
		cleaned, err := j.Store.CleanupArrivals(ctx, cutoff)
		if err != nil {
			log.Printf("Aggregate: Warning: cleanup failed: %v", err)
		}
		result.Cleaned = cleaned
	}

	arrivals, err := j.Store.ArrivalsForDate(ctx, date)
	if err != nil {
		return result, fmt.Errorf("failed to load arrivals for %s: %w", date, err)
	}
	result.Trains = len(arrivals)

	var errs []error
	if len(arrivals) == 0 {
		log.Printf("Aggregate: no arrivals stored for %s", date)
	} else {
		schedules := timetable.Aggregate(ctx, j.Fetcher, j.Lines, timetable.AllDirections(), serviceDate)

		trainIDs := maps.Keys(arrivals)
		slices.Sort(trainIDs)

		for _, trainID := range trainIDs {
			if err := ctx.Err(); err != nil {
				log.Printf("Aggregate: %s interrupted after %d trains: %v", date, result.Processed, err)
				errs = append(errs, err)
				break
			}

			arrivalReport := arrivals[trainID]
			schedule, ok := schedules[trainID]
			if !ok || len(arrivalReport) == 0 {
				log.Printf("Aggregate: Warning: skipping train %s (scheduled=%t, reported stops=%d)", trainID, ok, len(arrivalReport))
				result.Skipped++
				continue
			}

			diags, err := j.processTrain(ctx, date, trainID, schedule, arrivalReport)
			result.Diagnostics += diags
			if err != nil {
				log.Printf("Aggregate: train %s failed: %v", trainID, err)
				errs = append(errs, fmt.Errorf("train %s: %w", trainID, err))
				result.Failed++
				continue
			}
			result.Processed++
		}
	}

	run := models.AggregationRun{
		RunID:           result.RunID,
		ServiceDate:     date,
		StartedAt:       startedAt,
		FinishedAt:      j.clock(),
		TrainsProcessed: result.Processed,
		TrainsSkipped:   result.Skipped,
	}
	// recorded even when interrupted: histories saved so far must not be
	// prepended again by a rerun
	if err := j.Store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		errs = append(errs, err)
	}

	log.Printf("Aggregate: %s done: %d processed, %d skipped, %d failed, %d diagnostics",
		date, result.Processed, result.Skipped, result.Failed, result.Diagnostics)
	return result, errors.Join(errs...)
}

// processTrain runs match, delay, history update, render and publish for one
// train and returns the number of diagnostics logged
func (j *Job) processTrain(ctx context.Context, date, trainID string, schedule timetable.Schedule, arrivalReport delay.ArrivalReport) (int, error) {
	record, diags := delay.Compute(schedule, arrivalReport)
	for _, d := range diags {
		log.Printf("Aggregate: Warning: train %s: %s", trainID, d)
	}

	doc, err := j.Store.LoadHistory(ctx, trainID)
	if err != nil {
		return len(diags), err
	}

	doc = history.Update(doc, record, j.Capacity)
	if err := j.Store.SaveHistory(ctx, trainID, doc); err != nil {
		return len(diags), err
	}

	generatedAt := j.clock()
	markdown := report.Render(trainID, schedule, doc, generatedAt)
	if err := j.Store.SaveReport(ctx, trainID, markdown, generatedAt); err != nil {
		return len(diags), err
	}

	if j.Publisher == nil {
		return len(diags), nil
	}

	created, err := j.Publisher.PublishReport(ctx, trainID, markdown)
	if err != nil {
		return len(diags), fmt.Errorf("publish report: %w", err)
	}
	if created {
		if err := j.Publisher.AddToIndex(ctx, trainID); err != nil {
			return len(diags), fmt.Errorf("update index: %w", err)
		}
	}
	if err := j.Publisher.ArchiveArrivals(ctx, date, trainID, arrivalReport); err != nil {
		return len(diags), fmt.Errorf("archive arrivals: %w", err)
	}
	return len(diags), nil
}
