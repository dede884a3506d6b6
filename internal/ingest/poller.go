// Package ingest stores live arrival snapshots for the daily aggregation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/marc-delays/tracker/internal/delay"
)

// DateLayout is the service date format used as storage key
const DateLayout = "2006-01-02"

// Source returns the arrivals reported so far for every active train
type Source interface {
	Reports(ctx context.Context) (map[string]delay.ArrivalReport, error)
}

// Store persists arrival snapshots
type Store interface {
	MergeArrivals(ctx context.Context, serviceDate, trainID string, report delay.ArrivalReport, polledAt time.Time) error
}

// Poller fetches arrival reports and merges them into the store under the
// service date they were observed on
type Poller struct {
	source Source
	store  Store
	loc    *time.Location
	now    func() time.Time
}

// NewPoller creates a poller. Service dates are computed in loc.
func NewPoller(source Source, store Store, loc *time.Location) *Poller {
	if loc == nil {
		loc = time.UTC
	}
	return &Poller{source: source, store: store, loc: loc, now: time.Now}
}

// Poll runs one ingestion cycle. A train that cannot be stored is logged and
// the rest are still stored; the per-train errors are returned joined.
func (p *Poller) Poll(ctx context.Context) error {
	polledAt := p.now()
	serviceDate := polledAt.In(p.loc).Format(DateLayout)

	reports, err := p.source.Reports(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch arrival reports: %w", err)
	}

	if len(reports) == 0 {
		log.Println("Ingest: no active trains")
		return nil
	}

	stored := 0
	var errs []error
	for trainID, report := range reports {
		if len(report) == 0 {
			continue
		}
		if err := p.store.MergeArrivals(ctx, serviceDate, trainID, report, polledAt); err != nil {
			log.Printf("Ingest: failed to store arrivals for train %s: %v", trainID, err)
			errs = append(errs, fmt.Errorf("train %s: %w", trainID, err))
			continue
		}
		stored++
	}

	log.Printf("Ingest: stored arrivals for %d of %d trains (%s)", stored, len(reports), serviceDate)
	return errors.Join(errs...)
}
