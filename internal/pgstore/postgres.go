// Package pgstore keeps arrivals, delay histories and reports in PostgreSQL.
// It has the same method set as the SQLite store in internal/db.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marc-delays/tracker/internal/delay"
	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store is a PostgreSQL document store backed by a connection pool
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and pings it
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Connected to PostgreSQL database")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates tables if they don't exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	log.Println("Database schema ensured")
	return nil
}

// MergeArrivals merges report into the stored report with jsonb concatenation,
// so newer keys win and older keys are kept.
func (s *Store) MergeArrivals(ctx context.Context, serviceDate, trainID string, report delay.ArrivalReport, polledAt time.Time) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode arrivals: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO arrival_reports (report_key, service_date, train_id, snapshot_id, stops, polled_at_utc)
		VALUES ($1, $2::date, $3, $4, $5::jsonb, $6)
		ON CONFLICT (report_key) DO UPDATE SET
			snapshot_id = EXCLUDED.snapshot_id,
			stops = arrival_reports.stops || EXCLUDED.stops,
			polled_at_utc = EXCLUDED.polled_at_utc
	`, serviceDate+"_"+trainID, serviceDate, trainID, uuid.New(), string(data), polledAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert arrivals for train %s: %w", trainID, err)
	}
	return nil
}

// ArrivalsForDate returns every stored arrival report of a service date, keyed by train
func (s *Store) ArrivalsForDate(ctx context.Context, serviceDate string) (map[string]delay.ArrivalReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT train_id, stops
		FROM arrival_reports
		WHERE service_date = $1::date
		ORDER BY report_key
	`, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query arrivals: %w", err)
	}
	defer rows.Close()

	reports := make(map[string]delay.ArrivalReport)
	for rows.Next() {
		var trainID string
		var stops []byte
		if err := rows.Scan(&trainID, &stops); err != nil {
			return nil, fmt.Errorf("failed to scan arrivals row: %w", err)
		}
		report := make(delay.ArrivalReport)
		if err := json.Unmarshal(stops, &report); err != nil {
			return nil, fmt.Errorf("failed to decode arrivals for train %s: %w", trainID, err)
		}
		reports[trainID] = report
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating arrivals rows: %w", err)
	}
	return reports, nil
}

// CleanupArrivals deletes arrival reports of service dates before the given
// date (YYYY-MM-DD) and returns how many were removed
func (s *Store) CleanupArrivals(ctx context.Context, before string) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM arrival_reports WHERE service_date < $1::date", before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup arrivals: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Printf("Cleanup: deleted %d arrival reports older than %s", n, before)
	}
	return int(tag.RowsAffected()), nil
}

// LoadHistory returns the delay document of a train, or nil if it has none yet
func (s *Store) LoadHistory(ctx context.Context, trainID string) (history.Document, error) {
	var stations []byte
	err := s.pool.QueryRow(ctx, "SELECT stations FROM train_delays WHERE train_id = $1", trainID).Scan(&stations)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read delays for train %s: %w", trainID, err)
	}

	var doc history.Document
	if err := json.Unmarshal(stations, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode delays for train %s: %w", trainID, err)
	}
	return doc, nil
}

// SaveHistory replaces the delay document of a train
func (s *Store) SaveHistory(ctx context.Context, trainID string, doc history.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode delays for train %s: %w", trainID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO train_delays (train_id, stations, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (train_id) DO UPDATE SET
			stations = EXCLUDED.stations,
			updated_at = EXCLUDED.updated_at
	`, trainID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save delays for train %s: %w", trainID, err)
	}
	return nil
}

// ListTrains returns every train with a delay history, ordered by train ID
func (s *Store) ListTrains(ctx context.Context) ([]models.TrainSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT train_id, (SELECT COUNT(*) FROM jsonb_object_keys(stations)), updated_at
		FROM train_delays
		ORDER BY train_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trains: %w", err)
	}
	defer rows.Close()

	var trains []models.TrainSummary
	for rows.Next() {
		var t models.TrainSummary
		var stations int64
		if err := rows.Scan(&t.TrainID, &stations, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan train row: %w", err)
		}
		t.Stations = int(stations)
		trains = append(trains, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating train rows: %w", err)
	}
	return trains, nil
}

// SaveReport stores the latest rendered report of a train
func (s *Store) SaveReport(ctx context.Context, trainID, markdown string, generatedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO train_reports (train_id, markdown, generated_at_utc)
		VALUES ($1, $2, $3)
		ON CONFLICT (train_id) DO UPDATE SET
			markdown = EXCLUDED.markdown,
			generated_at_utc = EXCLUDED.generated_at_utc
	`, trainID, markdown, generatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save report for train %s: %w", trainID, err)
	}
	return nil
}

// GetReport returns the latest report of a train, or nil if none was rendered
func (s *Store) GetReport(ctx context.Context, trainID string) (*models.TrainReport, error) {
	report := models.TrainReport{TrainID: trainID}
	err := s.pool.QueryRow(ctx,
		"SELECT markdown, generated_at_utc FROM train_reports WHERE train_id = $1", trainID,
	).Scan(&report.Markdown, &report.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report for train %s: %w", trainID, err)
	}
	return &report, nil
}

// RecordRun stores a completed aggregation run. Run IDs must be UUIDs.
func (s *Store) RecordRun(ctx context.Context, run models.AggregationRun) error {
	runID, err := uuid.Parse(run.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.RunID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO aggregation_runs (run_id, service_date, started_at_utc, finished_at_utc, trains_processed, trains_skipped)
		VALUES ($1, $2::date, $3, $4, $5, $6)
	`, runID, run.ServiceDate, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.TrainsProcessed, run.TrainsSkipped)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// HasRun reports whether an aggregation already completed for a service date
func (s *Store) HasRun(ctx context.Context, serviceDate string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM aggregation_runs WHERE service_date = $1::date)", serviceDate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query runs: %w", err)
	}
	return exists, nil
}
