package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marc-delays/tracker/internal/models"
)

// SaveReport stores the latest rendered report of a train
func (db *DB) SaveReport(ctx context.Context, trainID, markdown string, generatedAt time.Time) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO train_reports (train_id, markdown, generated_at_utc)
		VALUES (?, ?, ?)
		ON CONFLICT (train_id) DO UPDATE SET
			markdown = excluded.markdown,
			generated_at_utc = excluded.generated_at_utc
	`, trainID, markdown, generatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save report for train %s: %w", trainID, err)
	}
	return nil
}

// GetReport returns the latest report of a train, or nil if none was rendered
func (db *DB) GetReport(ctx context.Context, trainID string) (*models.TrainReport, error) {
	var generatedAt string
	report := models.TrainReport{TrainID: trainID}

	err := db.conn.QueryRowContext(ctx,
		"SELECT markdown, generated_at_utc FROM train_reports WHERE train_id = ?", trainID,
	).Scan(&report.Markdown, &generatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report for train %s: %w", trainID, err)
	}

	report.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
	return &report, nil
}

// RecordRun stores a completed aggregation run
func (db *DB) RecordRun(ctx context.Context, run models.AggregationRun) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO aggregation_runs (run_id, service_date, started_at_utc, finished_at_utc, trains_processed, trains_skipped)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.RunID, run.ServiceDate,
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
		run.TrainsProcessed, run.TrainsSkipped)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// HasRun reports whether an aggregation already completed for a service date
func (db *DB) HasRun(ctx context.Context, serviceDate string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM aggregation_runs WHERE service_date = ?", serviceDate).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query runs: %w", err)
	}
	return count > 0, nil
}
