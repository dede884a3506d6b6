package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marc-delays/tracker/internal/delay"
)

// ReportKey is the storage key of one train's arrivals on one service date
func ReportKey(serviceDate, trainID string) string {
	return serviceDate + "_" + trainID
}

// MergeArrivals merges a polled arrival report into the stored report for
// (serviceDate, trainID). Keys in report overwrite stored keys; other stored
// keys are kept.
func (db *DB) MergeArrivals(ctx context.Context, serviceDate, trainID string, report delay.ArrivalReport, polledAt time.Time) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	key := ReportKey(serviceDate, trainID)

	merged := make(delay.ArrivalReport)
	var stored string
	err = tx.QueryRowContext(ctx, "SELECT stops_json FROM arrival_reports WHERE report_key = ?", key).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to read arrivals %s: %w", key, err)
	default:
		if err := json.Unmarshal([]byte(stored), &merged); err != nil {
			return fmt.Errorf("failed to decode arrivals %s: %w", key, err)
		}
	}

	for stopKey, actual := range report {
		merged[stopKey] = actual
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode arrivals %s: %w", key, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO arrival_reports (report_key, service_date, train_id, snapshot_id, stops_json, polled_at_utc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_key) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			stops_json = excluded.stops_json,
			polled_at_utc = excluded.polled_at_utc
	`, key, serviceDate, trainID, uuid.New().String(), string(data), polledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert arrivals %s: %w", key, err)
	}

	return tx.Commit()
}

// ArrivalsForDate returns every stored arrival report of a service date, keyed by train
func (db *DB) ArrivalsForDate(ctx context.Context, serviceDate string) (map[string]delay.ArrivalReport, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT train_id, stops_json FROM arrival_reports WHERE service_date = ? ORDER BY report_key",
		serviceDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query arrivals: %w", err)
	}
	defer rows.Close()

	reports := make(map[string]delay.ArrivalReport)
	for rows.Next() {
		var trainID, stops string
		if err := rows.Scan(&trainID, &stops); err != nil {
			return nil, fmt.Errorf("failed to scan arrivals row: %w", err)
		}
		report := make(delay.ArrivalReport)
		if err := json.Unmarshal([]byte(stops), &report); err != nil {
			return nil, fmt.Errorf("failed to decode arrivals for train %s: %w", trainID, err)
		}
		reports[trainID] = report
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating arrivals rows: %w", err)
	}
	return reports, nil
}
