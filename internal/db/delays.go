package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/models"
)

// LoadHistory returns the delay document of a train, or nil if it has none yet
func (db *DB) LoadHistory(ctx context.Context, trainID string) (history.Document, error) {
	var stations string
	err := db.conn.QueryRowContext(ctx, "SELECT stations_json FROM train_delays WHERE train_id = ?", trainID).Scan(&stations)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read delays for train %s: %w", trainID, err)
	}

	var doc history.Document
	if err := json.Unmarshal([]byte(stations), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode delays for train %s: %w", trainID, err)
	}
	return doc, nil
}

// SaveHistory replaces the delay document of a train
func (db *DB) SaveHistory(ctx context.Context, trainID string, doc history.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode delays for train %s: %w", trainID, err)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO train_delays (train_id, stations_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (train_id) DO UPDATE SET
			stations_json = excluded.stations_json,
			updated_at = excluded.updated_at
	`, trainID, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save delays for train %s: %w", trainID, err)
	}
	return nil
}

// ListTrains returns every train with a delay history, ordered by train ID
func (db *DB) ListTrains(ctx context.Context) ([]models.TrainSummary, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT train_id, stations_json, updated_at FROM train_delays ORDER BY train_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query trains: %w", err)
	}
	defer rows.Close()

	var trains []models.TrainSummary
	for rows.Next() {
		var t models.TrainSummary
		var stations, updatedAt string
		if err := rows.Scan(&t.TrainID, &stations, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan train row: %w", err)
		}
		var doc history.Document
		if err := json.Unmarshal([]byte(stations), &doc); err == nil {
			t.Stations = len(doc)
		}
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		trains = append(trains, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating train rows: %w", err)
	}
	return trains, nil
}
