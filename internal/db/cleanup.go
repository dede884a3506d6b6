package db

import (
	"context"
	"fmt"
	"log"
)

// CleanupArrivals deletes arrival reports of service dates before the given
// date (YYYY-MM-DD) and returns how many were removed
func (db *DB) CleanupArrivals(ctx context.Context, before string) (int, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	result, err := db.conn.ExecContext(ctx, "DELETE FROM arrival_reports WHERE service_date < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup arrivals: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		log.Printf("Cleanup: deleted %d arrival reports older than %s", rows, before)
	}
	return int(rows), nil
}
