package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marc-delays/tracker/internal/delay"
	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	store, err := New(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestMergeArrivals(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// unique train per run so reruns against a shared database stay independent
	trainID := "t" + uuid.NewString()[:8]
	date := "1999-01-04"

	require.NoError(t, store.MergeArrivals(ctx, date, trainID, delay.ArrivalReport{"0": "1:10 PM"}, time.Now()))
	require.NoError(t, store.MergeArrivals(ctx, date, trainID, delay.ArrivalReport{"0": "1:11 PM", "1": "1:25 PM"}, time.Now()))

	reports, err := store.ArrivalsForDate(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, delay.ArrivalReport{"0": "1:11 PM", "1": "1:25 PM"}, reports[trainID])

	_, err = store.CleanupArrivals(ctx, "1999-01-05")
	require.NoError(t, err)

	reports, err = store.ArrivalsForDate(ctx, date)
	require.NoError(t, err)
	assert.NotContains(t, reports, trainID)
}

func TestHistoryAndReport(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	trainID := "t" + uuid.NewString()[:8]

	doc, err := store.LoadHistory(ctx, trainID)
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, store.SaveHistory(ctx, trainID, history.Document{"A": {2, 0}}))
	doc, err = store.LoadHistory(ctx, trainID)
	require.NoError(t, err)
	assert.Equal(t, history.Document{"A": {2, 0}}, doc)

	require.NoError(t, store.SaveReport(ctx, trainID, "## Train x\n", time.Now()))
	report, err := store.GetReport(ctx, trainID)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "## Train x\n", report.Markdown)

	require.NoError(t, store.RecordRun(ctx, models.AggregationRun{
		RunID:       uuid.NewString(),
		ServiceDate: "1999-01-04",
		StartedAt:   time.Now(),
		FinishedAt:  time.Now(),
	}))
	ran, err := store.HasRun(ctx, "1999-01-04")
	require.NoError(t, err)
	assert.True(t, ran)
}
