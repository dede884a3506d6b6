package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marc-delays/tracker/internal/config"
	"github.com/marc-delays/tracker/internal/db"
	"github.com/marc-delays/tracker/internal/delay"
	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/publish"
	"github.com/marc-delays/tracker/internal/timetable"
)

type fakeFetcher struct {
	pages map[timetable.Direction]string
}

func (f fakeFetcher) FetchTimetable(_ context.Context, _ string, direction timetable.Direction, _ time.Time) (string, error) {
	page, ok := f.pages[direction]
	if !ok {
		return "", errors.New("HTTP 404")
	}
	return page, nil
}

const outbound = `<table>
<thead><tr><th>Station</th><th>Train 401</th><th>Train 538</th></tr></thead>
<tbody>
<tr><td>Camden Station</td><td>1:00 PM</td><td>5:00 PM</td></tr>
<tr><td>Dorsey</td><td>1:20 PM</td><td>5:20 PM</td></tr>
</tbody>
</table>`

var (
	serviceDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	runAt       = time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC)
)

type fixture struct {
	store *db.DB
	root  string
	job   *Job
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	store, err := db.Connect(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(ctx))

	root := t.TempDir()
	publisher, err := publish.NewDir(root)
	require.NoError(t, err)

	job := &Job{
		Fetcher:       fakeFetcher{pages: map[timetable.Direction]string{timetable.DirectionOutbound: outbound}},
		Lines:         []config.Line{{Slug: "marc-camden", Name: "Camden Line"}},
		Store:         store,
		Publisher:     publisher,
		Capacity:      history.DefaultCapacity,
		RetentionDays: 60,
		Location:      time.UTC,
		now:           func() time.Time { return runAt },
	}
	return fixture{store: store, root: root, job: job}
}

func TestRun(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.store.MergeArrivals(ctx, "2024-03-04", "401", delay.ArrivalReport{"0": "1:00 PM", "1": "1:23 PM"}, runAt))
	require.NoError(t, f.store.MergeArrivals(ctx, "2024-03-04", "999", delay.ArrivalReport{"1": "9:00 AM"}, runAt))
	require.NoError(t, f.store.MergeArrivals(ctx, "2023-12-01", "401", delay.ArrivalReport{"0": "1:00 PM"}, runAt))
	require.NoError(t, f.store.SaveHistory(ctx, "401", history.Document{"Camden Station": {5, 3, 1}}))

	result, err := f.job.Run(ctx, serviceDate)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-04", result.ServiceDate)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.Cleaned)
	assert.Equal(t, 2, result.Trains)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed)

	doc, err := f.store.LoadHistory(ctx, "401")
	require.NoError(t, err)
	assert.Equal(t, history.Document{"Camden Station": {0, 5, 3, 1}, "Dorsey": {3}}, doc)

	stored, err := f.store.GetReport(ctx, "401")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, stored.Markdown, "| Camden Station | 4 | 0 | 5 | 2.25 | 3 |")
	assert.Contains(t, stored.Markdown, "| Dorsey | 1 | 3 | 3 | 3.00 | 3 |")

	published, err := os.ReadFile(filepath.Join(f.root, "train_401.md"))
	require.NoError(t, err)
	assert.Equal(t, stored.Markdown, string(published))

	readme, err := os.ReadFile(filepath.Join(f.root, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "* [Train 401](train_401.md)\n", string(readme))

	raw, err := os.ReadFile(filepath.Join(f.root, "data", "2024-03-04_401"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":"1:00 PM","1":"1:23 PM"}`, string(raw))
}

func TestRunOncePerServiceDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.store.MergeArrivals(ctx, "2024-03-04", "401", delay.ArrivalReport{"1": "1:05 PM", "2": "1:20 PM"}, runAt))

	_, err := f.job.Run(ctx, serviceDate)
	require.NoError(t, err)

	result, err := f.job.Run(ctx, serviceDate)
	require.NoError(t, err)
	assert.True(t, result.AlreadyRun)

	doc, err := f.store.LoadHistory(ctx, "401")
	require.NoError(t, err)
	assert.Equal(t, history.Document{"Camden Station": {5}, "Dorsey": {0}}, doc)

	f.job.Force = true
	result, err = f.job.Run(ctx, serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	doc, err = f.store.LoadHistory(ctx, "401")
	require.NoError(t, err)
	assert.Equal(t, history.Document{"Camden Station": {5, 5}, "Dorsey": {0, 0}}, doc)
}

func TestRunNoArrivals(t *testing.T) {
	f := setup(t)

	result, err := f.job.Run(context.Background(), serviceDate)
	require.NoError(t, err)
	assert.Zero(t, result.Trains)
	assert.Zero(t, result.Processed)

	ran, err := f.store.HasRun(context.Background(), "2024-03-04")
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRunCountsDiagnostics(t *testing.T) {
	f := setup(t)
	f.job.Publisher = nil
	ctx := context.Background()

	// key "1" (Dorsey) is missing, key "5" matches no stop
	require.NoError(t, f.store.MergeArrivals(ctx, "2024-03-04", "538", delay.ArrivalReport{"0": "5:02 PM", "5": "6:00 PM"}, runAt))

	result, err := f.job.Run(ctx, serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Diagnostics)

	doc, err := f.store.LoadHistory(ctx, "538")
	require.NoError(t, err)
	assert.Equal(t, history.Document{"Camden Station": {2}}, doc)

	_, err = os.Stat(filepath.Join(f.root, "train_538.md"))
	assert.True(t, os.IsNotExist(err))
}

type failingStore struct {
	*db.DB
	failTrain string
}

func (s failingStore) SaveHistory(ctx context.Context, trainID string, doc history.Document) error {
	if trainID == s.failTrain {
		return fmt.Errorf("disk full")
	}
	return s.DB.SaveHistory(ctx, trainID, doc)
}

func TestRunContinuesAfterTrainFailure(t *testing.T) {
	f := setup(t)
	f.job.Store = failingStore{DB: f.store, failTrain: "401"}
	ctx := context.Background()

	require.NoError(t, f.store.MergeArrivals(ctx, "2024-03-04", "401", delay.ArrivalReport{"0": "1:00 PM"}, runAt))
	require.NoError(t, f.store.MergeArrivals(ctx, "2024-03-04", "538", delay.ArrivalReport{"0": "5:00 PM"}, runAt))

	result, err := f.job.Run(ctx, serviceDate)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "train 401"))
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Processed)

	ran, err := f.store.HasRun(ctx, "2024-03-04")
	require.NoError(t, err)
	assert.True(t, ran)
}

type cancellingStore struct {
	*db.DB
	afterTrain string
	cancel     context.CancelFunc
}

func (s cancellingStore) SaveHistory(ctx context.Context, trainID string, doc history.Document) error {
	err := s.DB.SaveHistory(ctx, trainID, doc)
	if trainID == s.afterTrain {
		s.cancel()
	}
	return err
}

func TestRunRecordedWhenCancelled(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.job.Store = cancellingStore{DB: f.store, afterTrain: "401", cancel: cancel}
	f.job.Publisher = nil

	require.NoError(t, f.store.MergeArrivals(ctx, "2024-03-04", "401", delay.ArrivalReport{"1": "1:05 PM", "2": "1:30 PM"}, runAt))
	require.NoError(t, f.store.MergeArrivals(ctx, "2024-03-04", "538", delay.ArrivalReport{"0": "5:00 PM"}, runAt))

	result, err := f.job.Run(ctx, serviceDate)
	require.ErrorIs(t, err, context.Canceled)
	// 401 saved its history before the cancellation; 538 never started
	assert.Equal(t, 1, result.Processed+result.Failed)

	background := context.Background()
	ran, err := f.store.HasRun(background, "2024-03-04")
	require.NoError(t, err)
	assert.True(t, ran)

	// the guard keeps a rerun from prepending 401's samples again
	result, err = f.job.Run(background, serviceDate)
	require.NoError(t, err)
	assert.True(t, result.AlreadyRun)

	doc, err := f.store.LoadHistory(background, "401")
	require.NoError(t, err)
	assert.Equal(t, history.Document{"Camden Station": {5}, "Dorsey": {10}}, doc)

	doc, err = f.store.LoadHistory(background, "538")
	require.NoError(t, err)
	assert.Nil(t, doc)
}
