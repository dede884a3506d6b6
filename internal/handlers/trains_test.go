package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/models"
)

type fakeRepo struct {
	trains  []models.TrainSummary
	docs    map[string]history.Document
	reports map[string]*models.TrainReport
	err     error
}

func (f *fakeRepo) ListTrains(context.Context) ([]models.TrainSummary, error) {
	return f.trains, f.err
}

func (f *fakeRepo) LoadHistory(_ context.Context, trainID string) (history.Document, error) {
	return f.docs[trainID], f.err
}

func (f *fakeRepo) GetReport(_ context.Context, trainID string) (*models.TrainReport, error) {
	return f.reports[trainID], f.err
}

func (f *fakeRepo) Ping(context.Context) error {
	return f.err
}

func serve(t *testing.T, repo Repository, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewRouter(repo, []string{"*"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetAllTrains(t *testing.T) {
	repo := &fakeRepo{trains: []models.TrainSummary{{TrainID: "401", Stations: 12}}}

	rec := serve(t, repo, "/api/trains")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TrainsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "401", resp.Trains[0].TrainID)
}

func TestGetAllTrainsEmpty(t *testing.T) {
	rec := serve(t, &fakeRepo{}, "/api/trains")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trains":[]`)
}

func TestGetTrainDelays(t *testing.T) {
	repo := &fakeRepo{docs: map[string]history.Document{
		"401": {"Dorsey": {3}, "Camden Station": {0, 5, 3, 1}, "Laurel": {}},
	}}

	rec := serve(t, repo, "/api/trains/401/delays")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TrainDelaysResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "401", resp.TrainID)
	require.Len(t, resp.Stations, 3)

	camden := resp.Stations[0]
	assert.Equal(t, "Camden Station", camden.Station)
	assert.Equal(t, []int{0, 5, 3, 1}, camden.Samples)
	assert.Equal(t, 4, camden.Summary.Count)
	assert.Equal(t, 2.25, camden.Summary.Mean)
	assert.Equal(t, 3, camden.Summary.Median)

	assert.Equal(t, "Dorsey", resp.Stations[1].Station)
	assert.Equal(t, "Laurel", resp.Stations[2].Station)
	assert.Zero(t, resp.Stations[2].Summary.Count)
}

func TestGetTrainDelaysNotFound(t *testing.T) {
	rec := serve(t, &fakeRepo{}, "/api/trains/999/delays")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Train not found", resp.Error)
	assert.Equal(t, "999", resp.Details["trainId"])
}

func TestGetTrainReport(t *testing.T) {
	generated := time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC)
	repo := &fakeRepo{reports: map[string]*models.TrainReport{
		"401": {TrainID: "401", Markdown: "## Train 401\n", GeneratedAt: generated},
	}}

	rec := serve(t, repo, "/api/trains/401/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "## Train 401\n", rec.Body.String())

	rec = serve(t, repo, "/api/trains/401/report?format=json")
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.TrainReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.True(t, generated.Equal(report.GeneratedAt))

	rec = serve(t, repo, "/api/trains/538/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRepositoryErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("database is locked")}

	for _, path := range []string{"/api/trains", "/api/trains/401/delays", "/api/trains/401/report"} {
		rec := serve(t, repo, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "database is locked", path)
	}

	rec := serve(t, repo, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeRepo{}, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"connected"`)
}
