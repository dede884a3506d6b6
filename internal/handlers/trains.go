package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marc-delays/tracker/internal/history"
	"github.com/marc-delays/tracker/internal/metrics"
	"github.com/marc-delays/tracker/internal/models"
)

// TrainRepository defines the read operations the API needs
type TrainRepository interface {
	ListTrains(ctx context.Context) ([]models.TrainSummary, error)
	LoadHistory(ctx context.Context, trainID string) (history.Document, error)
	GetReport(ctx context.Context, trainID string) (*models.TrainReport, error)
}

// TrainHandler handles HTTP requests for train delay data
type TrainHandler struct {
	repo TrainRepository
}

// NewTrainHandler creates a new handler with the given repository
func NewTrainHandler(repo TrainRepository) *TrainHandler {
	return &TrainHandler{repo: repo}
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// GetAllTrains handles GET /api/trains
// Returns every train with a delay history
func (h *TrainHandler) GetAllTrains(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trains, err := h.repo.ListTrains(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to retrieve trains",
			Details: map[string]interface{}{
				"internal": err.Error(),
			},
		})
		return
	}

	if trains == nil {
		trains = []models.TrainSummary{}
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, models.TrainsResponse{
		Trains:      trains,
		Count:       len(trains),
		LastChecked: time.Now().UTC(),
	})
}

// GetTrainDelays handles GET /api/trains/{trainId}/delays
// Returns the samples and summary statistics of every station, by name
func (h *TrainHandler) GetTrainDelays(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trainID := chi.URLParam(r, "trainId")
	if trainID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "trainId parameter is required"})
		return
	}

	doc, err := h.repo.LoadHistory(ctx, trainID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to retrieve delays",
			Details: map[string]interface{}{
				"internal": err.Error(),
			},
		})
		return
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "Train not found",
			Details: map[string]interface{}{"trainId": trainID},
		})
		return
	}

	stations := make([]models.StationDelays, 0, len(doc))
	for station, samples := range doc {
		stations = append(stations, models.StationDelays{
			Station: station,
			Samples: samples,
			Summary: metrics.Summarize(samples),
		})
	}
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].Station < stations[j].Station
	})

	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, models.TrainDelaysResponse{
		TrainID:  trainID,
		Stations: stations,
	})
}

// GetTrainReport handles GET /api/trains/{trainId}/report
// Returns the last rendered Markdown report, or JSON with ?format=json
func (h *TrainHandler) GetTrainReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trainID := chi.URLParam(r, "trainId")
	if trainID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "trainId parameter is required"})
		return
	}

	report, err := h.repo.GetReport(ctx, trainID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to retrieve report",
			Details: map[string]interface{}{
				"internal": err.Error(),
			},
		})
		return
	}
	if report == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "Report not found",
			Details: map[string]interface{}{"trainId": trainID},
		})
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, report)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Last-Modified", report.GeneratedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report.Markdown))
}
