package models

import (
	"time"

	"github.com/marc-delays/tracker/internal/metrics"
)

// TrainSummary lists a train with a delay history
type TrainSummary struct {
	TrainID   string    `json:"trainId"`
	Stations  int       `json:"stations"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TrainReport is the last rendered report of a train
type TrainReport struct {
	TrainID     string    `json:"trainId"`
	Markdown    string    `json:"markdown"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// StationDelays is the history and summary of one station
type StationDelays struct {
	Station string          `json:"station"`
	Samples []int           `json:"samples"` // most recent first
	Summary metrics.Summary `json:"summary"`
}

// TrainDelaysResponse is the response for GET /api/trains/{trainId}/delays
type TrainDelaysResponse struct {
	TrainID  string          `json:"trainId"`
	Stations []StationDelays `json:"stations"`
}

// TrainsResponse is the response for GET /api/trains
type TrainsResponse struct {
	Trains      []TrainSummary `json:"trains"`
	Count       int            `json:"count"`
	LastChecked time.Time      `json:"lastChecked"`
}

// AggregationRun records one daily aggregation
type AggregationRun struct {
	RunID           string
	ServiceDate     string // YYYY-MM-DD
	StartedAt       time.Time
	FinishedAt      time.Time
	TrainsProcessed int
	TrainsSkipped   int
}
