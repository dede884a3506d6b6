package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Repository is everything the API reads from storage
type Repository interface {
	TrainRepository
	Pinger
}

// NewRouter builds the API routes
func NewRouter(repo Repository, allowedOrigins []string) chi.Router {
	trainHandler := NewTrainHandler(repo)
	healthHandler := NewHealthHandler(repo)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", healthHandler.GetHealth)

	r.Get("/api/trains", trainHandler.GetAllTrains)
	r.Get("/api/trains/{trainId}/delays", trainHandler.GetTrainDelays)
	r.Get("/api/trains/{trainId}/report", trainHandler.GetTrainReport)

	return r
}
