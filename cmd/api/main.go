package main

import (
	"context"
	"log"
	"net/http"

	"github.com/marc-delays/tracker/internal/app"
	"github.com/marc-delays/tracker/internal/config"
	"github.com/marc-delays/tracker/internal/handlers"
)

func main() {
	cfg := config.Load()

	store, err := app.OpenStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	r := handlers.NewRouter(store, cfg.CORSOrigins)

	log.Printf("API server starting on :%s", cfg.Port)
	log.Println("Endpoints:")
	log.Println("  GET /health (with database check)")
	log.Println("  GET /api/trains")
	log.Println("  GET /api/trains/{trainId}/delays")
	log.Println("  GET /api/trains/{trainId}/report")

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
