package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/marc-delays/tracker/internal/app"
	"github.com/marc-delays/tracker/internal/config"
	"github.com/marc-delays/tracker/internal/realtime/tracker"
)

func main() {
	dateFlag := flag.String("date", "", "service date to aggregate (YYYY-MM-DD, default yesterday)")
	force := flag.Bool("force", false, "aggregate again even if the date already ran")
	flag.Parse()

	cfg := config.Load()
	loc := cfg.Location()

	serviceDate := app.Yesterday(time.Now(), loc)
	if *dateFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *dateFlag, loc)
		if err != nil {
			log.Fatalf("Invalid -date %q: %v", *dateFlag, err)
		}
		serviceDate = parsed
	}

	lines, err := app.Lines(cfg)
	if err != nil {
		log.Fatalf("Failed to load lines: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	markupCache := app.OpenMarkupCache(ctx, cfg)
	defer markupCache.Close()

	client := tracker.NewClient(cfg.TrackerBaseURL, cfg.TimetableURLTemplate)
	job, err := app.NewAggregateJob(cfg, store, client, markupCache, lines)
	if err != nil {
		log.Fatalf("Failed to create aggregation job: %v", err)
	}
	job.Force = *force

	result, err := job.Run(ctx, serviceDate)
	if err != nil {
		log.Fatalf("Aggregation of %s finished with errors: %v", result.ServiceDate, err)
	}
	log.Printf("Aggregation of %s complete: %d processed, %d skipped", result.ServiceDate, result.Processed, result.Skipped)
}
