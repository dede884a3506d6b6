package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marc-delays/tracker/internal/aggregate"
	"github.com/marc-delays/tracker/internal/app"
	"github.com/marc-delays/tracker/internal/config"
	"github.com/marc-delays/tracker/internal/ingest"
	"github.com/marc-delays/tracker/internal/realtime/tracker"
)

func main() {
	log.Println("Starting MARC delay tracker...")

	cfg := config.Load()
	log.Printf("Config loaded: poll_interval=%v, aggregate_hour=%d, source=%s, tz=%s",
		cfg.PollInterval, cfg.AggregateHour, cfg.ArrivalSource, cfg.ServiceTZ)

	lines, err := app.Lines(cfg)
	if err != nil {
		log.Fatalf("Failed to load lines: %v", err)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Storage
	// ═══════════════════════════════════════════════════════
	store, err := app.OpenStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	markupCache := app.OpenMarkupCache(context.Background(), cfg)
	defer markupCache.Close()

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Ingestion and aggregation
	// ═══════════════════════════════════════════════════════
	client := tracker.NewClient(cfg.TrackerBaseURL, cfg.TimetableURLTemplate)

	source, err := app.NewSource(cfg, client)
	if err != nil {
		log.Fatalf("Failed to create arrival source: %v", err)
	}
	poller := ingest.NewPoller(source, store, cfg.Location())

	job, err := app.NewAggregateJob(cfg, store, client, markupCache, lines)
	if err != nil {
		log.Fatalf("Failed to create aggregation job: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("Running initial poll...")
	pollOnce(ctx, poller)

	go func() {
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pollOnce(ctx, poller)
			case <-ctx.Done():
				log.Println("Polling loop stopped")
				return
			}
		}
	}()

	go func() {
		loc := cfg.Location()
		for {
			next := app.NextDailyRun(time.Now(), cfg.AggregateHour, loc)
			log.Printf("Next aggregation at %s", next.Format(time.RFC3339))

			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				aggregateOnce(ctx, job, app.Yesterday(time.Now(), loc))
			case <-ctx.Done():
				timer.Stop()
				log.Println("Aggregation loop stopped")
				return
			}
		}
	}()

	log.Printf("Tracker running (poll every %v, aggregate daily at %02d:00 %s)", cfg.PollInterval, cfg.AggregateHour, cfg.ServiceTZ)

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Graceful Shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	time.Sleep(100 * time.Millisecond)
	log.Println("Goodbye!")
}

func pollOnce(ctx context.Context, poller *ingest.Poller) {
	if err := poller.Poll(ctx); err != nil {
		log.Printf("Ingest poll error: %v", err)
	}
}

func aggregateOnce(ctx context.Context, job *aggregate.Job, serviceDate time.Time) {
	// bound the whole daily run
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if _, err := job.Run(runCtx, serviceDate); err != nil {
		log.Printf("Aggregation error: %v", err)
	}
}
