package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tracker services
type Config struct {
	// Storage
	DatabasePath string
	DatabaseURL  string // when set, PostgreSQL is used instead of SQLite

	// Ingestion
	PollInterval  time.Duration
	ArrivalSource string // "tracker" or "gtfsrt"

	// Daily aggregation
	AggregateHour  int
	RetentionDays  int
	NumSamples     int
	ServiceTZ      string
	LinesFile      string
	MarkupCacheTTL time.Duration

	// Live tracker (MTA Maryland)
	TrackerBaseURL       string
	TimetableURLTemplate string
	GTFSTripUpdatesURL   string

	// Markup cache (Redis is used when RedisAddr is set)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Publishing
	PublishDir string

	// API
	Port        string
	CORSOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// Values from .env and .env.local are applied first; .env.local overrides.
func Load() *Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := &Config{
		DatabasePath: getEnv("SQLITE_DATABASE", "/data/delays.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		PollInterval:  time.Duration(getEnvInt("POLL_INTERVAL", 60)) * time.Second,
		ArrivalSource: getEnv("ARRIVAL_SOURCE", "tracker"),

		AggregateHour:  getEnvInt("AGGREGATE_HOUR", 7),
		RetentionDays:  getEnvInt("ACTUALS_RETENTION_DAYS", 60),
		NumSamples:     getEnvInt("NUM_SAMPLES", 30),
		ServiceTZ:      getEnv("SERVICE_TIMEZONE", "America/New_York"),
		LinesFile:      getEnv("LINES_FILE", ""),
		MarkupCacheTTL: time.Duration(getEnvInt("MARKUP_CACHE_TTL_MINUTES", 360)) * time.Minute,

		TrackerBaseURL:       getEnv("TRACKER_BASE_URL", "https://www.mta.maryland.gov/marc-tracker"),
		TimetableURLTemplate: getEnv("TIMETABLE_URL_TEMPLATE", "https://www.mta.maryland.gov/schedule/timetable/{line}?direction={direction}&schedule_date={date}"),
		GTFSTripUpdatesURL:   getEnv("GTFS_TRIP_UPDATES_URL", "https://mdotmta-gtfs-rt.s3.amazonaws.com/MARC+RT/marc-tu.pb"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		PublishDir: getEnv("PUBLISH_DIR", "/data/site"),

		Port:        getEnv("PORT", "8081"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	return cfg
}

// Location returns the service timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ServiceTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
