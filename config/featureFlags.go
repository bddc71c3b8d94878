package config

import (
	"os"
	"strings"
	"time"
)

// SkipMigrations disables AutoMigrate on service start.
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	return envBool("SKIP_MIGRATIONS", false)
}

// SeedDefaultData inserts the default users, machines, orders and stop reasons when the tables are empty.
//
// Set via env:
// - SEED_DEFAULT_DATA=true
func SeedDefaultData() bool {
	return envBool("SEED_DEFAULT_DATA", false)
}

// SyncInterval is the period of the background order sync. Zero means sync runs only on demand.
//
// Set via env:
// - SYNC_INTERVAL_MINUTES=15
func SyncInterval() time.Duration {
	n := intFromEnv("SYNC_INTERVAL_MINUTES", 0)
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}

// SyncArchiveBucket is the GCS bucket receiving the raw feed of every sync run. Empty disables archiving.
func SyncArchiveBucket() string {
	return strings.TrimSpace(os.Getenv("SYNC_ARCHIVE_BUCKET"))
}

// SyncTopic is the Pub/Sub topic used to trigger sync runs across instances.
func SyncTopic() string {
	v := strings.TrimSpace(os.Getenv("SYNC_PUBSUB_TOPIC"))
	if v == "" {
		return "production-order-sync"
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SyncCreateTopic creates the sync topic before publishing when it does not exist.
func SyncCreateTopic() bool {
	return envBool("SYNC_PUBSUB_CREATE_TOPIC", false)
}

// ReportCacheEnabled turns on Redis caching of admin reports.
//
// Set via env:
// - ENABLE_REPORT_CACHE=true
// - REPORT_CACHE_TTL_SECONDS=30
func ReportCacheEnabled() bool {
	return envBool("ENABLE_REPORT_CACHE", false)
}

func ReportCacheTTL() time.Duration {
	n := intFromEnv("REPORT_CACHE_TTL_SECONDS", 30)
	if n <= 0 {
		n = 30
	}
	return time.Duration(n) * time.Second
}

// ReportSlowThreshold is the build time above which a report is logged as slow (REPORT_SLOW_MS, default 500).
func ReportSlowThreshold() time.Duration {
	n := intFromEnv("REPORT_SLOW_MS", 500)
	if n <= 0 {
		n = 500
	}
	return time.Duration(n) * time.Millisecond
}
