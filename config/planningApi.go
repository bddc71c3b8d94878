package config

import (
	"os"
	"strings"
	"time"
)

const (
	defaultPlanningBaseURL  = "https://promoda.systextil.com.br/apexbd/erp"
	defaultPlanningTokenURL = "https://promoda.systextil.com.br/apexbd/erp/oauth/token"

	// DefaultFinishedMarker is the stage position the planning system reports for completed orders.
	DefaultFinishedMarker = "99-Finalizado"
)

// PlanningAPI holds the Systextil connection settings.
type PlanningAPI struct {
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	FinishedMarker string
	TokenTimeout   time.Duration
	FeedTimeout    time.Duration
}

func GetPlanningAPI() PlanningAPI {
	cfg := PlanningAPI{
		BaseURL:        envOrDefault("SYSTEXTIL_API_BASE_URL", defaultPlanningBaseURL),
		TokenURL:       envOrDefault("SYSTEXTIL_TOKEN_URL", defaultPlanningTokenURL),
		ClientID:       strings.TrimSpace(os.Getenv("SYSTEXTIL_CLIENT_ID")),
		ClientSecret:   strings.TrimSpace(os.Getenv("SYSTEXTIL_CLIENT_SECRET")),
		FinishedMarker: envOrDefault("SYSTEXTIL_FINISHED_MARKER", DefaultFinishedMarker),
		TokenTimeout:   time.Duration(intFromEnv("SYSTEXTIL_TOKEN_TIMEOUT_SECONDS", 30)) * time.Second,
		FeedTimeout:    time.Duration(intFromEnv("SYSTEXTIL_FEED_TIMEOUT_SECONDS", 60)) * time.Second,
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
