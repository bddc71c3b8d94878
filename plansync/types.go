package plansync

import (
	"encoding/json"
	"time"
)

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

type feedResponse struct {
	Items []json.RawMessage `json:"items"`
}

// SyncResult is what a caller sees of one reconciliation run.
type SyncResult struct {
	RunId           string        `json:"run_id"`
	Success         bool          `json:"success"`
	Message         string        `json:"message"`
	Processed       int           `json:"processed"`
	Created         int           `json:"created"`
	Updated         int           `json:"updated"`
	SkippedFinished int           `json:"skipped_finished"`
	Errors          int           `json:"errors"`
	Duration        time.Duration `json:"-"`
	DurationMs      int64         `json:"duration_ms"`
	RecordErrors    []string      `json:"record_errors,omitempty"`
}

type runDetail struct {
	Trigger         string     `json:"trigger"`
	Since           *time.Time `json:"since,omitempty"`
	SkippedFinished int        `json:"skipped_finished"`
	RecordErrors    []string   `json:"record_errors,omitempty"`
	ArchiveObject   string     `json:"archive_object,omitempty"`
}

type TestConnectionResponse struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message"`
	TokenExpiry *time.Time `json:"token_expiry"`
}

type SyncLogResponse struct {
	ID         int       `json:"id"`
	RunId      string    `json:"run_id"`
	SyncType   string    `json:"sync_type"`
	ExecutedAt time.Time `json:"executed_at"`
	Processed  int       `json:"processed"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Errors     int       `json:"errors"`
	DurationMs int64     `json:"duration_ms"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	Trigger       string `json:"trigger"`
	CorrelationId string `json:"correlation_id"`
}
