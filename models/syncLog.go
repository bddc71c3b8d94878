package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"gorm.io/gorm"
)

// SyncLogEntry is the append-only audit row written once per sync run.
type SyncLogEntry struct {
	ID         int       `gorm:"primary_key" json:"id"`
	RunId      string    `gorm:"size:36;index" json:"run_id"`
	SyncType   string    `gorm:"size:20;not null;index:idx_sync_type_outcome" json:"sync_type"`
	Outcome    string    `gorm:"size:20;not null;index:idx_sync_type_outcome" json:"outcome"`
	ExecutedAt time.Time `gorm:"not null;index" json:"executed_at"`
	Processed  int       `gorm:"not null;default:0" json:"processed"`
	Created    int       `gorm:"not null;default:0" json:"created"`
	Updated    int       `gorm:"not null;default:0" json:"updated"`
	Errors     int       `gorm:"not null;default:0" json:"errors"`
	DurationMs int64     `gorm:"not null;default:0" json:"duration_ms"`
	Message    string    `gorm:"type:text" json:"message"`
	Detail     []byte    `gorm:"type:json" json:"-"`
}

const DefaultSyncLogLimit = 50

func CreateSyncLogEntry(ctx context.Context, entry *SyncLogEntry) error {
	return config.GetDB().WithContext(ctx).Create(entry).Error
}

// LastSuccessfulSync returns the execution time of the latest successful run of syncType, or nil.
func LastSuccessfulSync(ctx context.Context, syncType string) (*time.Time, error) {
	var entry SyncLogEntry
	err := config.GetDB().WithContext(ctx).
		Where("sync_type = ? AND outcome = ?", syncType, SyncOutcomeSuccess).
		Order("executed_at DESC").Order("id DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry.ExecutedAt, nil
}

func ListSyncLogs(ctx context.Context, limit int) ([]*SyncLogEntry, error) {
	if limit <= 0 || limit > DefaultSyncLogLimit {
		limit = DefaultSyncLogLimit
	}
	var entries []*SyncLogEntry
	err := config.GetDB().WithContext(ctx).
		Order("executed_at DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
