package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"gorm.io/gorm"
)

type Stoppage struct {
	ID              int        `gorm:"primary_key" json:"id"`
	MachineId       int        `gorm:"index;not null" json:"machine_id"`
	UserId          int        `gorm:"index;not null" json:"user_id"`
	OrderId         *int       `gorm:"index" json:"order_id"`
	ReadingId       *int       `json:"reading_id"`
	ReasonId        *int       `gorm:"index" json:"reason_id"`
	CustomReason    string     `gorm:"size:200" json:"custom_reason"`
	Justification   string     `gorm:"type:text" json:"justification"`
	Category        string     `gorm:"size:50;not null" json:"category"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds *int       `json:"duration_seconds"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type NewStoppage struct {
	MachineId     int    `json:"machine_id"`
	UserId        int    `json:"-"`
	ReasonId      *int   `json:"reason_id"`
	ReadingId     *int   `json:"reading_id"`
	CustomReason  string `json:"custom_reason" binding:"max=200"`
	Justification string `json:"justification"`
	Category      string `json:"category" binding:"max=50"`
}

func ListOpenStoppages(ctx context.Context, machineId int) ([]*Stoppage, error) {
	var stoppages []*Stoppage
	err := config.GetDB().WithContext(ctx).
		Where("machine_id = ? AND ended_at IS NULL", machineId).
		Order("started_at").
		Find(&stoppages).Error
	if err != nil {
		return nil, err
	}
	return stoppages, nil
}

// closeOpenStoppages ends every open stoppage of the machine at now.
func closeOpenStoppages(tx *gorm.DB, machineId int, now time.Time) error {
	var open []*Stoppage
	if err := lockForUpdate(tx).Where("machine_id = ? AND ended_at IS NULL", machineId).Find(&open).Error; err != nil {
		return err
	}
	for _, s := range open {
		duration := int(now.Sub(s.StartedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
		if err := tx.Model(s).Updates(map[string]interface{}{
			"ended_at":         now,
			"duration_seconds": duration,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}
