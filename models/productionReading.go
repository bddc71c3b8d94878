package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/shopspring/decimal"
)

// ProductionReading is one recorded increment of quantity for an order.
type ProductionReading struct {
	ID        int             `gorm:"primary_key" json:"id"`
	UserId    int             `gorm:"index;not null" json:"user_id"`
	MachineId int             `gorm:"index;not null" json:"machine_id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(15,3);not null" json:"quantity"`
	Status    string          `gorm:"size:20;not null" json:"status"`
	Note      string          `gorm:"type:text" json:"note"`
	StartedAt time.Time       `gorm:"not null" json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

type NewProductionReading struct {
	OrderId   int             `json:"order_id"`
	MachineId int             `json:"machine_id" binding:"required"`
	UserId    int             `json:"-"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note"`
}

type ReadingSummary struct {
	ID          int             `json:"id"`
	OrderNumber int             `json:"order_number"`
	Product     string          `json:"product"`
	UserName    string          `json:"user_name"`
	MachineName string          `json:"machine_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

func ListReadingsByOrder(ctx context.Context, orderId int) ([]*ProductionReading, error) {
	var readings []*ProductionReading
	err := config.GetDB().WithContext(ctx).
		Where("order_id = ?", orderId).
		Order("created_at DESC").Order("id DESC").
		Find(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func ListRecentReadings(ctx context.Context, limit int) ([]*ReadingSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []*ReadingSummary
	err := config.GetDB().WithContext(ctx).
		Table("production_readings AS r").
		Select("r.id, o.order_number, o.product, u.name AS user_name, m.name AS machine_name, r.quantity, r.created_at").
		Joins("JOIN production_orders o ON o.id = r.order_id").
		Joins("JOIN users u ON u.id = r.user_id").
		Joins("JOIN machines m ON m.id = r.machine_id").
		Order("r.created_at DESC").Order("r.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
