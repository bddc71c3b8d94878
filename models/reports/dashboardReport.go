package reports

import (
	"context"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/shopspring/decimal"
)

const dashboardRecentRows = 10

type DashboardResponse struct {
	TotalOrders      int64                    `json:"total_orders"`
	InProgressOrders int64                    `json:"in_progress_orders"`
	FinishedOrders   int64                    `json:"finished_orders"`
	WorkingMachines  int64                    `json:"working_machines"`
	ProducedToday    decimal.Decimal          `json:"produced_today"`
	RecentReadings   []*models.ReadingSummary `json:"recent_readings"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// GetDashboard summarises order and machine status plus today's output.
func GetDashboard(ctx context.Context) (*DashboardResponse, error) {
	return cachedReport(ctx, "dashboard", buildDashboard)
}

func buildDashboard(ctx context.Context, now time.Time) (*DashboardResponse, error) {
	db := config.GetDB().WithContext(ctx)
	resp := &DashboardResponse{GeneratedAt: now, ProducedToday: decimal.Zero}

	if err := db.Model(&models.ProductionOrder{}).Count(&resp.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ProductionOrder{}).
		Where("status = ?", models.OrderStatusInProgress).
		Count(&resp.InProgressOrders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ProductionOrder{}).
		Where("status = ?", models.OrderStatusFinished).
		Count(&resp.FinishedOrders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Machine{}).
		Where("status = ?", models.MachineStatusWorking).
		Count(&resp.WorkingMachines).Error; err != nil {
		return nil, err
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var produced decimal.NullDecimal
	if err := db.Model(&models.ProductionReading{}).
		Select("SUM(quantity)").
		Where("created_at >= ?", startOfDay).
		Row().Scan(&produced); err != nil {
		return nil, err
	}
	if produced.Valid {
		resp.ProducedToday = produced.Decimal
	}

	recent, err := models.ListRecentReadings(ctx, dashboardRecentRows)
	if err != nil {
		return nil, err
	}
	resp.RecentReadings = recent
	return resp, nil
}
