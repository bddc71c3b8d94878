package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExternalOrder is a planning-system order already mapped to local field names.
type ExternalOrder struct {
	OrderNumber   int
	Product       string
	Description   string
	ProductGroup  string
	ProgrammedQty decimal.Decimal
	ReleasedQty   decimal.Decimal
	ProducedQty   decimal.Decimal
	Unit          string
	Stage         string
	StagePosition string
	MachineCode   string
	Note          string
	Payload       []byte
}

type MergeOutcome string

const (
	MergeCreated         MergeOutcome = "created"
	MergeUpdated         MergeOutcome = "updated"
	MergeSkippedFinished MergeOutcome = "skipped_finished"
)

// DeriveOrderStatus maps a reported stage position to the initial status of an imported order.
func DeriveOrderStatus(stagePosition string, finishedMarker string) string {
	position := strings.TrimSpace(stagePosition)
	switch {
	case position == "":
		return OrderStatusPending
	case position == strings.TrimSpace(finishedMarker):
		return OrderStatusFinished
	default:
		return OrderStatusInProgress
	}
}

// MergeExternalOrder upserts one external order inside the caller's transaction.
// Finished local orders are never modified.
func MergeExternalOrder(tx *gorm.DB, rec *ExternalOrder, finishedMarker string, now time.Time) (MergeOutcome, error) {
	var existing ProductionOrder
	err := lockForUpdate(tx).Where("order_number = ?", rec.OrderNumber).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	found := err == nil

	machineId, err := resolveMachineId(tx, rec.MachineCode)
	if err != nil {
		return "", err
	}

	if !found {
		return MergeCreated, insertExternalOrder(tx, rec, machineId, finishedMarker, now)
	}

	if existing.Status == OrderStatusFinished {
		return MergeSkippedFinished, nil
	}

	updates := map[string]interface{}{
		"produced_qty":   rec.ProducedQty,
		"stage":          rec.Stage,
		"stage_position": rec.StagePosition,
		"note":           rec.Note,
		"synced_at":      now,
	}
	if len(rec.Payload) > 0 {
		updates["external_payload"] = rec.Payload
	}
	if machineId != nil && (existing.MachineId == nil || *existing.MachineId != *machineId) {
		moved, err := rebindForSync(tx, &existing, *machineId)
		if err != nil {
			return "", err
		}
		if moved {
			updates["machine_id"] = *machineId
		}
	}
	if err := tx.Model(&existing).Updates(updates).Error; err != nil {
		return "", err
	}
	return MergeUpdated, nil
}

func insertExternalOrder(tx *gorm.DB, rec *ExternalOrder, machineId *int, finishedMarker string, now time.Time) error {
	status := DeriveOrderStatus(rec.StagePosition, finishedMarker)
	unit := strings.TrimSpace(rec.Unit)
	if unit == "" {
		unit = DefaultUnit
	}

	if machineId != nil && status == OrderStatusInProgress {
		busy, err := activeOrderCount(tx, *machineId, 0)
		if err != nil {
			return err
		}
		if busy > 0 {
			machineId = nil
		} else if err := tx.Model(&Machine{}).Where("id = ?", *machineId).Update("status", MachineStatusWorking).Error; err != nil {
			return err
		}
	}

	order := ProductionOrder{
		OrderNumber:     rec.OrderNumber,
		Product:         rec.Product,
		Description:     rec.Description,
		ProductGroup:    rec.ProductGroup,
		ProgrammedQty:   rec.ProgrammedQty,
		ReleasedQty:     rec.ReleasedQty,
		ProducedQty:     rec.ProducedQty,
		Unit:            unit,
		Stage:           rec.Stage,
		StagePosition:   rec.StagePosition,
		Status:          status,
		MachineId:       machineId,
		Note:            rec.Note,
		FromApi:         true,
		ExternalPayload: rec.Payload,
		SyncedAt:        &now,
	}
	return tx.Create(&order).Error
}

// rebindForSync moves the binding of a non-finished order to the machine reported by the planning
// system. An in-progress order only moves when the target machine is free, and the machines'
// statuses follow the binding.
func rebindForSync(tx *gorm.DB, order *ProductionOrder, machineId int) (bool, error) {
	if order.Status != OrderStatusInProgress {
		return true, nil
	}
	busy, err := activeOrderCount(tx, machineId, order.ID)
	if err != nil {
		return false, err
	}
	if busy > 0 {
		return false, nil
	}
	if err := tx.Model(&Machine{}).Where("id = ?", machineId).Update("status", MachineStatusWorking).Error; err != nil {
		return false, err
	}
	if order.MachineId != nil {
		left, err := activeOrderCount(tx, *order.MachineId, order.ID)
		if err != nil {
			return false, err
		}
		if left == 0 {
			if err := tx.Model(&Machine{}).
				Where("id = ? AND status = ?", *order.MachineId, MachineStatusWorking).
				Update("status", MachineStatusIdle).Error; err != nil {
				return false, err
			}
		}
	}
	return true, nil
}
