package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderEdit is an administrative override. Nil fields are left untouched.
type OrderEdit struct {
	Product       *string          `json:"product" binding:"omitempty,max=100"`
	Description   *string          `json:"description" binding:"omitempty,max=500"`
	ProductGroup  *string          `json:"product_group" binding:"omitempty,max=50"`
	ProgrammedQty *decimal.Decimal `json:"programmed_qty"`
	ReleasedQty   *decimal.Decimal `json:"released_qty"`
	ProducedQty   *decimal.Decimal `json:"produced_qty"`
	Unit          *string          `json:"unit" binding:"omitempty,max=10"`
	Stage         *string          `json:"stage" binding:"omitempty,max=100"`
	StagePosition *string          `json:"stage_position" binding:"omitempty,max=100"`
	Status        *string          `json:"status" binding:"omitempty,oneof=pending in_progress paused finished"`
	MachineId     *int             `json:"machine_id"`
	ClearMachine  bool             `json:"clear_machine"`
	Note          *string          `json:"note"`
}

func (input *OrderEdit) updates(ctx context.Context, order *ProductionOrder, now time.Time) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	setString := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	setString("product", input.Product)
	setString("description", input.Description)
	setString("product_group", input.ProductGroup)
	setString("unit", input.Unit)
	setString("stage", input.Stage)
	setString("stage_position", input.StagePosition)
	if input.Note != nil {
		updates["note"] = *input.Note
	}

	for column, qty := range map[string]*decimal.Decimal{
		"programmed_qty": input.ProgrammedQty,
		"released_qty":   input.ReleasedQty,
		"produced_qty":   input.ProducedQty,
	} {
		if qty == nil {
			continue
		}
		if qty.IsNegative() {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, column)
		}
		updates[column] = *qty
	}

	if input.Status != nil {
		status := *input.Status
		if !IsValidOrderStatus(status) {
			return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
		}
		updates["status"] = status
		if status == OrderStatusInProgress && order.StartedAt == nil {
			updates["started_at"] = now
		}
		if status == OrderStatusFinished && order.FinishedAt == nil {
			updates["finished_at"] = now
		}
	}

	switch {
	case input.ClearMachine:
		updates["machine_id"] = nil
	case input.MachineId != nil:
		if err := utils.ValidateResourceId[Machine](ctx, *input.MachineId); err != nil {
			return nil, err
		}
		updates["machine_id"] = *input.MachineId
	}
	return updates, nil
}

// ManualEditOrder applies an administrative correction without the lifecycle guards.
// Binding invariants are not re-validated here.
func ManualEditOrder(ctx context.Context, orderId int, input *OrderEdit) (*ProductionOrder, error) {
	var order *ProductionOrder
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = findOrderForUpdate(tx, orderId)
		if err != nil {
			return err
		}
		updates, err := input.updates(ctx, order, time.Now().UTC())
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(order, order.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
