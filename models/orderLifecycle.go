package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Every floor action runs in one transaction. Rows are locked machine first, then order.

type ReadingResult struct {
	Reading  *ProductionReading `json:"reading"`
	Order    *ProductionOrder   `json:"order"`
	Machine  *Machine           `json:"machine"`
	Finished bool               `json:"finished"`
}

type StopResult struct {
	Stoppage    *Stoppage        `json:"stoppage"`
	Machine     *Machine         `json:"machine"`
	PausedOrder *ProductionOrder `json:"paused_order"`
}

// BindOrder starts production of a pending or paused order on a machine.
func BindOrder(ctx context.Context, orderId int, machineId int) (*ProductionOrder, error) {
	var order *ProductionOrder
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachineForUpdate(tx, machineId)
		if err != nil {
			return err
		}
		order, err = findOrderForUpdate(tx, orderId)
		if err != nil {
			return err
		}

		busy, err := activeOrderCount(tx, machine.ID, order.ID)
		if err != nil {
			return err
		}
		if busy > 0 {
			return fmt.Errorf("%w: machine %s already has an order in progress", ErrMachineBusy, machine.Name)
		}
		// an in-progress order scanned again on its own machine restarts that machine after a stop
		reactivate := order.Status == OrderStatusInProgress && order.MachineId != nil && *order.MachineId == machine.ID
		if order.Status != OrderStatusPending && order.Status != OrderStatusPaused && !reactivate {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidState, order.OrderNumber, order.Status)
		}

		now := time.Now().UTC()
		order.Status = OrderStatusInProgress
		order.MachineId = &machine.ID
		if order.StartedAt == nil {
			order.StartedAt = &now
		}
		if err := tx.Model(order).Select("status", "machine_id", "started_at").Updates(order).Error; err != nil {
			return err
		}
		if err := tx.Model(machine).Update("status", MachineStatusWorking).Error; err != nil {
			return err
		}
		return closeOpenStoppages(tx, machine.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RecordProduction books a reading against an in-progress order and finishes the order once the
// released quantity is reached.
func RecordProduction(ctx context.Context, input *NewProductionReading) (*ReadingResult, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	var result *ReadingResult
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachineForUpdate(tx, input.MachineId)
		if err != nil {
			return err
		}
		order, err := findOrderForUpdate(tx, input.OrderId)
		if err != nil {
			return err
		}
		if err := requireActiveUser(tx, input.UserId); err != nil {
			return err
		}

		if order.Status != OrderStatusInProgress {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidState, order.OrderNumber, order.Status)
		}
		if order.MachineId != nil && *order.MachineId != machine.ID {
			return fmt.Errorf("%w: order %d is bound to another machine", ErrInvalidState, order.OrderNumber)
		}
		if order.MachineId == nil {
			// in progress without a machine (admin start or sync import); the reading adopts it
			busy, err := activeOrderCount(tx, machine.ID, order.ID)
			if err != nil {
				return err
			}
			if busy > 0 {
				return fmt.Errorf("%w: machine %s already has an order in progress", ErrMachineBusy, machine.Name)
			}
			order.MachineId = &machine.ID
		}

		produced := order.ProducedQty.Add(input.Quantity)
		if order.ProducedQty.LessThan(order.ReleasedQty) && produced.GreaterThan(order.ReleasedQty) {
			return fmt.Errorf("%w: order %d has %s %s left", ErrQuantityExceeded, order.OrderNumber,
				order.ReleasedQty.Sub(order.ProducedQty).String(), order.Unit)
		}

		now := time.Now().UTC()
		// producing on a stopped or idle machine ends its downtime
		if machine.Status != MachineStatusWorking {
			machine.Status = MachineStatusWorking
			if err := closeOpenStoppages(tx, machine.ID, now); err != nil {
				return err
			}
		}

		reading := ProductionReading{
			UserId:    input.UserId,
			MachineId: machine.ID,
			OrderId:   order.ID,
			Quantity:  input.Quantity,
			Status:    ReadingStatusFinished,
			Note:      strings.TrimSpace(input.Note),
			StartedAt: now,
			EndedAt:   &now,
		}
		if err := tx.Create(&reading).Error; err != nil {
			return err
		}

		order.ProducedQty = produced
		finished := produced.GreaterThanOrEqual(order.ReleasedQty)
		if finished {
			order.Status = OrderStatusFinished
			order.FinishedAt = &now
			machine.Status = MachineStatusIdle
		}
		if err := tx.Model(order).Select("produced_qty", "status", "finished_at", "machine_id").Updates(order).Error; err != nil {
			return err
		}
		if err := tx.Model(machine).Update("status", machine.Status).Error; err != nil {
			return err
		}

		result = &ReadingResult{Reading: &reading, Order: order, Machine: machine, Finished: finished}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StopMachine halts a machine, pausing its in-progress order and opening a stoppage.
func StopMachine(ctx context.Context, input *NewStoppage) (*StopResult, error) {
	var result *StopResult
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachineForUpdate(tx, input.MachineId)
		if err != nil {
			return err
		}
		if err := requireActiveUser(tx, input.UserId); err != nil {
			return err
		}

		category := strings.TrimSpace(input.Category)
		if input.ReasonId != nil {
			var reason StopReason
			if err := tx.First(&reason, *input.ReasonId).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return utils.ErrorRecordNotFound
				}
				return err
			}
			if reason.RequiresJustification && strings.TrimSpace(input.Justification) == "" {
				return fmt.Errorf("%w: %s", ErrJustificationRequired, reason.Code)
			}
			if category == "" {
				category = reason.Category
			}
		}
		if category == "" {
			category = StopCategoryUnplanned
		}

		var paused *ProductionOrder
		var active ProductionOrder
		err = lockForUpdate(tx).
			Where("machine_id = ? AND status = ?", machine.ID, OrderStatusInProgress).
			First(&active).Error
		switch {
		case err == nil:
			if err := tx.Model(&active).Update("status", OrderStatusPaused).Error; err != nil {
				return err
			}
			active.Status = OrderStatusPaused
			paused = &active
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Model(machine).Update("status", MachineStatusStopped).Error; err != nil {
			return err
		}
		machine.Status = MachineStatusStopped

		stoppage := Stoppage{
			MachineId:     machine.ID,
			UserId:        input.UserId,
			ReadingId:     input.ReadingId,
			ReasonId:      input.ReasonId,
			CustomReason:  strings.TrimSpace(input.CustomReason),
			Justification: strings.TrimSpace(input.Justification),
			Category:      category,
			StartedAt:     time.Now().UTC(),
		}
		if paused != nil {
			stoppage.OrderId = &paused.ID
		}
		if err := tx.Create(&stoppage).Error; err != nil {
			return err
		}

		result = &StopResult{Stoppage: &stoppage, Machine: machine, PausedOrder: paused}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResumeOrder moves a paused order back to in_progress. The machine status is left as is;
// the machine runs again on the next bind of this order or the next reading against it.
func ResumeOrder(ctx context.Context, orderId int) (*ProductionOrder, error) {
	current, err := GetProductionOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}

	var order *ProductionOrder
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if current.MachineId != nil {
			if _, err := findMachineForUpdate(tx, *current.MachineId); err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
				return err
			}
		}
		order, err = findOrderForUpdate(tx, orderId)
		if err != nil {
			return err
		}
		if order.Status != OrderStatusPaused {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidState, order.OrderNumber, order.Status)
		}
		if order.MachineId != nil {
			busy, err := activeOrderCount(tx, *order.MachineId, order.ID)
			if err != nil {
				return err
			}
			if busy > 0 {
				return fmt.Errorf("%w: machine %d already has an order in progress", ErrMachineBusy, *order.MachineId)
			}
		}
		order.Status = OrderStatusInProgress
		return tx.Model(order).Update("status", OrderStatusInProgress).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// StartOrder is the administrative start of a pending or paused order. A bound machine must not be
// running another order; an unbound order is adopted by the first machine that reports on it.
func StartOrder(ctx context.Context, orderId int) (*ProductionOrder, error) {
	var order *ProductionOrder
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = findOrderForUpdate(tx, orderId)
		if err != nil {
			return err
		}
		if order.Status != OrderStatusPending && order.Status != OrderStatusPaused {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidState, order.OrderNumber, order.Status)
		}
		if order.MachineId != nil {
			busy, err := activeOrderCount(tx, *order.MachineId, order.ID)
			if err != nil {
				return err
			}
			if busy > 0 {
				return fmt.Errorf("%w: machine %d already has an order in progress", ErrMachineBusy, *order.MachineId)
			}
		}
		order.Status = OrderStatusInProgress
		if order.StartedAt == nil {
			now := time.Now().UTC()
			order.StartedAt = &now
		}
		return tx.Model(order).Select("status", "started_at").Updates(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// PauseOrder is the administrative pause; the machine keeps its status.
func PauseOrder(ctx context.Context, orderId int) (*ProductionOrder, error) {
	var order *ProductionOrder
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = findOrderForUpdate(tx, orderId)
		if err != nil {
			return err
		}
		if order.Status != OrderStatusInProgress {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidState, order.OrderNumber, order.Status)
		}
		order.Status = OrderStatusPaused
		return tx.Model(order).Update("status", OrderStatusPaused).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func requireActiveUser(tx *gorm.DB, userId int) error {
	var user User
	if err := tx.Select("id", "is_active").First(&user, userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorRecordNotFound
		}
		return err
	}
	if !utils.IsTrue(user.IsActive) {
		return ErrInactiveUser
	}
	return nil
}
