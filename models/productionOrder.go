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
	"gorm.io/gorm/clause"
)

type ProductionOrder struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrderNumber     int             `gorm:"not null;uniqueIndex" json:"order_number"`
	Product         string          `gorm:"size:100;not null" json:"product"`
	Description     string          `gorm:"size:500" json:"description"`
	ProductGroup    string          `gorm:"size:50" json:"product_group"`
	ProgrammedQty   decimal.Decimal `gorm:"type:decimal(15,3);not null;default:0" json:"programmed_qty"`
	ReleasedQty     decimal.Decimal `gorm:"type:decimal(15,3);not null;default:0" json:"released_qty"`
	ProducedQty     decimal.Decimal `gorm:"type:decimal(15,3);not null;default:0" json:"produced_qty"`
	Unit            string          `gorm:"size:10;not null;default:M" json:"unit"`
	Stage           string          `gorm:"size:100" json:"stage"`
	StagePosition   string          `gorm:"size:100" json:"stage_position"`
	Status          string          `gorm:"size:20;not null;default:pending;index" json:"status"`
	MachineId       *int            `gorm:"index" json:"machine_id"`
	Note            string          `gorm:"type:text" json:"note"`
	FromApi         bool            `gorm:"not null;default:false" json:"from_api"`
	ExternalPayload []byte          `gorm:"type:json" json:"-"`
	ImportedAt      time.Time       `gorm:"autoCreateTime" json:"imported_at"`
	StartedAt       *time.Time      `json:"started_at"`
	FinishedAt      *time.Time      `json:"finished_at"`
	SyncedAt        *time.Time      `json:"synced_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductionOrder struct {
	OrderNumber   int             `json:"order_number" binding:"required,gt=0"`
	Product       string          `json:"product" binding:"required,max=100"`
	Description   string          `json:"description" binding:"max=500"`
	ProductGroup  string          `json:"product_group" binding:"max=50"`
	ProgrammedQty decimal.Decimal `json:"programmed_qty"`
	ReleasedQty   decimal.Decimal `json:"released_qty"`
	Unit          string          `json:"unit" binding:"max=10"`
	Stage         string          `json:"stage" binding:"max=100"`
	StagePosition string          `json:"stage_position" binding:"max=100"`
	Note          string          `json:"note"`
}

type OrderDetails struct {
	*ProductionOrder
	MachineName *string `json:"machine_name"`
}

func (input *NewProductionOrder) validate(ctx context.Context) error {
	if input.ProgrammedQty.IsNegative() || input.ReleasedQty.IsNegative() {
		return fmt.Errorf("%w: quantities must not be negative", ErrInvalidInput)
	}
	return utils.ValidateUnique[ProductionOrder](ctx, "order_number", input.OrderNumber, nil)
}

// CreateProductionOrder registers an order typed in by an administrator.
func CreateProductionOrder(ctx context.Context, input *NewProductionOrder) (*ProductionOrder, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = DefaultUnit
	}

	order := ProductionOrder{
		OrderNumber:   input.OrderNumber,
		Product:       strings.TrimSpace(input.Product),
		Description:   input.Description,
		ProductGroup:  input.ProductGroup,
		ProgrammedQty: input.ProgrammedQty,
		ReleasedQty:   input.ReleasedQty,
		ProducedQty:   decimal.Zero,
		Unit:          unit,
		Stage:         input.Stage,
		StagePosition: input.StagePosition,
		Status:        OrderStatusPending,
		Note:          input.Note,
		FromApi:       false,
	}
	if err := config.GetDB().WithContext(ctx).Create(&order).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w order_number", utils.ErrDuplicate)
		}
		return nil, err
	}
	return &order, nil
}

func GetProductionOrder(ctx context.Context, id int) (*ProductionOrder, error) {
	return utils.FetchModel[ProductionOrder](ctx, id)
}

func GetProductionOrderByNumber(ctx context.Context, orderNumber int) (*ProductionOrder, error) {
	var order ProductionOrder
	err := config.GetDB().WithContext(ctx).Where("order_number = ?", orderNumber).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

func GetProductionOrderDetails(ctx context.Context, id int) (*OrderDetails, error) {
	order, err := GetProductionOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	details := &OrderDetails{ProductionOrder: order}
	if order.MachineId != nil {
		machine, err := GetMachine(ctx, *order.MachineId)
		if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, err
		}
		if machine != nil {
			details.MachineName = &machine.Name
		}
	}
	return details, nil
}

// ListProductionOrders returns orders newest first, optionally restricted to one status.
func ListProductionOrders(ctx context.Context, status string) ([]*ProductionOrder, error) {
	dbCtx := config.GetDB().WithContext(ctx)
	if status != "" {
		if !IsValidOrderStatus(status) {
			return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
		}
		dbCtx = dbCtx.Where("status = ?", status)
	}
	var orders []*ProductionOrder
	if err := dbCtx.Order("imported_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListSelectableOrders lists the orders an operator may bind to a machine.
func ListSelectableOrders(ctx context.Context) ([]*ProductionOrder, error) {
	var orders []*ProductionOrder
	err := config.GetDB().WithContext(ctx).
		Where("status IN ?", []string{OrderStatusPending, OrderStatusPaused}).
		Where("produced_qty < released_qty").
		Order("order_number").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteProductionOrder removes an order that has no production readings.
func DeleteProductionOrder(ctx context.Context, id int) error {
	return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrderForUpdate(tx, id)
		if err != nil {
			return err
		}
		var readings int64
		if err := tx.Model(&ProductionReading{}).Where("order_id = ?", order.ID).Count(&readings).Error; err != nil {
			return err
		}
		if readings > 0 {
			return fmt.Errorf("%w: order %d has %d production readings", ErrHasDependents, order.OrderNumber, readings)
		}
		return tx.Delete(order).Error
	})
}

func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func findOrderForUpdate(tx *gorm.DB, id int) (*ProductionOrder, error) {
	var order ProductionOrder
	if err := lockForUpdate(tx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

func findMachineForUpdate(tx *gorm.DB, id int) (*Machine, error) {
	var machine Machine
	if err := lockForUpdate(tx).First(&machine, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &machine, nil
}

// activeOrderCount counts in_progress orders bound to machineId, ignoring exceptOrderId.
func activeOrderCount(tx *gorm.DB, machineId int, exceptOrderId int) (int64, error) {
	var count int64
	err := tx.Model(&ProductionOrder{}).
		Where("machine_id = ? AND status = ? AND id <> ?", machineId, OrderStatusInProgress, exceptOrderId).
		Count(&count).Error
	return count, err
}
