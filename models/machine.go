package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
	"gorm.io/gorm"
)

type Machine struct {
	ID          int       `gorm:"primary_key" json:"id"`
	QrCode      string    `gorm:"size:100;not null;uniqueIndex" json:"qr_code"`
	Code        string    `gorm:"size:50;index" json:"code"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Sector      string    `gorm:"size:50" json:"sector"`
	MachineType string    `gorm:"size:50" json:"machine_type"`
	Status      string    `gorm:"size:20;not null;default:idle" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMachine struct {
	QrCode      string `json:"qr_code" binding:"required,max=100"`
	Code        string `json:"code" binding:"max=50"`
	Name        string `json:"name" binding:"required,max=100"`
	Sector      string `json:"sector" binding:"max=50"`
	MachineType string `json:"machine_type" binding:"max=50"`
}

func (input *NewMachine) validate(ctx context.Context) error {
	input.QrCode = strings.TrimSpace(input.QrCode)
	input.Code = strings.TrimSpace(input.Code)
	if input.QrCode == "" {
		return fmt.Errorf("%w: qr_code is required", ErrInvalidInput)
	}
	if err := validateScanTokenFree(ctx, input.QrCode); err != nil {
		return err
	}
	if input.Code != "" {
		if err := utils.ValidateUnique[Machine](ctx, "code", input.Code, nil); err != nil {
			return err
		}
	}
	return nil
}

func CreateMachine(ctx context.Context, input *NewMachine) (*Machine, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	machine := Machine{
		QrCode:      input.QrCode,
		Code:        input.Code,
		Name:        strings.TrimSpace(input.Name),
		Sector:      input.Sector,
		MachineType: input.MachineType,
		Status:      MachineStatusIdle,
	}
	if err := config.GetDB().WithContext(ctx).Create(&machine).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w qr_code", utils.ErrDuplicate)
		}
		return nil, err
	}
	return &machine, nil
}

func GetMachine(ctx context.Context, id int) (*Machine, error) {
	return utils.FetchModel[Machine](ctx, id)
}

func ListMachines(ctx context.Context) ([]*Machine, error) {
	var machines []*Machine
	if err := config.GetDB().WithContext(ctx).Order("name").Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

// resolveMachineId maps a planning-system machine code to a local id. Unknown codes resolve to nil.
func resolveMachineId(tx *gorm.DB, code string) (*int, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var machine Machine
	err := tx.Select("id").Where("code = ?", code).First(&machine).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &machine.ID, nil
}
