package models

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/production_backend/config"
	"gorm.io/gorm"
)

const (
	ScanKindUser    = "user"
	ScanKindMachine = "machine"
)

type ScanResult struct {
	Kind        string           `json:"kind"`
	User        *User            `json:"user,omitempty"`
	Machine     *Machine         `json:"machine,omitempty"`
	ActiveOrder *ProductionOrder `json:"active_order,omitempty"`
}

// ResolveScanToken matches a scanned string against active users, then machines.
func ResolveScanToken(ctx context.Context, token string) (*ScanResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnrecognizedToken
	}
	db := config.GetDB().WithContext(ctx)

	var user User
	err := db.Where("qr_code = ? AND is_active = ?", token, true).First(&user).Error
	if err == nil {
		return &ScanResult{Kind: ScanKindUser, User: &user}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var machine Machine
	err = db.Where("qr_code = ?", token).First(&machine).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnrecognizedToken
		}
		return nil, err
	}

	result := &ScanResult{Kind: ScanKindMachine, Machine: &machine}
	var active ProductionOrder
	err = db.Where("machine_id = ? AND status = ?", machine.ID, OrderStatusInProgress).First(&active).Error
	switch {
	case err == nil:
		result.ActiveOrder = &active
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return result, nil
}
