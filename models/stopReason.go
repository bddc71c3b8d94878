package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
)

type StopReason struct {
	ID                    int       `gorm:"primary_key" json:"id"`
	Code                  string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Description           string    `gorm:"size:200;not null" json:"description"`
	Category              string    `gorm:"size:50;not null" json:"category"`
	Color                 string    `gorm:"size:20" json:"color"`
	RequiresJustification bool      `gorm:"not null;default:false" json:"requires_justification"`
	DisplayOrder          int       `gorm:"not null;default:0" json:"display_order"`
	IsActive              *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStopReason struct {
	Code                  string `json:"code" binding:"required,max=20"`
	Description           string `json:"description" binding:"required,max=200"`
	Category              string `json:"category" binding:"required,max=50"`
	Color                 string `json:"color" binding:"max=20"`
	RequiresJustification bool   `json:"requires_justification"`
	DisplayOrder          int    `json:"display_order" binding:"gte=0"`
}

func (input *NewStopReason) validate(ctx context.Context) error {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	if input.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	return utils.ValidateUnique[StopReason](ctx, "code", input.Code, nil)
}

func CreateStopReason(ctx context.Context, input *NewStopReason) (*StopReason, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	reason := StopReason{
		Code:                  input.Code,
		Description:           input.Description,
		Category:              input.Category,
		Color:                 input.Color,
		RequiresJustification: input.RequiresJustification,
		DisplayOrder:          input.DisplayOrder,
		IsActive:              utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&reason).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w code", utils.ErrDuplicate)
		}
		return nil, err
	}
	return &reason, nil
}

func ListActiveStopReasons(ctx context.Context) ([]*StopReason, error) {
	var reasons []*StopReason
	err := config.GetDB().WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order").Order("id").
		Find(&reasons).Error
	if err != nil {
		return nil, err
	}
	return reasons, nil
}

func ToggleActiveStopReason(ctx context.Context, id int, isActive bool) (*StopReason, error) {
	reason, err := utils.FetchModel[StopReason](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(reason).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	reason.IsActive = &isActive
	return reason, nil
}
