package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	QrCode    string    `gorm:"size:100;not null;uniqueIndex" json:"qr_code"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	Sector    string    `gorm:"size:50" json:"sector"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	QrCode string `json:"qr_code" binding:"required,max=100"`
	Name   string `json:"name" binding:"required,max=100"`
	Role   string `json:"role" binding:"required,oneof=operator supervisor admin"`
	Sector string `json:"sector" binding:"max=50"`
}

func (input *NewUser) validate(ctx context.Context) error {
	input.QrCode = strings.TrimSpace(input.QrCode)
	if input.QrCode == "" {
		return fmt.Errorf("%w: qr_code is required", ErrInvalidInput)
	}
	return validateScanTokenFree(ctx, input.QrCode)
}

// scan tokens must resolve to exactly one user or machine
func validateScanTokenFree(ctx context.Context, qrCode string) error {
	if err := utils.ValidateUnique[User](ctx, "qr_code", qrCode, nil); err != nil {
		return err
	}
	return utils.ValidateUnique[Machine](ctx, "qr_code", qrCode, nil)
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	user := User{
		QrCode:   input.QrCode,
		Name:     strings.TrimSpace(input.Name),
		Role:     input.Role,
		Sector:   input.Sector,
		IsActive: utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&user).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w qr_code", utils.ErrDuplicate)
		}
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}

func ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := config.GetDB().WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Users are never deleted; deactivation keeps their readings attributable.
func ToggleActiveUser(ctx context.Context, id int, isActive bool) (*User, error) {
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(user).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	user.IsActive = &isActive
	return user, nil
}
