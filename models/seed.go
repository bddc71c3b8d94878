package models

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed/catalog.yaml
var seedCatalogYaml []byte

type seedCatalog struct {
	Users []struct {
		QrCode string `yaml:"qr_code"`
		Name   string `yaml:"name"`
		Role   string `yaml:"role"`
		Sector string `yaml:"sector"`
	} `yaml:"users"`
	Machines []struct {
		QrCode      string `yaml:"qr_code"`
		Code        string `yaml:"code"`
		Name        string `yaml:"name"`
		Sector      string `yaml:"sector"`
		MachineType string `yaml:"machine_type"`
	} `yaml:"machines"`
	Orders []struct {
		OrderNumber   int    `yaml:"order_number"`
		Product       string `yaml:"product"`
		Description   string `yaml:"description"`
		ProductGroup  string `yaml:"product_group"`
		ProgrammedQty string `yaml:"programmed_qty"`
		ReleasedQty   string `yaml:"released_qty"`
		ProducedQty   string `yaml:"produced_qty"`
		Stage         string `yaml:"stage"`
		StagePosition string `yaml:"stage_position"`
		Status        string `yaml:"status"`
	} `yaml:"orders"`
	StopReasons []struct {
		Code                  string `yaml:"code"`
		Description           string `yaml:"description"`
		Category              string `yaml:"category"`
		Color                 string `yaml:"color"`
		RequiresJustification bool   `yaml:"requires_justification"`
	} `yaml:"stop_reasons"`
}

func loadSeedCatalog() (*seedCatalog, error) {
	var catalog seedCatalog
	if err := yaml.Unmarshal(seedCatalogYaml, &catalog); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	return &catalog, nil
}

// SeedDefaultData loads the demo catalog when the users table is empty.
// It reports whether anything was written.
func SeedDefaultData(ctx context.Context) (bool, error) {
	db := config.GetDB().WithContext(ctx)

	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	catalog, err := loadSeedCatalog()
	if err != nil {
		return false, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, u := range catalog.Users {
			user := User{QrCode: u.QrCode, Name: u.Name, Role: u.Role, Sector: u.Sector, IsActive: utils.NewTrue()}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", u.QrCode, err)
			}
		}
		for _, m := range catalog.Machines {
			machine := Machine{
				QrCode:      m.QrCode,
				Code:        m.Code,
				Name:        m.Name,
				Sector:      m.Sector,
				MachineType: m.MachineType,
				Status:      MachineStatusIdle,
			}
			if err := tx.Create(&machine).Error; err != nil {
				return fmt.Errorf("seed machine %s: %w", m.QrCode, err)
			}
		}
		now := time.Now().UTC()
		for _, o := range catalog.Orders {
			order := ProductionOrder{
				OrderNumber:   o.OrderNumber,
				Product:       o.Product,
				Description:   o.Description,
				ProductGroup:  o.ProductGroup,
				ProgrammedQty: decimal.RequireFromString(o.ProgrammedQty),
				ReleasedQty:   decimal.RequireFromString(o.ReleasedQty),
				ProducedQty:   decimal.RequireFromString(o.ProducedQty),
				Unit:          DefaultUnit,
				Stage:         o.Stage,
				StagePosition: o.StagePosition,
				Status:        o.Status,
			}
			switch o.Status {
			case OrderStatusInProgress:
				order.StartedAt = &now
			case OrderStatusFinished:
				order.StartedAt = &now
				order.FinishedAt = &now
			}
			if err := tx.Create(&order).Error; err != nil {
				return fmt.Errorf("seed order %d: %w", o.OrderNumber, err)
			}
		}
		for i, r := range catalog.StopReasons {
			reason := StopReason{
				Code:                  r.Code,
				Description:           r.Description,
				Category:              r.Category,
				Color:                 r.Color,
				RequiresJustification: r.RequiresJustification,
				DisplayOrder:          i + 1,
				IsActive:              utils.NewTrue(),
			}
			if err := tx.Create(&reason).Error; err != nil {
				return fmt.Errorf("seed stop reason %s: %w", r.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
