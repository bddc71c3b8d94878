package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const productionSheet = "Orders"

var productionHeadings = []string{
	"Order", "Product", "Description", "Group", "Status", "Machine",
	"Programmed", "Released", "Produced", "Unit", "Stage", "Started", "Finished",
}

type productionExportRow struct {
	OrderNumber   int
	Product       string
	Description   string
	ProductGroup  string
	Status        string
	MachineName   *string
	ProgrammedQty decimal.Decimal
	ReleasedQty   decimal.Decimal
	ProducedQty   decimal.Decimal
	Unit          string
	Stage         string
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

func (r *productionExportRow) cellValues() []interface{} {
	machine := ""
	if r.MachineName != nil {
		machine = *r.MachineName
	}
	return []interface{}{
		r.OrderNumber, r.Product, r.Description, r.ProductGroup, r.Status, machine,
		r.ProgrammedQty.InexactFloat64(), r.ReleasedQty.InexactFloat64(), r.ProducedQty.InexactFloat64(),
		r.Unit, r.Stage, formatExportTime(r.StartedAt), formatExportTime(r.FinishedAt),
	}
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func getProductionExportRows(ctx context.Context, status string) ([]*productionExportRow, error) {
	db := config.GetDB().WithContext(ctx).
		Table("production_orders AS o").
		Select("o.order_number, o.product, o.description, o.product_group, o.status, m.name AS machine_name, " +
			"o.programmed_qty, o.released_qty, o.produced_qty, o.unit, o.stage, o.started_at, o.finished_at").
		Joins("LEFT JOIN machines m ON m.id = o.machine_id")
	if status != "" {
		db = db.Where("o.status = ?", status)
	}

	var rows []*productionExportRow
	if err := db.Order("o.order_number DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExportProductionOrders writes an xlsx workbook of orders, optionally filtered by status.
func ExportProductionOrders(ctx context.Context, w io.Writer, status string) error {
	if status != "" && !models.IsValidOrderStatus(status) {
		return fmt.Errorf("%w: unknown order status %q", models.ErrInvalidInput, status)
	}
	started := time.Now()
	rows, err := getProductionExportRows(ctx, status)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", productionSheet); err != nil {
		return err
	}

	for i, h := range productionHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(productionSheet, cell, h); err != nil {
			return err
		}
	}
	for rowNo, r := range rows {
		for col, value := range r.cellValues() {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNo+2)
			if err := f.SetCellValue(productionSheet, cell, value); err != nil {
				return err
			}
		}
	}

	logSlowReport(ctx, "production_export", started, logrus.Fields{"rows": len(rows)})
	return f.Write(w)
}
