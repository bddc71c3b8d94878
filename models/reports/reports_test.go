package reports_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/models/reports"
	"github.com/mmdatafocus/production_backend/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seedFloor(t *testing.T) {
	t.Helper()
	testutil.SetupTestDB(t)
	ctx := context.Background()

	user, err := models.CreateUser(ctx, &models.NewUser{QrCode: "OPERADOR001", Name: "Operator", Role: models.UserRoleOperator})
	require.NoError(t, err)
	machine, err := models.CreateMachine(ctx, &models.NewMachine{QrCode: "JIGGER01", Name: "Jigger 1"})
	require.NoError(t, err)

	running, err := models.CreateProductionOrder(ctx, &models.NewProductionOrder{
		OrderNumber: 193, Product: "P-193", ReleasedQty: decimal.NewFromInt(3200),
	})
	require.NoError(t, err)
	_, err = models.CreateProductionOrder(ctx, &models.NewProductionOrder{
		OrderNumber: 222, Product: "P-222", ReleasedQty: decimal.NewFromInt(1500),
	})
	require.NoError(t, err)

	_, err = models.BindOrder(ctx, running.ID, machine.ID)
	require.NoError(t, err)
	_, err = models.RecordProduction(ctx, &models.NewProductionReading{
		OrderId: running.ID, MachineId: machine.ID, UserId: user.ID, Quantity: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
}

func TestGetDashboard(t *testing.T) {
	seedFloor(t)

	dash, err := reports.GetDashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, dash.TotalOrders)
	assert.EqualValues(t, 1, dash.InProgressOrders)
	assert.EqualValues(t, 0, dash.FinishedOrders)
	assert.EqualValues(t, 1, dash.WorkingMachines)
	assert.True(t, decimal.NewFromInt(1000).Equal(dash.ProducedToday), "got %s", dash.ProducedToday)
	require.Len(t, dash.RecentReadings, 1)
	assert.Equal(t, 193, dash.RecentReadings[0].OrderNumber)
}

func TestExportProductionOrders(t *testing.T) {
	seedFloor(t)

	var buf bytes.Buffer
	require.NoError(t, reports.ExportProductionOrders(context.Background(), &buf, ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Order", rows[0][0])
	assert.Equal(t, "222", rows[1][0])
	assert.Equal(t, "193", rows[2][0])
	assert.Equal(t, "Jigger 1", rows[2][5])

	buf.Reset()
	require.NoError(t, reports.ExportProductionOrders(context.Background(), &buf, models.OrderStatusInProgress))
	f2, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f2.Close()
	rows, err = f2.GetRows("Orders")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	err = reports.ExportProductionOrders(context.Background(), &buf, "archived")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
