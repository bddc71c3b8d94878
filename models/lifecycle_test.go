package models_test

import (
	"context"
	"testing"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/testutil"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type floorFixture struct {
	operator *models.User
	jigger1  *models.Machine
	jigger2  *models.Machine
}

func newFloorFixture(t *testing.T) *floorFixture {
	t.Helper()
	testutil.SetupTestDB(t)
	ctx := context.Background()

	operator, err := models.CreateUser(ctx, &models.NewUser{QrCode: "OPERADOR001", Name: "Operator One", Role: models.UserRoleOperator})
	require.NoError(t, err)
	jigger1, err := models.CreateMachine(ctx, &models.NewMachine{QrCode: "JIGGER01", Code: "TING.001.00001", Name: "Jigger 01"})
	require.NoError(t, err)
	jigger2, err := models.CreateMachine(ctx, &models.NewMachine{QrCode: "JIGGER02", Code: "TING.001.00002", Name: "Jigger 02"})
	require.NoError(t, err)
	return &floorFixture{operator: operator, jigger1: jigger1, jigger2: jigger2}
}

func newOrder(t *testing.T, number int, released int64) *models.ProductionOrder {
	t.Helper()
	order, err := models.CreateProductionOrder(context.Background(), &models.NewProductionOrder{
		OrderNumber:   number,
		Product:       "4.TP050.GPT00.000082",
		ProgrammedQty: decimal.NewFromInt(released),
		ReleasedQty:   decimal.NewFromInt(released),
	})
	require.NoError(t, err)
	return order
}

func (f *floorFixture) record(t *testing.T, orderId, machineId int, qty int64) (*models.ReadingResult, error) {
	t.Helper()
	return models.RecordProduction(context.Background(), &models.NewProductionReading{
		OrderId:   orderId,
		MachineId: machineId,
		UserId:    f.operator.ID,
		Quantity:  decimal.NewFromInt(qty),
	})
}

func machineStatus(t *testing.T, id int) string {
	t.Helper()
	m, err := models.GetMachine(context.Background(), id)
	require.NoError(t, err)
	return m.Status
}

func TestOrderRunsToCompletion(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	order := newOrder(t, 193, 3200)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.False(t, order.FromApi)

	bound, err := models.BindOrder(ctx, order.ID, f.jigger1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, bound.Status)
	require.NotNil(t, bound.StartedAt)
	assert.Equal(t, models.MachineStatusWorking, machineStatus(t, f.jigger1.ID))

	res, err := f.record(t, order.ID, f.jigger1.ID, 1000)
	require.NoError(t, err)
	assert.False(t, res.Finished)
	assert.True(t, decimal.NewFromInt(1000).Equal(res.Order.ProducedQty))

	res, err = f.record(t, order.ID, f.jigger1.ID, 2200)
	require.NoError(t, err)
	assert.True(t, res.Finished)

	done, err := models.GetProductionOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFinished, done.Status)
	assert.True(t, decimal.NewFromInt(3200).Equal(done.ProducedQty))
	assert.NotNil(t, done.FinishedAt)
	require.NotNil(t, done.MachineId)
	assert.Equal(t, f.jigger1.ID, *done.MachineId)
	assert.Equal(t, models.MachineStatusIdle, machineStatus(t, f.jigger1.ID))

	readings, err := models.ListReadingsByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, readings, 2)

	_, err = f.record(t, order.ID, f.jigger1.ID, 1)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestBindRejectsBusyMachine(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	first := newOrder(t, 222, 1500)
	second := newOrder(t, 245, 800)

	_, err := models.BindOrder(ctx, first.ID, f.jigger1.ID)
	require.NoError(t, err)

	_, err = models.BindOrder(ctx, second.ID, f.jigger1.ID)
	assert.ErrorIs(t, err, models.ErrMachineBusy)

	unchanged, err := models.GetProductionOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, unchanged.Status)
	assert.Nil(t, unchanged.MachineId)

	_, err = models.BindOrder(ctx, second.ID, f.jigger2.ID)
	assert.NoError(t, err)
}

func TestBindRejectsFinishedOrder(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	order := newOrder(t, 300, 10)
	_, err := models.BindOrder(ctx, order.ID, f.jigger1.ID)
	require.NoError(t, err)
	_, err = f.record(t, order.ID, f.jigger1.ID, 10)
	require.NoError(t, err)

	_, err = models.BindOrder(ctx, order.ID, f.jigger2.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = models.BindOrder(ctx, order.ID, 9999)
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestRecordProductionValidation(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	order := newOrder(t, 310, 100)

	_, err := f.record(t, order.ID, f.jigger1.ID, 0)
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	_, err = f.record(t, order.ID, f.jigger1.ID, 5)
	assert.ErrorIs(t, err, models.ErrInvalidState, "pending orders take no readings")

	_, err = models.BindOrder(ctx, order.ID, f.jigger1.ID)
	require.NoError(t, err)

	_, err = f.record(t, order.ID, f.jigger2.ID, 5)
	assert.ErrorIs(t, err, models.ErrInvalidState, "reading on a machine the order is not bound to")

	_, err = f.record(t, order.ID, f.jigger1.ID, 101)
	assert.ErrorIs(t, err, models.ErrQuantityExceeded)

	_, err = models.ToggleActiveUser(ctx, f.operator.ID, false)
	require.NoError(t, err)
	_, err = f.record(t, order.ID, f.jigger1.ID, 5)
	assert.ErrorIs(t, err, models.ErrInactiveUser)

	current, err := models.GetProductionOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, current.ProducedQty.IsZero())
}

func TestStopPausesOrderAndBindResumesMachine(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	order := newOrder(t, 320, 500)
	_, err := models.BindOrder(ctx, order.ID, f.jigger1.ID)
	require.NoError(t, err)

	reason, err := models.CreateStopReason(ctx, &models.NewStopReason{
		Code: "MEC001", Description: "Mechanical failure", Category: "maintenance",
	})
	require.NoError(t, err)

	stop, err := models.StopMachine(ctx, &models.NewStoppage{
		MachineId: f.jigger1.ID,
		UserId:    f.operator.ID,
		ReasonId:  &reason.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, stop.PausedOrder)
	assert.Equal(t, order.ID, stop.PausedOrder.ID)
	assert.Equal(t, "maintenance", stop.Stoppage.Category)
	assert.Equal(t, models.MachineStatusStopped, machineStatus(t, f.jigger1.ID))

	open, err := models.ListOpenStoppages(ctx, f.jigger1.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)

	resumed, err := models.ResumeOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, resumed.Status)
	assert.Equal(t, models.MachineStatusStopped, machineStatus(t, f.jigger1.ID))

	_, err = models.ResumeOrder(ctx, order.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = models.BindOrder(ctx, order.ID, f.jigger1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MachineStatusWorking, machineStatus(t, f.jigger1.ID))

	open, err = models.ListOpenStoppages(ctx, f.jigger1.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestReadingAfterResumeRestartsMachine(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	order := newOrder(t, 222, 100)

	_, err := models.BindOrder(ctx, order.ID, f.jigger1.ID)
	require.NoError(t, err)
	_, err = models.StopMachine(ctx, &models.NewStoppage{MachineId: f.jigger1.ID, UserId: f.operator.ID, CustomReason: "yarn break"})
	require.NoError(t, err)
	_, err = models.ResumeOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MachineStatusStopped, machineStatus(t, f.jigger1.ID))

	res, err := f.record(t, order.ID, f.jigger1.ID, 40)
	require.NoError(t, err)
	assert.False(t, res.Finished)
	assert.Equal(t, models.MachineStatusWorking, res.Machine.Status)
	assert.Equal(t, models.MachineStatusWorking, machineStatus(t, f.jigger1.ID))

	open, err := models.ListOpenStoppages(ctx, f.jigger1.ID)
	require.NoError(t, err)
	assert.Empty(t, open)

	res, err = f.record(t, order.ID, f.jigger1.ID, 60)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, models.MachineStatusIdle, machineStatus(t, f.jigger1.ID))
}

func TestBindOtherMachineKeepsInProgressOrderRejected(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	order := newOrder(t, 245, 100)

	_, err := models.BindOrder(ctx, order.ID, f.jigger1.ID)
	require.NoError(t, err)
	_, err = models.BindOrder(ctx, order.ID, f.jigger2.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	again, err := models.BindOrder(ctx, order.ID, f.jigger1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, again.Status)
}

func TestStartOrderKeepsFinishedAndBusyGuards(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	done := newOrder(t, 510, 10)
	_, err := models.BindOrder(ctx, done.ID, f.jigger1.ID)
	require.NoError(t, err)
	_, err = f.record(t, done.ID, f.jigger1.ID, 10)
	require.NoError(t, err)

	_, err = models.StartOrder(ctx, done.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	running := newOrder(t, 511, 100)
	_, err = models.BindOrder(ctx, running.ID, f.jigger2.ID)
	require.NoError(t, err)
	_, err = models.StopMachine(ctx, &models.NewStoppage{MachineId: f.jigger2.ID, UserId: f.operator.ID, CustomReason: "setup"})
	require.NoError(t, err)
	other := newOrder(t, 512, 100)
	_, err = models.BindOrder(ctx, other.ID, f.jigger2.ID)
	require.NoError(t, err)

	_, err = models.StartOrder(ctx, running.ID)
	assert.ErrorIs(t, err, models.ErrMachineBusy)

	fresh := newOrder(t, 513, 100)
	started, err := models.StartOrder(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)
	assert.Nil(t, started.MachineId)
}

func TestStopWithoutActiveOrder(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()

	stop, err := models.StopMachine(ctx, &models.NewStoppage{MachineId: f.jigger2.ID, UserId: f.operator.ID})
	require.NoError(t, err)
	assert.Nil(t, stop.PausedOrder)
	assert.Equal(t, models.StopCategoryUnplanned, stop.Stoppage.Category)
}

func TestStopRequiresJustification(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	reason, err := models.CreateStopReason(ctx, &models.NewStopReason{
		Code: "OUT001", Description: "Other", Category: "other", RequiresJustification: true,
	})
	require.NoError(t, err)

	_, err = models.StopMachine(ctx, &models.NewStoppage{MachineId: f.jigger1.ID, UserId: f.operator.ID, ReasonId: &reason.ID})
	assert.ErrorIs(t, err, models.ErrJustificationRequired)
	assert.Equal(t, models.MachineStatusIdle, machineStatus(t, f.jigger1.ID))

	_, err = models.StopMachine(ctx, &models.NewStoppage{
		MachineId: f.jigger1.ID, UserId: f.operator.ID, ReasonId: &reason.ID, Justification: "waiting for dye",
	})
	assert.NoError(t, err)
}

func TestResumeRejectsBusyMachine(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	first := newOrder(t, 330, 100)
	second := newOrder(t, 331, 100)

	_, err := models.BindOrder(ctx, first.ID, f.jigger1.ID)
	require.NoError(t, err)
	_, err = models.PauseOrder(ctx, first.ID)
	require.NoError(t, err)
	_, err = models.BindOrder(ctx, second.ID, f.jigger1.ID)
	require.NoError(t, err)

	_, err = models.ResumeOrder(ctx, first.ID)
	assert.ErrorIs(t, err, models.ErrMachineBusy)
}

func TestManualEditStampsLifecycleTimes(t *testing.T) {
	newFloorFixture(t)
	ctx := context.Background()
	order := newOrder(t, 340, 100)

	inProgress := models.OrderStatusInProgress
	edited, err := models.ManualEditOrder(ctx, order.ID, &models.OrderEdit{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, edited.Status)
	require.NotNil(t, edited.StartedAt)
	assert.Nil(t, edited.FinishedAt)

	finished := models.OrderStatusFinished
	produced := decimal.NewFromInt(100)
	note := "closed by admin"
	edited, err = models.ManualEditOrder(ctx, order.ID, &models.OrderEdit{Status: &finished, ProducedQty: &produced, Note: &note})
	require.NoError(t, err)
	assert.NotNil(t, edited.FinishedAt)
	assert.Equal(t, note, edited.Note)
	assert.True(t, produced.Equal(edited.ProducedQty))

	bogus := "archived"
	_, err = models.ManualEditOrder(ctx, order.ID, &models.OrderEdit{Status: &bogus})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	negative := decimal.NewFromInt(-1)
	_, err = models.ManualEditOrder(ctx, order.ID, &models.OrderEdit{ReleasedQty: &negative})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDeleteOrderWithReadingsIsRefused(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	used := newOrder(t, 350, 100)
	unused := newOrder(t, 351, 100)

	_, err := models.BindOrder(ctx, used.ID, f.jigger1.ID)
	require.NoError(t, err)
	_, err = f.record(t, used.ID, f.jigger1.ID, 10)
	require.NoError(t, err)

	assert.ErrorIs(t, models.DeleteProductionOrder(ctx, used.ID), models.ErrHasDependents)
	require.NoError(t, models.DeleteProductionOrder(ctx, unused.ID))

	_, err = models.GetProductionOrder(ctx, unused.ID)
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestCreateOrderRejectsDuplicates(t *testing.T) {
	newFloorFixture(t)
	newOrder(t, 360, 100)

	_, err := models.CreateProductionOrder(context.Background(), &models.NewProductionOrder{OrderNumber: 360, Product: "X"})
	assert.ErrorIs(t, err, utils.ErrDuplicate)
}

func TestSelectableOrders(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	pending := newOrder(t, 370, 100)
	running := newOrder(t, 371, 100)
	exhausted := newOrder(t, 372, 100)

	_, err := models.BindOrder(ctx, running.ID, f.jigger1.ID)
	require.NoError(t, err)
	require.NoError(t, config.GetDB().Model(&models.ProductionOrder{}).
		Where("id = ?", exhausted.ID).
		Updates(map[string]interface{}{"status": models.OrderStatusPaused, "produced_qty": decimal.NewFromInt(100)}).Error)

	orders, err := models.ListSelectableOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, pending.ID, orders[0].ID)
}
