package models

const (
	UserRoleOperator   = "operator"
	UserRoleSupervisor = "supervisor"
	UserRoleAdmin      = "admin"
)

const (
	MachineStatusIdle    = "idle"
	MachineStatusWorking = "working"
	MachineStatusStopped = "stopped"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
	OrderStatusPaused     = "paused"
	OrderStatusFinished   = "finished"
)

const (
	ReadingStatusInProgress = "in_progress"
	ReadingStatusFinished   = "finished"
)

const (
	StopCategoryUnplanned = "unplanned"
)

const (
	SyncTypeOrders = "orders"

	SyncOutcomeSuccess = "success"
	SyncOutcomeError   = "error"
)

const DefaultUnit = "M"

func IsValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusPaused, OrderStatusFinished:
		return true
	}
	return false
}
