package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/models/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ToggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := models.ListProductionOrders(c.Request.Context(), c.Query("status"))
		if err != nil {
			respondError(c, "ListOrdersHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": orders})
	}
}

func CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProductionOrder
		if !bindJSON(c, &input) {
			return
		}
		order, err := models.CreateProductionOrder(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "CreateOrderHandler", err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		details, err := models.GetProductionOrderDetails(c.Request.Context(), id)
		if err != nil {
			respondError(c, "GetOrderHandler", err)
			return
		}
		c.JSON(http.StatusOK, details)
	}
}

func OrderReadingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		readings, err := models.ListReadingsByOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, "OrderReadingsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": readings})
	}
}

// StartOrderHandler moves a pending or paused order to in_progress without binding a machine.
// Finished orders are only reopened through a manual edit.
func StartOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		order, err := models.StartOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, "StartOrderHandler", err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func PauseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		order, err := models.PauseOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, "PauseOrderHandler", err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func EditOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.OrderEdit
		if !bindJSON(c, &input) {
			return
		}
		order, err := models.ManualEditOrder(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "EditOrderHandler", err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func DeleteOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteProductionOrder(c.Request.Context(), id); err != nil {
			respondError(c, "DeleteOrderHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func ListMachinesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		machines, err := models.ListMachines(c.Request.Context())
		if err != nil {
			respondError(c, "ListMachinesHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": machines})
	}
}

func CreateMachineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMachine
		if !bindJSON(c, &input) {
			return
		}
		machine, err := models.CreateMachine(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "CreateMachineHandler", err)
			return
		}
		c.JSON(http.StatusCreated, machine)
	}
}

func ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.ListUsers(c.Request.Context())
		if err != nil {
			respondError(c, "ListUsersHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": users})
	}
}

func CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "CreateUserHandler", err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func ToggleUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req ToggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		user, err := models.ToggleActiveUser(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, "ToggleUserHandler", err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func CreateStopReasonHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStopReason
		if !bindJSON(c, &input) {
			return
		}
		reason, err := models.CreateStopReason(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "CreateStopReasonHandler", err)
			return
		}
		c.JSON(http.StatusCreated, reason)
	}
}

func ToggleStopReasonHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req ToggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		reason, err := models.ToggleActiveStopReason(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, "ToggleStopReasonHandler", err)
			return
		}
		c.JSON(http.StatusOK, reason)
	}
}

func DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dashboard, err := reports.GetDashboard(c.Request.Context())
		if err != nil {
			respondError(c, "DashboardHandler", err)
			return
		}
		c.JSON(http.StatusOK, dashboard)
	}
}

// ExportOrdersHandler streams the order list as an xlsx attachment.
func ExportOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		if status != "" && !models.IsValidOrderStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		var buf bytes.Buffer
		if err := reports.ExportProductionOrders(c.Request.Context(), &buf, status); err != nil {
			respondError(c, "ExportOrdersHandler", err)
			return
		}
		filename := fmt.Sprintf("production_orders_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}
