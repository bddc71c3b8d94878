package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/production_backend/models"
)

type ScanRequest struct {
	Token string `json:"token" binding:"required,max=100"`
}

type BindRequest struct {
	MachineId int `json:"machine_id" binding:"required,gt=0"`
}

// LoginHandler opens a floor session from a scanned user badge.
func LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScanRequest
		if !bindJSON(c, &req) {
			return
		}
		info, err := models.ScanLogin(c.Request.Context(), req.Token)
		if err != nil {
			respondError(c, "LoginHandler", err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			respondError(c, "LogoutHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": ok})
	}
}

// ScanHandler resolves any scanned code to a user or a machine.
func ScanHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScanRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := models.ResolveScanToken(c.Request.Context(), req.Token)
		if err != nil {
			respondError(c, "ScanHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func SelectableOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := models.ListSelectableOrders(c.Request.Context())
		if err != nil {
			respondError(c, "SelectableOrdersHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": orders})
	}
}

func BindOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req BindRequest
		if !bindJSON(c, &req) {
			return
		}
		order, err := models.BindOrder(c.Request.Context(), orderId, req.MachineId)
		if err != nil {
			respondError(c, "BindOrderHandler", err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func RecordProductionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewProductionReading
		if !bindJSON(c, &input) {
			return
		}
		input.OrderId = orderId
		input.UserId = currentUserId(c)

		result, err := models.RecordProduction(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "RecordProductionHandler", err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func StopMachineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		machineId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewStoppage
		if !bindJSON(c, &input) {
			return
		}
		input.MachineId = machineId
		input.UserId = currentUserId(c)

		result, err := models.StopMachine(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "StopMachineHandler", err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func ResumeOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := pathId(c, "id")
		if !ok {
			return
		}
		order, err := models.ResumeOrder(c.Request.Context(), orderId)
		if err != nil {
			respondError(c, "ResumeOrderHandler", err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func ActiveStopReasonsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reasons, err := models.ListActiveStopReasons(c.Request.Context())
		if err != nil {
			respondError(c, "ActiveStopReasonsHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": reasons})
	}
}

func OpenStoppagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		machineId, ok := pathId(c, "id")
		if !ok {
			return
		}
		stoppages, err := models.ListOpenStoppages(c.Request.Context(), machineId)
		if err != nil {
			respondError(c, "OpenStoppagesHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": stoppages})
	}
}
