package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/utils"
)

// errorStatus maps domain errors to HTTP statuses. Anything unknown is a 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrMachineBusy),
		errors.Is(err, models.ErrHasDependents),
		errors.Is(err, models.ErrQuantityExceeded),
		errors.Is(err, utils.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, utils.ErrorRecordNotFound),
		errors.Is(err, models.ErrUnrecognizedToken):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInactiveUser):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrJustificationRequired),
		errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, funcName string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "handlers", funcName, c.Request.URL.Path, nil, err)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindJSON writes a 400 with per-field tags when the body does not bind.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
		return false
	}
	return true
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func currentUserId(c *gin.Context) int {
	id, _ := utils.GetUserIdFromContext(c.Request.Context())
	return id
}
