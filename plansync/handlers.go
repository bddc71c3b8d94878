package plansync

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/production_backend/models"
)

// syncErrorStatus maps a run failure to the HTTP status returned to the admin UI.
func syncErrorStatus(err error) int {
	var authErr *AuthFailure
	var upstreamErr *UpstreamFailure
	switch {
	case errors.Is(err, ErrSyncInProgress):
		return http.StatusConflict
	case errors.As(err, &authErr), errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func SyncHandler(engine *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := engine.Run(c.Request.Context(), "manual")
		if err != nil {
			body := gin.H{"success": false, "error": err.Error()}
			if result != nil {
				body["result"] = result
			}
			c.JSON(syncErrorStatus(err), body)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func TestConnectionHandler(engine *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := engine.TestConnection(c.Request.Context())
		if err != nil {
			c.JSON(syncErrorStatus(err), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func SyncLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := models.DefaultSyncLogLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = n
		}

		entries, err := models.ListSyncLogs(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items := make([]SyncLogResponse, 0, len(entries))
		for _, e := range entries {
			items = append(items, SyncLogResponse{
				ID:         e.ID,
				RunId:      e.RunId,
				SyncType:   e.SyncType,
				ExecutedAt: e.ExecutedAt,
				Processed:  e.Processed,
				Created:    e.Created,
				Updated:    e.Updated,
				Errors:     e.Errors,
				DurationMs: e.DurationMs,
				Outcome:    e.Outcome,
				Message:    e.Message,
			})
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}
