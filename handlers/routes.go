package handlers

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/production_backend/middlewares"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/plansync"
)

// RegisterRoutes mounts the floor, admin and sync APIs on r.
// The session middleware must already be installed on r.
func RegisterRoutes(r *gin.Engine, engine *plansync.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	api := r.Group("/api")
	api.POST("/session", LoginHandler())
	api.POST("/scan", ScanHandler())

	floor := api.Group("/floor", middlewares.RequireAuth())
	{
		floor.DELETE("/session", LogoutHandler())
		floor.GET("/orders/selectable", SelectableOrdersHandler())
		floor.POST("/orders/:id/bind", BindOrderHandler())
		floor.POST("/orders/:id/readings", RecordProductionHandler())
		floor.POST("/orders/:id/resume", ResumeOrderHandler())
		floor.POST("/machines/:id/stoppages", StopMachineHandler())
		floor.GET("/machines/:id/stoppages", OpenStoppagesHandler())
		floor.GET("/stop-reasons", ActiveStopReasonsHandler())
	}

	admin := api.Group("/admin",
		middlewares.RequireAuth(),
		middlewares.RequireRole(models.UserRoleAdmin, models.UserRoleSupervisor),
		gzip.Gzip(gzip.DefaultCompression),
	)
	{
		admin.GET("/dashboard", DashboardHandler())

		admin.GET("/orders", ListOrdersHandler())
		admin.POST("/orders", CreateOrderHandler())
		admin.GET("/orders/export", ExportOrdersHandler())
		admin.GET("/orders/:id", GetOrderHandler())
		admin.PUT("/orders/:id", EditOrderHandler())
		admin.DELETE("/orders/:id", DeleteOrderHandler())
		admin.GET("/orders/:id/readings", OrderReadingsHandler())
		admin.POST("/orders/:id/start", StartOrderHandler())
		admin.POST("/orders/:id/pause", PauseOrderHandler())
		admin.POST("/orders/:id/resume", ResumeOrderHandler())

		admin.GET("/machines", ListMachinesHandler())
		admin.POST("/machines", CreateMachineHandler())

		admin.GET("/users", ListUsersHandler())
		admin.POST("/users", CreateUserHandler())
		admin.PUT("/users/:id/active", ToggleUserHandler())

		admin.GET("/stop-reasons", ActiveStopReasonsHandler())
		admin.POST("/stop-reasons", CreateStopReasonHandler())
		admin.PUT("/stop-reasons/:id/active", ToggleStopReasonHandler())

		admin.POST("/sync", plansync.SyncHandler(engine))
		admin.POST("/sync/trigger", plansync.TriggerSyncHandler())
		admin.POST("/sync/test-connection", plansync.TestConnectionHandler(engine))
		admin.GET("/sync/logs", plansync.SyncLogsHandler())
	}

	// Pub/Sub push endpoint for queued sync runs.
	r.POST("/pubsub/plansync", plansync.PubSubPushHandler(engine))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
}
