package routes

import (
	"net/http"

	"careline/handlers"
	"careline/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterSOSRoutes registers the alert ingress endpoints.
func RegisterSOSRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/sos")
	{
		api.POST("/trigger", hb.TriggerHandler)
		api.POST("/ack", hb.SOSAckHandler)
		api.POST("/resolve", hb.ResolveHandler)
		api.GET("/incidents", hb.ListIncidentsHandler)
		api.GET("/incidents/:id", hb.IncidentHistoryHandler)
	}
}

// RegisterReminderRoutes registers the reminder configuration endpoints.
func RegisterReminderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/reminders")
	{
		api.POST("", hb.CreateReminderHandler)
		api.GET("", hb.ListRemindersHandler)
		api.POST("/:id/snooze", hb.SnoozeReminderHandler)
		api.DELETE("/:id", hb.CancelReminderHandler)
		api.POST("/ack", hb.ReminderAckHandler)
		api.GET("/failed", hb.FailedRemindersHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	RegisterHealthRoute(r)
	RegisterSOSRoutes(r, hb)
	RegisterReminderRoutes(r, hb)
}
