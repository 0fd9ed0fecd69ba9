package handlers

import "github.com/gin-gonic/gin"

// HandlerBundle assembles every endpoint handler for route
// registration.
type HandlerBundle struct {
	// SOS endpoints.
	TriggerHandler         gin.HandlerFunc
	SOSAckHandler          gin.HandlerFunc
	ResolveHandler         gin.HandlerFunc
	ListIncidentsHandler   gin.HandlerFunc
	IncidentHistoryHandler gin.HandlerFunc

	// Reminder endpoints.
	CreateReminderHandler  gin.HandlerFunc
	ListRemindersHandler   gin.HandlerFunc
	SnoozeReminderHandler  gin.HandlerFunc
	CancelReminderHandler  gin.HandlerFunc
	ReminderAckHandler     gin.HandlerFunc
	FailedRemindersHandler gin.HandlerFunc
}
