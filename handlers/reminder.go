package handlers

import (
	"errors"
	"net/http"
	"time"

	reminderRepo "careline/database/repository/reminder"
	"careline/models"
	"careline/services/scheduler"
	"careline/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReminderHandler exposes the reminder configuration endpoints.
type ReminderHandler struct {
	Repo reminderRepo.ReminderRepository
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(repo reminderRepo.ReminderRepository) *ReminderHandler {
	return &ReminderHandler{Repo: repo}
}

type createReminderRequest struct {
	UserID   string              `json:"user_id" binding:"required"`
	Kind     string              `json:"kind" binding:"required"`
	Rule     models.ReminderRule `json:"rule"`
	Category string              `json:"category" binding:"required"`
	Text     string              `json:"text" binding:"required"`
}

// CreateHandler registers a new reminder schedule. Rules are validated
// up front; anything malformed is a 422, never a silently-dead schedule.
func (h *ReminderHandler) CreateHandler(c *gin.Context) {
	logger := getLogger(c)

	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid reminder payload", err.Error())
		return
	}

	now := time.Now()
	sched := &models.ReminderSchedule{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Kind:      req.Kind,
		Rule:      req.Rule,
		Category:  req.Category,
		Text:      req.Text,
		Active:    true,
		CreatedAt: now,
	}
	if err := models.ValidateSchedule(sched, now); err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "invalid schedule rule", err.Error())
		return
	}

	// Seed next_fire_at from the rule before persisting.
	sched.NextFireAt = now
	next, _ := scheduler.NextFire(sched, now)
	sched.NextFireAt = next

	if err := h.Repo.CreateSchedule(c.Request.Context(), sched); err != nil {
		logger.Error("reminder creation failed", zap.String("userId", req.UserID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to create schedule", "persistence failure, please retry")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"schedule_id": sched.ID, "next_fire_at": sched.NextFireAt})
}

// ListHandler returns a user's reminder schedules, newest first.
func (h *ReminderHandler) ListHandler(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing userId", "query parameter userId is required")
		return
	}
	skip, limit := pagination(c)

	schedules, err := h.Repo.ListByUser(c.Request.Context(), userID, skip, limit)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list schedules", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

type snoozeRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}

// SnoozeHandler postpones the next fire of an active schedule.
func (h *ReminderHandler) SnoozeHandler(c *gin.Context) {
	id := c.Param("id")

	var req snoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid snooze payload", err.Error())
		return
	}
	if req.Minutes <= 0 || req.Minutes > 24*60 {
		utils.JSONError(c, http.StatusBadRequest, "invalid snooze duration", "minutes must be between 1 and 1440")
		return
	}

	updated, err := h.Repo.Snooze(c.Request.Context(), id, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "schedule not found or inactive", id)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to snooze schedule", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule_id": id, "next_fire_at": updated.NextFireAt})
}

// CancelHandler deactivates a schedule; its occurrence history stays.
func (h *ReminderHandler) CancelHandler(c *gin.Context) {
	id := c.Param("id")

	if err := h.Repo.Deactivate(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "schedule not found", id)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to cancel schedule", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule_id": id, "active": false})
}

type occurrenceAckRequest struct {
	OccurrenceID string `json:"occurrence_id" binding:"required"`
	Actor        string `json:"actor" binding:"required"`
}

// AckHandler records that the user confirmed a reminder. Acknowledgment
// never changes future scheduling; the lifecycles are independent.
func (h *ReminderHandler) AckHandler(c *gin.Context) {
	var req occurrenceAckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid ack payload", err.Error())
		return
	}

	if err := h.Repo.AckOccurrence(c.Request.Context(), req.OccurrenceID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "occurrence not found", req.OccurrenceID)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to acknowledge occurrence", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrence_id": req.OccurrenceID, "acknowledged": true})
}

// FailedHandler lists permanently failed occurrences for caregiver
// review.
func (h *ReminderHandler) FailedHandler(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing userId", "query parameter userId is required")
		return
	}
	skip, limit := pagination(c)

	occurrences, err := h.Repo.FailedOccurrences(c.Request.Context(), userID, skip, limit)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list occurrences", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": occurrences})
}
