package handlers

import (
	"errors"
	"net/http"
	"strconv"

	incidentRepo "careline/database/repository/incident"
	"careline/models"
	"careline/services/escalation"
	"careline/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SOSHandler exposes the alert ingress endpoints.
type SOSHandler struct {
	Engine    escalation.Engine
	Incidents incidentRepo.IncidentRepository
	Dedup     *redis.Client
}

// NewSOSHandler creates a new SOSHandler.
func NewSOSHandler(engine escalation.Engine, incidents incidentRepo.IncidentRepository, dedup *redis.Client) *SOSHandler {
	return &SOSHandler{Engine: engine, Incidents: incidents, Dedup: dedup}
}

type triggerRequest struct {
	UserID      string             `json:"user_id" binding:"required"`
	TriggerType string             `json:"trigger_type" binding:"required"`
	Location    string             `json:"location"`
	Vitals      *models.VitalSigns `json:"vitals"`
	DedupKey    string             `json:"dedup_key"`
}

// TriggerHandler ingests one SOS trigger. The incident is durable
// before the response goes out; a blind client retry with the same
// dedup_key returns the original incident id.
func (h *SOSHandler) TriggerHandler(c *gin.Context) {
	logger := getLogger(c)

	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid trigger payload", err.Error())
		return
	}

	switch req.TriggerType {
	case models.TriggerButton, models.TriggerVoice, models.TriggerAuto:
	default:
		utils.JSONError(c, http.StatusBadRequest, "invalid trigger type", req.TriggerType)
		return
	}

	var loc *models.Location
	if req.Location != "" {
		parsed, err := models.ParseLocation(req.Location)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid location", err.Error())
			return
		}
		loc = parsed
	}
	if req.Vitals != nil {
		if err := req.Vitals.Validate(); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid vitals", err.Error())
			return
		}
	}

	// Client-supplied dedup key makes blind retries safe: a repeated
	// ingress call inside the window returns the original incident.
	dedupKey := ""
	if req.DedupKey != "" {
		dedupKey = utils.DedupKeyPrefix + req.UserID + ":" + req.DedupKey
		if id, err := h.Dedup.Get(c.Request.Context(), dedupKey).Result(); err == nil {
			c.JSON(http.StatusOK, gin.H{"incident_id": id, "deduplicated": true})
			return
		}
	}

	inc, coalesced, err := h.Engine.RaiseIncident(c.Request.Context(), escalation.Trigger{
		UserID:      req.UserID,
		TriggerType: req.TriggerType,
		Location:    loc,
		Vitals:      req.Vitals,
	})
	if err != nil {
		logger.Error("trigger ingress failed", zap.String("userId", req.UserID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to raise incident", "persistence failure, please retry")
		return
	}

	if dedupKey != "" {
		if err := h.Dedup.SetNX(c.Request.Context(), dedupKey, inc.ID, utils.DedupKeyTTL()).Err(); err != nil {
			logger.Warn("failed to store dedup key", zap.String("key", dedupKey), zap.Error(err))
		}
	}

	if coalesced {
		c.JSON(http.StatusConflict, gin.H{"incident_id": inc.ID, "coalesced": true})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"incident_id": inc.ID})
}

type ackRequest struct {
	IncidentID string `json:"incident_id" binding:"required"`
	Actor      string `json:"actor" binding:"required"`
}

// AckHandler records a contact's acknowledgment of an incident.
func (h *SOSHandler) AckHandler(c *gin.Context) {
	var req ackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid ack payload", err.Error())
		return
	}

	err := h.Engine.Acknowledge(c.Request.Context(), req.IncidentID, req.Actor)
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "incident not found", req.IncidentID)
	case errors.Is(err, models.ErrInvalidState):
		utils.JSONError(c, http.StatusConflict, "incident already closed", req.IncidentID)
	case err != nil:
		utils.JSONError(c, http.StatusInternalServerError, "failed to acknowledge incident", err.Error())
	default:
		c.JSON(http.StatusOK, gin.H{"incident_id": req.IncidentID, "state": models.StateAcknowledged})
	}
}

type resolveRequest struct {
	IncidentID string `json:"incident_id" binding:"required"`
	Resolver   string `json:"resolver" binding:"required"`
}

// ResolveHandler is the explicit terminal transition.
func (h *SOSHandler) ResolveHandler(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid resolve payload", err.Error())
		return
	}

	err := h.Engine.Resolve(c.Request.Context(), req.IncidentID, req.Resolver)
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "incident not found", req.IncidentID)
	case errors.Is(err, models.ErrInvalidState):
		utils.JSONError(c, http.StatusConflict, "incident already closed", req.IncidentID)
	case err != nil:
		utils.JSONError(c, http.StatusInternalServerError, "failed to resolve incident", err.Error())
	default:
		c.JSON(http.StatusOK, gin.H{"incident_id": req.IncidentID, "state": models.StateResolved})
	}
}

// ListIncidentsHandler returns a user's incident history, newest first.
func (h *SOSHandler) ListIncidentsHandler(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing userId", "query parameter userId is required")
		return
	}
	skip, limit := pagination(c)

	incidents, err := h.Incidents.ListByUser(c.Request.Context(), userID, skip, limit)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list incidents", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": incidents})
}

// IncidentHistoryHandler replays the full delivery-attempt log of one
// incident for auditing.
func (h *SOSHandler) IncidentHistoryHandler(c *gin.Context) {
	id := c.Param("id")

	inc, err := h.Incidents.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "incident not found", id)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch incident", err.Error())
		return
	}

	attempts, err := h.Incidents.Attempts(c.Request.Context(), id)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch attempts", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident": inc, "attempts": attempts})
}

// pagination reads skip/limit query parameters with sane bounds.
func pagination(c *gin.Context) (int64, int64) {
	skip, _ := strconv.ParseInt(c.DefaultQuery("skip", "0"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return skip, limit
}
