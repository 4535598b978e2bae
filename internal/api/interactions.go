package api

import (
	"net/http"
	"time"

	"crm-intelligence/internal/engine"
	"crm-intelligence/internal/metrics"
	"crm-intelligence/internal/ws"

	"github.com/gin-gonic/gin"
)

type InteractionHandler struct {
	Engine *engine.Engine
	Hub    *ws.Hub
}

func NewInteractionHandler(e *engine.Engine, hub *ws.Hub) *InteractionHandler {
	return &InteractionHandler{Engine: e, Hub: hub}
}

type recordInteractionRequest struct {
	Type       string     `json:"type" binding:"required"`
	Direction  string     `json:"direction" binding:"required"`
	Subject    string     `json:"subject"`
	Summary    string     `json:"summary"`
	Source     string     `json:"source"`
	Sentiment  *float64   `json:"sentiment"`
	OccurredAt *time.Time `json:"occurred_at"`
	ContactIDs []string   `json:"contact_ids" binding:"required"`
}

func (h *InteractionHandler) RecordInteraction(c *gin.Context) {
	var req recordInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := engine.InteractionInput{
		Type:       req.Type,
		Direction:  req.Direction,
		Subject:    req.Subject,
		Summary:    req.Summary,
		Source:     req.Source,
		Sentiment:  req.Sentiment,
		ContactIDs: req.ContactIDs,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	interaction, err := h.Engine.RecordInteraction(c.Request.Context(), ownerFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.InteractionsRecorded.Inc()
	if h.Hub != nil {
		h.Hub.NotifyInteraction(ownerFrom(c), interaction)
	}
	c.JSON(http.StatusCreated, interaction)
}

func (h *InteractionHandler) GetInteractions(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		to = &t
	}

	interactions, err := h.Engine.ListInteractions(c.Request.Context(), ownerFrom(c),
		c.Param("id"), from, to, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, interactions)
}

func (h *InteractionHandler) DeleteInteraction(c *gin.Context) {
	if err := h.Engine.DeleteInteraction(c.Request.Context(), ownerFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Interaction deleted"})
}
