package api

import (
	"net/http"
	"time"

	"crm-intelligence/internal/engine"

	"github.com/gin-gonic/gin"
)

type FollowUpHandler struct {
	Engine *engine.Engine
}

func NewFollowUpHandler(e *engine.Engine) *FollowUpHandler {
	return &FollowUpHandler{Engine: e}
}

func (h *FollowUpHandler) GetPendingFollowups(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	includeOverdue := c.DefaultQuery("include_overdue", "true") != "false"

	followups, err := h.Engine.GetPendingFollowups(c.Request.Context(), ownerFrom(c), limit, includeOverdue)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, followups)
}

func (h *FollowUpHandler) MarkDone(c *gin.Context) {
	var req struct {
		Date *time.Time `json:"date"`
	}
	// Body is optional; an empty body means "completed now".
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	followup, err := h.Engine.MarkFollowupDone(c.Request.Context(), ownerFrom(c), c.Param("contactId"), req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, followup)
}

func (h *FollowUpHandler) Snooze(c *gin.Context) {
	var req struct {
		Days int `json:"days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	followup, err := h.Engine.SnoozeFollowup(c.Request.Context(), ownerFrom(c), c.Param("contactId"), req.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, followup)
}
