package api

import (
	"net/http"

	"crm-intelligence/internal/engine"
	"crm-intelligence/internal/ws"

	"github.com/gin-gonic/gin"
)

type RecommendationHandler struct {
	Engine *engine.Engine
	Hub    *ws.Hub
}

func NewRecommendationHandler(e *engine.Engine, hub *ws.Hub) *RecommendationHandler {
	return &RecommendationHandler{Engine: e, Hub: hub}
}

func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}

	recs, err := h.Engine.GetRecommendations(c.Request.Context(), ownerFrom(c), c.Query("period"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.Hub != nil {
		h.Hub.NotifyRecommendations(ownerFrom(c), recs)
	}
	c.JSON(http.StatusOK, recs)
}

func (h *RecommendationHandler) Dismiss(c *gin.Context) {
	if err := h.Engine.DismissRecommendation(c.Request.Context(), ownerFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Recommendation dismissed"})
}

func (h *RecommendationHandler) Snooze(c *gin.Context) {
	var req struct {
		Days int `json:"days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Engine.SnoozeRecommendation(c.Request.Context(), ownerFrom(c), c.Param("id"), req.Days); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Recommendation snoozed"})
}

func (h *RecommendationHandler) Feedback(c *gin.Context) {
	var req struct {
		IsHelpful *bool `json:"is_helpful" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Engine.FeedbackRecommendation(c.Request.Context(), ownerFrom(c), c.Param("id"), *req.IsHelpful); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Feedback recorded"})
}
