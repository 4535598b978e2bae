package api

import (
	"net/http"
	"time"

	"crm-intelligence/internal/engine"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	Engine *engine.Engine
}

func NewStatsHandler(e *engine.Engine) *StatsHandler {
	return &StatsHandler{Engine: e}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.Engine.GetStats(c.Request.Context(), ownerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type SignalHandler struct {
	Engine *engine.Engine
}

func NewSignalHandler(e *engine.Engine) *SignalHandler {
	return &SignalHandler{Engine: e}
}

type ingestSignalRequest struct {
	ContactID  string     `json:"contact_id" binding:"required"`
	Kind       string     `json:"kind" binding:"required"`
	Severity   float64    `json:"severity"`
	DetectedAt *time.Time `json:"detected_at"`
}

// IngestSignal accepts trigger candidates from the enrichment collaborator.
func (h *SignalHandler) IngestSignal(c *gin.Context) {
	var req ingestSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := engine.SignalInput{
		ContactID: req.ContactID,
		Kind:      req.Kind,
		Severity:  req.Severity,
	}
	if req.DetectedAt != nil {
		in.DetectedAt = *req.DetectedAt
	}

	signal, err := h.Engine.IngestSignal(c.Request.Context(), ownerFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, signal)
}
