package api

import (
	"net/http"
	"strings"

	"crm-intelligence/internal/engine"

	"github.com/gin-gonic/gin"
)

type TimelineHandler struct {
	Engine *engine.Engine
}

func NewTimelineHandler(e *engine.Engine) *TimelineHandler {
	return &TimelineHandler{Engine: e}
}

func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}

	var types []string
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	page, err := h.Engine.GetTimeline(c.Request.Context(), ownerFrom(c), engine.TimelineQuery{
		Types:     types,
		Search:    c.Query("search"),
		ContactID: c.Query("contact_id"),
		Cursor:    c.Query("cursor"),
		Limit:     limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
