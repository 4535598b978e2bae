package api

import (
	"errors"
	"net/http"
	"strconv"

	"crm-intelligence/internal/engine"
	"crm-intelligence/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ownerHeader = "X-Owner-ID"

// OwnerRequired resolves the tenant scope for every core operation. Identity
// verification lives upstream; here an absent owner is simply unauthorized.
func OwnerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(ownerHeader)
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + ownerHeader + " header"})
			return
		}
		c.Set("ownerID", owner)
		c.Next()
	}
}

func ownerFrom(c *gin.Context) string {
	return c.GetString("ownerID")
}

// limitParam parses the limit query parameter. A malformed value is a client
// error, never a silent fall-through to the default; the engine applies the
// default and range checks to the parsed value.
func limitParam(c *gin.Context) (int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return 0, false
	}
	return limit, true
}

// respondError maps the engine error taxonomy onto status codes. Store
// failures outside the taxonomy surface as 500 without leaking detail.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
