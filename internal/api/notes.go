package api

import (
	"net/http"

	"crm-intelligence/internal/engine"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	Engine *engine.Engine
}

func NewNoteHandler(e *engine.Engine) *NoteHandler {
	return &NoteHandler{Engine: e}
}

func (h *NoteHandler) CreateNote(c *gin.Context) {
	var req struct {
		ContactID string `json:"contact_id" binding:"required"`
		Title     string `json:"title"`
		Body      string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.Engine.CreateNote(c.Request.Context(), ownerFrom(c), engine.NoteInput{
		ContactID: req.ContactID,
		Title:     req.Title,
		Body:      req.Body,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *NoteHandler) GetNotes(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	notes, err := h.Engine.ListNotes(c.Request.Context(), ownerFrom(c), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *NoteHandler) DeleteNote(c *gin.Context) {
	if err := h.Engine.DeleteNote(c.Request.Context(), ownerFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Note deleted"})
}
