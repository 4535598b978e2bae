package api

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	"crm-intelligence/internal/engine"
	"crm-intelligence/internal/metrics"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	Engine *engine.Engine
}

func NewContactHandler(e *engine.Engine) *ContactHandler {
	return &ContactHandler{Engine: e}
}

type contactRequest struct {
	FirstName            string   `json:"first_name"`
	LastName             string   `json:"last_name"`
	Email                string   `json:"email"`
	Phone                string   `json:"phone"`
	Company              string   `json:"company"`
	Tags                 []string `json:"tags"`
	ContactFrequencyDays int      `json:"contact_frequency_days"`
}

func (r contactRequest) input() engine.ContactInput {
	return engine.ContactInput{
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Email:                r.Email,
		Phone:                r.Phone,
		Company:              r.Company,
		Tags:                 r.Tags,
		ContactFrequencyDays: r.ContactFrequencyDays,
	}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	contacts, err := h.Engine.ListContacts(c.Request.Context(), ownerFrom(c),
		c.Query("search"), c.Query("tag"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) GetContact(c *gin.Context) {
	contact, err := h.Engine.GetContact(c.Request.Context(), ownerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.Engine.CreateContact(c.Request.Context(), ownerFrom(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.Engine.UpdateContact(c.Request.Context(), ownerFrom(c), c.Param("id"), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	if err := h.Engine.DeleteContact(c.Request.Context(), ownerFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Contact deleted"})
}

// CheckDuplicate is the advisory pre-create check. No results is a normal
// 200 with an empty match list.
func (h *ContactHandler) CheckDuplicate(c *gin.Context) {
	result, err := h.Engine.CheckDuplicate(c.Request.Context(), ownerFrom(c), engine.DuplicateQuery{
		Email:     c.Query("email"),
		Phone:     c.Query("phone"),
		FirstName: c.Query("first_name"),
		LastName:  c.Query("last_name"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	outcome := "clean"
	if result.IsDuplicate {
		outcome = "duplicate"
	} else if len(result.Matches) > 0 {
		outcome = "potential"
	}
	metrics.DuplicateChecks.WithLabelValues(outcome).Inc()

	c.JSON(http.StatusOK, result)
}

// ExportContacts streams the whole scope as CSV, unpaginated. encoding/csv
// handles quoting, so commas in names or tags never corrupt rows.
func (h *ContactHandler) ExportContacts(c *gin.Context) {
	contacts, err := h.Engine.ExportContacts(c.Request.Context(), ownerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Name", "Email", "Phone", "Company", "Tags", "Strength", "Last Contact"})
	for _, contact := range contacts {
		email := ""
		if contact.NormalizedEmail != nil {
			email = *contact.NormalizedEmail
		}
		last := ""
		if contact.LastContactDate != nil {
			last = contact.LastContactDate.Format("2006-01-02")
		}
		w.Write([]string{
			contact.FullName(), email, contact.NormalizedPhone, contact.Company,
			contact.Tags, strconv.FormatFloat(contact.EffectiveStrength, 'f', 1, 64), last,
		})
	}
	w.Flush()

	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
