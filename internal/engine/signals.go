package engine

import (
	"context"
	"math"
	"strings"
	"time"

	"crm-intelligence/internal/models"

	"github.com/google/uuid"
)

// SignalInput is an external-signal trigger candidate from the enrichment
// collaborator (job change, birthday, company news). Opaque beyond kind and
// severity.
type SignalInput struct {
	ContactID  string
	Kind       string
	Severity   float64
	DetectedAt time.Time
}

// IngestSignal stores the candidate for the next generation pass.
func (e *Engine) IngestSignal(ctx context.Context, ownerID string, in SignalInput) (*models.ExternalSignal, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Kind) == "" {
		return nil, validationf("signal kind is required")
	}
	if math.IsNaN(in.Severity) || in.Severity < 0 || in.Severity > 1 {
		return nil, validationf("severity must be between 0 and 1")
	}
	if _, err := e.GetContact(ctx, ownerID, in.ContactID); err != nil {
		return nil, err
	}
	if in.DetectedAt.IsZero() {
		in.DetectedAt = e.now()
	}

	signal := models.ExternalSignal{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		ContactID:  in.ContactID,
		Kind:       strings.TrimSpace(in.Kind),
		Severity:   in.Severity,
		DetectedAt: in.DetectedAt,
	}
	if err := e.db.WithContext(ctx).Create(&signal).Error; err != nil {
		return nil, err
	}
	return &signal, nil
}
