package engine

import (
	"context"
	"time"

	"crm-intelligence/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InteractionInput records one touchpoint with one or more contacts.
type InteractionInput struct {
	Type       string
	Direction  string
	Subject    string
	Summary    string
	Source     string
	Sentiment  *float64
	OccurredAt time.Time
	ContactIDs []string
}

// RecordInteraction appends the interaction and cascades: each participant's
// strength is re-derived from stored facts and boosted by the interaction
// weight, then the recommendation triggers for those contacts are
// re-evaluated. The whole cascade is one transaction.
func (e *Engine) RecordInteraction(ctx context.Context, ownerID string, in InteractionInput) (*models.Interaction, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateInteractionType(in.Type); err != nil {
		return nil, err
	}
	if err := validateDirection(in.Direction); err != nil {
		return nil, err
	}
	if err := validateName("subject", in.Subject); err != nil {
		return nil, err
	}
	if len(in.ContactIDs) == 0 {
		return nil, validationf("at least one contact is required")
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = e.now()
	}

	interaction := models.Interaction{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Type:       in.Type,
		Direction:  in.Direction,
		Subject:    in.Subject,
		Summary:    in.Summary,
		Source:     in.Source,
		Sentiment:  in.Sentiment,
		OccurredAt: in.OccurredAt,
	}

	boost := interactionBoost(in.Type)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Every participant must exist in scope before anything is written.
		touched := make([]*models.Contact, 0, len(in.ContactIDs))
		for _, contactID := range in.ContactIDs {
			contact, err := touchContact(tx, e, ownerID, contactID, in.OccurredAt, boost)
			if err != nil {
				return err
			}
			touched = append(touched, contact)
		}

		if err := tx.Create(&interaction).Error; err != nil {
			return translateStoreErr(err, "interaction")
		}
		for _, contactID := range in.ContactIDs {
			p := models.InteractionParticipant{InteractionID: interaction.ID, ContactID: contactID}
			if err := tx.Create(&p).Error; err != nil {
				return translateStoreErr(err, "interaction participant")
			}
		}

		for _, contact := range touched {
			if err := e.evaluateContactTriggers(tx, contact, e.now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &interaction, nil
}

// ListInteractions returns a contact's interactions, newest first, optionally
// bounded by a date range.
func (e *Engine) ListInteractions(ctx context.Context, ownerID, contactID string, from, to *time.Time, limit int) ([]models.Interaction, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	if _, err := e.GetContact(ctx, ownerID, contactID); err != nil {
		return nil, err
	}

	tx := e.db.WithContext(ctx).
		Joins("JOIN interaction_participants ON interaction_participants.interaction_id = interactions.id").
		Where("interactions.owner_id = ? AND interaction_participants.contact_id = ?", ownerID, contactID)
	if from != nil {
		tx = tx.Where("interactions.occurred_at >= ?", *from)
	}
	if to != nil {
		tx = tx.Where("interactions.occurred_at <= ?", *to)
	}

	var interactions []models.Interaction
	err = tx.Order("interactions.occurred_at DESC, interactions.id DESC").
		Limit(limit).
		Find(&interactions).Error
	return interactions, err
}

// DeleteInteraction soft-deletes. Stored strength facts are not rewritten;
// the record simply stops feeding the timeline.
func (e *Engine) DeleteInteraction(ctx context.Context, ownerID, interactionID string) error {
	res := e.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, interactionID).
		Delete(&models.Interaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFoundf("interaction")
	}
	return nil
}
