package engine

import (
	"context"

	"crm-intelligence/internal/models"
	dto "crm-intelligence/pkg/models"
)

// GetStats aggregates the owner's headline counts. Averages use the
// denormalized effective strength; the sweep keeps it honest for contacts
// that are never read individually.
func (e *Engine) GetStats(ctx context.Context, ownerID string) (dto.Stats, error) {
	var stats dto.Stats
	if err := validateOwner(ownerID); err != nil {
		return stats, err
	}
	now := e.now()

	db := e.db.WithContext(ctx)
	if err := db.Model(&models.Contact{}).Where("owner_id = ?", ownerID).
		Count(&stats.TotalContacts).Error; err != nil {
		return stats, err
	}

	weekAgo := now.AddDate(0, 0, -7)
	if err := db.Model(&models.Interaction{}).
		Where("owner_id = ? AND occurred_at >= ?", ownerID, weekAgo).
		Count(&stats.InteractionsLast7Days).Error; err != nil {
		return stats, err
	}

	if err := db.Model(&models.Recommendation{}).
		Where("owner_id = ? AND state = ?", ownerID, models.RecStateActive).
		Count(&stats.ActiveRecommendations).Error; err != nil {
		return stats, err
	}

	var contacts []models.Contact
	if err := db.Where("owner_id = ?", ownerID).Find(&contacts).Error; err != nil {
		return stats, err
	}
	var sum float64
	for i := range contacts {
		f := e.projectFollowUp(&contacts[i], now)
		if f.IsPastDue {
			stats.OverdueFollowUps++
		}
		sum += f.RelationshipStrength
	}
	if len(contacts) > 0 {
		stats.AverageStrength = sum / float64(len(contacts))
	}
	return stats, nil
}

// RecomputeEffectiveStrengths persists the current effective strength for
// every contact in scope (all owners when ownerID is empty). Purely a
// reporting refresh: the stored raw strength and last contact date are left
// alone, so running it any number of times changes nothing further.
func (e *Engine) RecomputeEffectiveStrengths(ctx context.Context, ownerID string) (int, error) {
	now := e.now()
	tx := e.db.WithContext(ctx)
	if ownerID != "" {
		tx = tx.Where("owner_id = ?", ownerID)
	}

	var contacts []models.Contact
	if err := tx.Find(&contacts).Error; err != nil {
		return 0, err
	}

	updated := 0
	for i := range contacts {
		c := &contacts[i]
		effective, err := e.effectiveStrengthOf(c.RelationshipStrength, c.LastContactDate, c.ContactFrequencyDays, now)
		if err != nil {
			return updated, err
		}
		if effective == c.EffectiveStrength {
			continue
		}
		err = e.db.WithContext(ctx).Model(&models.Contact{}).
			Where("id = ?", c.ID).
			Update("effective_strength", effective).Error
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
