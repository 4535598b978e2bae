package engine

import (
	"context"
	"sort"
	"time"

	"crm-intelligence/internal/models"
	dto "crm-intelligence/pkg/models"

	"gorm.io/gorm"
)

// projectFollowUp computes the follow-up view for one contact. FollowUp is
// never stored; it is a pure function of the contact row and the clock. An
// expired snooze is ignored here and cleared by the caller.
func (e *Engine) projectFollowUp(c *models.Contact, now time.Time) dto.FollowUp {
	baseline := c.CreatedAt
	if c.LastContactDate != nil {
		baseline = *c.LastContactDate
	}
	due := baseline.AddDate(0, 0, c.ContactFrequencyDays)

	effective := due
	var snooze *time.Time
	if c.FollowupSnoozedUntil != nil && now.Before(*c.FollowupSnoozedUntil) {
		effective = *c.FollowupSnoozedUntil
		snooze = c.FollowupSnoozedUntil
	}

	strength, err := e.effectiveStrengthOf(c.RelationshipStrength, c.LastContactDate, c.ContactFrequencyDays, now)
	if err != nil {
		strength = clampStrength(c.RelationshipStrength)
	}

	return dto.FollowUp{
		ContactID:            c.ID,
		ContactName:          c.FullName(),
		DueDate:              due,
		EffectiveDueDate:     effective,
		IsPastDue:            now.After(effective),
		SnoozedUntil:         snooze,
		LastContactDate:      c.LastContactDate,
		ContactFrequencyDays: c.ContactFrequencyDays,
		RelationshipStrength: strength,
	}
}

// GetPendingFollowups lists follow-up state across the owner's contacts,
// ordered overdue-first then by soonest effective due date. Snooze overrides
// that have passed are cleared here, lazily, before projection.
func (e *Engine) GetPendingFollowups(ctx context.Context, ownerID string, limit int, includeOverdue bool) ([]dto.FollowUp, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	now := e.now()

	if err := e.clearExpiredSnoozes(ctx, ownerID, now); err != nil {
		return nil, err
	}

	var contacts []models.Contact
	if err := e.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&contacts).Error; err != nil {
		return nil, err
	}

	followups := make([]dto.FollowUp, 0, len(contacts))
	for i := range contacts {
		f := e.projectFollowUp(&contacts[i], now)
		if f.IsPastDue && !includeOverdue {
			continue
		}
		followups = append(followups, f)
	}

	sort.Slice(followups, func(i, j int) bool {
		if followups[i].IsPastDue != followups[j].IsPastDue {
			return followups[i].IsPastDue
		}
		return followups[i].EffectiveDueDate.Before(followups[j].EffectiveDueDate)
	})

	if len(followups) > limit {
		followups = followups[:limit]
	}
	return followups, nil
}

func (e *Engine) clearExpiredSnoozes(ctx context.Context, ownerID string, now time.Time) error {
	return e.db.WithContext(ctx).Model(&models.Contact{}).
		Where("owner_id = ? AND followup_snoozed_until IS NOT NULL AND followup_snoozed_until <= ?", ownerID, now).
		Update("followup_snoozed_until", nil).Error
}

// MarkFollowupDone resets the contact's last contact date (to the given date
// or now), boosts strength accordingly, clears any snooze and recomputes the
// due state. The overdue trigger is re-evaluated so a matching recommendation
// expires immediately rather than on the next read.
func (e *Engine) MarkFollowupDone(ctx context.Context, ownerID, contactID string, date *time.Time) (dto.FollowUp, error) {
	if err := validateOwner(ownerID); err != nil {
		return dto.FollowUp{}, err
	}
	at := e.now()
	if date != nil {
		if date.After(e.now()) {
			return dto.FollowUp{}, validationf("completion date cannot be in the future")
		}
		at = *date
	}

	var followup dto.FollowUp
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contact, err := touchContact(tx, e, ownerID, contactID, at, e.params.FollowupDoneBoost)
		if err != nil {
			return err
		}
		if contact.FollowupSnoozedUntil != nil {
			contact.FollowupSnoozedUntil = nil
			if err := tx.Model(contact).Update("followup_snoozed_until", nil).Error; err != nil {
				return err
			}
		}
		if err := e.evaluateContactTriggers(tx, contact, e.now()); err != nil {
			return err
		}
		followup = e.projectFollowUp(contact, e.now())
		return nil
	})
	return followup, err
}

// SnoozeFollowup pushes the effective due date to now + days without touching
// the last contact date or the cadence.
func (e *Engine) SnoozeFollowup(ctx context.Context, ownerID, contactID string, days int) (dto.FollowUp, error) {
	if err := validateOwner(ownerID); err != nil {
		return dto.FollowUp{}, err
	}
	if err := validateDays(days); err != nil {
		return dto.FollowUp{}, err
	}

	contact, err := e.GetContact(ctx, ownerID, contactID)
	if err != nil {
		return dto.FollowUp{}, err
	}

	until := e.now().AddDate(0, 0, days)
	contact.FollowupSnoozedUntil = &until
	if err := e.db.WithContext(ctx).Model(contact).Update("followup_snoozed_until", until).Error; err != nil {
		return dto.FollowUp{}, err
	}
	return e.projectFollowUp(contact, e.now()), nil
}
