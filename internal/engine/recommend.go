package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"crm-intelligence/internal/metrics"
	"crm-intelligence/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Trigger types. The set is closed at any given version; adding one means
// teaching evaluateContactTriggers about it.
const (
	TriggerOverdue        = "overdue"
	TriggerExternalSignal = "external-signal"
	TriggerGeneral        = "general"
)

// firingTrigger is one condition that currently holds for a contact.
type firingTrigger struct {
	trigger    string
	severity   float64
	reason     string
	detectedAt time.Time
}

// urgency combines trigger severity, the strength deficit (weaker
// relationships are more urgent) and how recently the trigger was detected.
func (e *Engine) urgency(severity, effectiveStrength float64, detectedAt, now time.Time) float64 {
	deficit := (MaxStrength - effectiveStrength) / (MaxStrength - MinStrength)
	ageDays := now.Sub(detectedAt).Hours() / 24
	recency := math.Max(0, 1-ageDays/14)
	u := e.params.SeverityWeight*severity + e.params.StrengthWeight*deficit + e.params.RecencyWeight*recency
	return math.Max(0, math.Min(1, u))
}

func activeKey(contactID, trigger string) string {
	return contactID + ":" + trigger
}

// evaluateContactTriggers is the generation pass for a single contact, run
// inside the caller's transaction. It applies the lazy state transitions
// first (snooze expiry, trigger-gone expiry), then creates an Active
// recommendation for each firing trigger that has no live instance. Creation
// races resolve at the active_key unique index: the loser treats the
// violation as "already exists".
func (e *Engine) evaluateContactTriggers(tx *gorm.DB, contact *models.Contact, now time.Time) error {
	firing, err := e.collectTriggers(tx, contact, now)
	if err != nil {
		return err
	}
	firingByType := make(map[string]firingTrigger, len(firing))
	for _, f := range firing {
		firingByType[f.trigger] = f
	}

	strength, err := e.effectiveStrengthOf(contact.RelationshipStrength, contact.LastContactDate, contact.ContactFrequencyDays, now)
	if err != nil {
		return err
	}

	var live []models.Recommendation
	err = tx.Where("owner_id = ? AND contact_id = ? AND state IN ?",
		contact.OwnerID, contact.ID, []string{models.RecStateActive, models.RecStateSnoozed}).
		Find(&live).Error
	if err != nil {
		return err
	}

	for i := range live {
		rec := &live[i]

		// Snoozed past its boundary wakes up on this read.
		if rec.State == models.RecStateSnoozed && rec.SnoozedUntil != nil && !now.Before(*rec.SnoozedUntil) {
			rec.State = models.RecStateActive
			rec.SnoozedUntil = nil
		}

		f, stillFiring := firingByType[rec.TriggerType]
		if !stillFiring {
			rec.State = models.RecStateExpired
			rec.ActiveKey = nil
			rec.SnoozedUntil = nil
			metrics.RecommendationsExpired.Inc()
		} else {
			rec.Urgency = e.urgency(f.severity, strength, rec.CreatedAt, now)
			delete(firingByType, rec.TriggerType)
		}
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
	}

	for _, f := range firingByType {
		key := activeKey(contact.ID, f.trigger)
		rec := models.Recommendation{
			ID:          uuid.NewString(),
			OwnerID:     contact.OwnerID,
			ContactID:   contact.ID,
			TriggerType: f.trigger,
			Urgency:     e.urgency(f.severity, strength, f.detectedAt, now),
			State:       models.RecStateActive,
			Reason:      f.reason,
			ActiveKey:   &key,
			// Stamped from the engine clock so recency math stays consistent
			// with the evaluation instant.
			CreatedAt: now,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
		metrics.RecommendationsGenerated.WithLabelValues(f.trigger).Inc()
	}
	return nil
}

// collectTriggers evaluates which trigger conditions currently hold. External
// signals are consumed here so one enrichment event yields one generation.
func (e *Engine) collectTriggers(tx *gorm.DB, contact *models.Contact, now time.Time) ([]firingTrigger, error) {
	var firing []firingTrigger

	f := e.projectFollowUp(contact, now)
	if f.IsPastDue {
		overdueDays := now.Sub(f.EffectiveDueDate).Hours() / 24
		severity := math.Min(1, overdueDays/float64(contact.ContactFrequencyDays))
		firing = append(firing, firingTrigger{
			trigger:    TriggerOverdue,
			severity:   severity,
			reason:     fmt.Sprintf("no contact for %d days (cadence %d)", int(overdueDays)+contact.ContactFrequencyDays, contact.ContactFrequencyDays),
			detectedAt: now,
		})
	}

	var signals []models.ExternalSignal
	err := tx.Where("owner_id = ? AND contact_id = ? AND consumed = ?", contact.OwnerID, contact.ID, false).
		Find(&signals).Error
	if err != nil {
		return nil, err
	}
	if len(signals) > 0 {
		best := signals[0]
		for _, s := range signals[1:] {
			if s.Severity > best.Severity {
				best = s
			}
		}
		firing = append(firing, firingTrigger{
			trigger:    TriggerExternalSignal,
			severity:   math.Max(0, math.Min(1, best.Severity)),
			reason:     best.Kind,
			detectedAt: best.DetectedAt,
		})
		ids := make([]string, len(signals))
		for i, s := range signals {
			ids[i] = s.ID
		}
		if err := tx.Model(&models.ExternalSignal{}).Where("id IN ?", ids).Update("consumed", true).Error; err != nil {
			return nil, err
		}
	} else {
		// Consuming a signal must not expire its live recommendation on the
		// next pass. The trigger stays alive until the contact is actioned:
		// a touchpoint recorded after the recommendation was created.
		var liveSignalRec models.Recommendation
		err := tx.Where("owner_id = ? AND contact_id = ? AND trigger_type = ? AND state IN ?",
			contact.OwnerID, contact.ID, TriggerExternalSignal,
			[]string{models.RecStateActive, models.RecStateSnoozed}).
			First(&liveSignalRec).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err == nil {
			actioned := contact.LastContactDate != nil && contact.LastContactDate.After(liveSignalRec.CreatedAt)
			if !actioned {
				firing = append(firing, firingTrigger{
					trigger:    TriggerExternalSignal,
					severity:   0.5,
					reason:     liveSignalRec.Reason,
					detectedAt: liveSignalRec.CreatedAt,
				})
			}
		}
	}

	strength, err := e.effectiveStrengthOf(contact.RelationshipStrength, contact.LastContactDate, contact.ContactFrequencyDays, now)
	if err != nil {
		return nil, err
	}
	if strength < 4 {
		firing = append(firing, firingTrigger{
			trigger:    TriggerGeneral,
			severity:   math.Min(1, (4-strength)/3),
			reason:     "relationship strength is fading",
			detectedAt: now,
		})
	}

	return firing, nil
}

// GenerateRecommendations runs the generation pass across every contact in
// the owner's scope. Idempotent: a second pass with unchanged inputs creates
// nothing and expires nothing new.
func (e *Engine) GenerateRecommendations(ctx context.Context, ownerID string) error {
	if err := validateOwner(ownerID); err != nil {
		return err
	}
	now := e.now()

	var contacts []models.Contact
	if err := e.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&contacts).Error; err != nil {
		return err
	}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range contacts {
			if err := e.evaluateContactTriggers(tx, &contacts[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRecommendations re-evaluates triggers (evaluate-on-read, no background
// timer) and returns Active recommendations ranked by urgency. Snoozed rows
// stay hidden until their boundary passes. period filters by creation
// recency: day, week, month, or empty for all.
func (e *Engine) GetRecommendations(ctx context.Context, ownerID, period string, limit int) ([]models.Recommendation, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	var since *time.Time
	switch period {
	case "":
	case "day", "week", "month":
		days := map[string]int{"day": 1, "week": 7, "month": 30}[period]
		t := e.now().AddDate(0, 0, -days)
		since = &t
	default:
		return nil, validationf("unknown period %q", period)
	}

	if err := e.GenerateRecommendations(ctx, ownerID); err != nil {
		return nil, err
	}

	tx := e.db.WithContext(ctx).
		Where("owner_id = ? AND state = ?", ownerID, models.RecStateActive)
	if since != nil {
		tx = tx.Where("created_at >= ?", *since)
	}

	var recs []models.Recommendation
	err = tx.Order("urgency DESC, created_at DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

func (e *Engine) getRecommendation(ctx context.Context, ownerID, recID string) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := e.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, recID).
		First(&rec).Error
	if err != nil {
		return nil, translateStoreErr(err, "recommendation")
	}
	return &rec, nil
}

// DismissRecommendation is terminal; the slot frees up for a future
// generation pass once the trigger recurs.
func (e *Engine) DismissRecommendation(ctx context.Context, ownerID, recID string) error {
	rec, err := e.getRecommendation(ctx, ownerID, recID)
	if err != nil {
		return err
	}
	if rec.State != models.RecStateActive && rec.State != models.RecStateSnoozed {
		return validationf("recommendation is already %s", rec.State)
	}
	return e.db.WithContext(ctx).Model(rec).Updates(map[string]interface{}{
		"state":         models.RecStateDismissed,
		"active_key":    nil,
		"snoozed_until": nil,
	}).Error
}

// SnoozeRecommendation hides the recommendation until now + days. It stays
// non-terminal, so the single-instance invariant still holds for its key.
func (e *Engine) SnoozeRecommendation(ctx context.Context, ownerID, recID string, days int) error {
	if err := validateDays(days); err != nil {
		return err
	}
	rec, err := e.getRecommendation(ctx, ownerID, recID)
	if err != nil {
		return err
	}
	if rec.State != models.RecStateActive && rec.State != models.RecStateSnoozed {
		return validationf("recommendation is already %s", rec.State)
	}
	until := e.now().AddDate(0, 0, days)
	return e.db.WithContext(ctx).Model(rec).Updates(map[string]interface{}{
		"state":         models.RecStateSnoozed,
		"snoozed_until": until,
	}).Error
}

// FeedbackRecommendation records the signal without touching the state
// machine; it only informs downstream ranking.
func (e *Engine) FeedbackRecommendation(ctx context.Context, ownerID, recID string, isHelpful bool) error {
	rec, err := e.getRecommendation(ctx, ownerID, recID)
	if err != nil {
		return err
	}
	return e.db.WithContext(ctx).Model(rec).Update("helpful_feedback", isHelpful).Error
}
