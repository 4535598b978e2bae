package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"crm-intelligence/internal/models"
	dto "crm-intelligence/pkg/models"

	"gorm.io/gorm"
)

// Store-backed event sources. Each returns its events pre-normalized,
// pre-filtered and sorted (occurred_at desc, id desc), so the aggregator only
// merges.

type interactionSource struct {
	db *gorm.DB
}

func (s *interactionSource) Name() string { return "interactions" }

func (s *interactionSource) query(ctx context.Context, ownerID string, f EventFilter) (*gorm.DB, bool) {
	if len(f.Types) > 0 {
		any := false
		for _, t := range f.Types {
			if interactionTypes[t] {
				any = true
				break
			}
		}
		if !any {
			return nil, false
		}
	}

	tx := s.db.WithContext(ctx).Model(&models.Interaction{}).
		Where("interactions.owner_id = ?", ownerID)
	if len(f.Types) > 0 {
		tx = tx.Where("interactions.type IN ?", f.Types)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		tx = tx.Where("LOWER(interactions.subject) LIKE ? OR LOWER(interactions.summary) LIKE ?", like, like)
	}
	if f.ContactID != "" {
		tx = tx.Joins("JOIN interaction_participants ON interaction_participants.interaction_id = interactions.id").
			Where("interaction_participants.contact_id = ?", f.ContactID)
	}
	if f.Before != nil {
		tx = tx.Where("interactions.occurred_at < ? OR (interactions.occurred_at = ? AND interactions.id < ?)",
			f.Before.OccurredAt, f.Before.OccurredAt, f.Before.ID)
	}
	return tx, true
}

func (s *interactionSource) Fetch(ctx context.Context, ownerID string, f EventFilter, limit int) ([]dto.TimelineEvent, error) {
	tx, ok := s.query(ctx, ownerID, f)
	if !ok {
		return nil, nil
	}

	var interactions []models.Interaction
	err := tx.Order("interactions.occurred_at DESC, interactions.id DESC").
		Limit(limit).
		Find(&interactions).Error
	if err != nil {
		return nil, err
	}

	events := make([]dto.TimelineEvent, 0, len(interactions))
	for _, i := range interactions {
		meta := map[string]string{}
		if i.Source != "" {
			meta["source_tag"] = i.Source
		}
		if i.Sentiment != nil {
			meta["sentiment"] = fmt.Sprintf("%.2f", *i.Sentiment)
		}
		if len(meta) == 0 {
			meta = nil
		}
		events = append(events, dto.TimelineEvent{
			ID:         i.ID,
			Type:       i.Type,
			OccurredAt: i.OccurredAt,
			Title:      i.Subject,
			Snippet:    snippet(i.Summary),
			Direction:  i.Direction,
			Source:     s.Name(),
			Metadata:   meta,
		})
	}
	return events, nil
}

func (s *interactionSource) Count(ctx context.Context, ownerID string, f EventFilter) (int64, error) {
	f.Before = nil
	tx, ok := s.query(ctx, ownerID, f)
	if !ok {
		return 0, nil
	}
	var n int64
	err := tx.Count(&n).Error
	return n, err
}

type noteSource struct {
	db *gorm.DB
}

func (s *noteSource) Name() string { return "notes" }

func (s *noteSource) query(ctx context.Context, ownerID string, f EventFilter) (*gorm.DB, bool) {
	if !f.wantsType("note") {
		return nil, false
	}

	tx := s.db.WithContext(ctx).Model(&models.Note{}).Where("owner_id = ?", ownerID)
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", like, like)
	}
	if f.ContactID != "" {
		tx = tx.Where("contact_id = ?", f.ContactID)
	}
	if f.Before != nil {
		tx = tx.Where("created_at < ? OR (created_at = ? AND id < ?)",
			f.Before.OccurredAt, f.Before.OccurredAt, f.Before.ID)
	}
	return tx, true
}

func (s *noteSource) Fetch(ctx context.Context, ownerID string, f EventFilter, limit int) ([]dto.TimelineEvent, error) {
	tx, ok := s.query(ctx, ownerID, f)
	if !ok {
		return nil, nil
	}

	var notes []models.Note
	err := tx.Order("created_at DESC, id DESC").Limit(limit).Find(&notes).Error
	if err != nil {
		return nil, err
	}

	events := make([]dto.TimelineEvent, 0, len(notes))
	for _, n := range notes {
		events = append(events, dto.TimelineEvent{
			ID:         n.ID,
			Type:       "note",
			OccurredAt: n.CreatedAt,
			Title:      n.Title,
			Snippet:    snippet(n.Body),
			Source:     s.Name(),
		})
	}
	return events, nil
}

func (s *noteSource) Count(ctx context.Context, ownerID string, f EventFilter) (int64, error) {
	f.Before = nil
	tx, ok := s.query(ctx, ownerID, f)
	if !ok {
		return 0, nil
	}
	var n int64
	err := tx.Count(&n).Error
	return n, err
}

// snippet caps the preview text without splitting a multibyte rune, so the
// JSON payload is always valid UTF-8.
func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
