package engine

import (
	"context"
	"strings"

	"crm-intelligence/internal/models"

	"github.com/google/uuid"
)

type NoteInput struct {
	ContactID string
	Title     string
	Body      string
}

func (e *Engine) CreateNote(ctx context.Context, ownerID string, in NoteInput) (*models.Note, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateName("title", in.Title); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Body) == "" {
		return nil, validationf("note needs a title or a body")
	}
	if _, err := e.GetContact(ctx, ownerID, in.ContactID); err != nil {
		return nil, err
	}

	note := models.Note{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ContactID: in.ContactID,
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
	}
	if err := e.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (e *Engine) ListNotes(ctx context.Context, ownerID, contactID string, limit int) ([]models.Note, error) {
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

	var notes []models.Note
	err = e.db.WithContext(ctx).
		Where("owner_id = ? AND contact_id = ?", ownerID, contactID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	return notes, err
}

func (e *Engine) DeleteNote(ctx context.Context, ownerID, noteID string) error {
	res := e.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, noteID).
		Delete(&models.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFoundf("note")
	}
	return nil
}
