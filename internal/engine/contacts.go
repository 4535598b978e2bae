package engine

import (
	"context"
	"strings"
	"time"

	"crm-intelligence/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactInput is the mutable surface of a contact. Email and phone are
// normalized before they touch the store.
type ContactInput struct {
	FirstName            string
	LastName             string
	Email                string
	Phone                string
	Company              string
	Tags                 []string
	ContactFrequencyDays int
}

func (in *ContactInput) validate() error {
	if err := validateName("first name", in.FirstName); err != nil {
		return err
	}
	if err := validateName("last name", in.LastName); err != nil {
		return err
	}
	if err := validateName("company", in.Company); err != nil {
		return err
	}
	in.Email = NormalizeEmail(in.Email)
	in.Phone = NormalizePhone(in.Phone)
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if in.ContactFrequencyDays != 0 {
		if err := validateFrequency(in.ContactFrequencyDays); err != nil {
			return err
		}
	}
	return nil
}

// CreateContact inserts a new contact in the owner's scope. The duplicate
// matcher is advisory and is expected to have been consulted by the caller;
// the (owner, email) unique index is what actually resolves a race, and the
// loser surfaces as ErrConflict.
func (e *Engine) CreateContact(ctx context.Context, ownerID string, in ContactInput) (*models.Contact, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	contact := models.Contact{
		ID:                   uuid.NewString(),
		OwnerID:              ownerID,
		FirstName:            strings.TrimSpace(in.FirstName),
		LastName:             strings.TrimSpace(in.LastName),
		NormalizedPhone:      in.Phone,
		Company:              strings.TrimSpace(in.Company),
		Tags:                 strings.Join(in.Tags, ","),
		RelationshipStrength: 5,
		EffectiveStrength:    5,
		ContactFrequencyDays: 30,
		BlockingKey:          BlockingKey(in.LastName, in.Email),
	}
	if in.Email != "" {
		contact.NormalizedEmail = &in.Email
	}
	if in.ContactFrequencyDays != 0 {
		contact.ContactFrequencyDays = in.ContactFrequencyDays
	}

	if err := e.db.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, translateStoreErr(err, "contact")
	}
	return &contact, nil
}

// GetContact fetches one contact in scope. Cross-tenant ids are
// indistinguishable from missing ones.
func (e *Engine) GetContact(ctx context.Context, ownerID, contactID string) (*models.Contact, error) {
	var contact models.Contact
	err := e.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, contactID).
		First(&contact).Error
	if err != nil {
		return nil, translateStoreErr(err, "contact")
	}
	return &contact, nil
}

// ListContacts returns the owner's contacts, optionally filtered by a search
// term (name, email, company) or a tag.
func (e *Engine) ListContacts(ctx context.Context, ownerID, search, tag string, limit int) ([]models.Contact, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	tx := e.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		tx = tx.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR normalized_email LIKE ? OR LOWER(company) LIKE ?",
			like, like, like, like)
	}
	if tag != "" {
		tx = tx.Where("tags LIKE ?", "%"+tag+"%")
	}

	var contacts []models.Contact
	err = tx.Order("updated_at DESC").Limit(limit).Find(&contacts).Error
	return contacts, err
}

// ExportContacts returns every contact in scope, unpaginated. Soft-deleted
// rows stay excluded by the store default.
func (e *Engine) ExportContacts(ctx context.Context, ownerID string) ([]models.Contact, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	var contacts []models.Contact
	err := e.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("last_name, first_name").
		Find(&contacts).Error
	return contacts, err
}

// UpdateContact applies a partial update and refreshes derived fields.
func (e *Engine) UpdateContact(ctx context.Context, ownerID, contactID string, in ContactInput) (*models.Contact, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	contact, err := e.GetContact(ctx, ownerID, contactID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != "" {
		contact.FirstName = strings.TrimSpace(in.FirstName)
	}
	if in.LastName != "" {
		contact.LastName = strings.TrimSpace(in.LastName)
	}
	if in.Company != "" {
		contact.Company = strings.TrimSpace(in.Company)
	}
	if in.Email != "" {
		contact.NormalizedEmail = &in.Email
	}
	if in.Phone != "" {
		contact.NormalizedPhone = in.Phone
	}
	if in.Tags != nil {
		contact.Tags = strings.Join(in.Tags, ",")
	}
	if in.ContactFrequencyDays != 0 {
		contact.ContactFrequencyDays = in.ContactFrequencyDays
	}
	email := ""
	if contact.NormalizedEmail != nil {
		email = *contact.NormalizedEmail
	}
	contact.BlockingKey = BlockingKey(contact.LastName, email)

	if err := e.db.WithContext(ctx).Save(contact).Error; err != nil {
		return nil, translateStoreErr(err, "contact")
	}
	return contact, nil
}

// DeleteContact soft-deletes; history stays intact and every default query
// excludes the row from here on. Live recommendations must not outlive their
// contact: generation passes only walk live contacts, so they are expired
// here, in the same transaction.
func (e *Engine) DeleteContact(ctx context.Context, ownerID, contactID string) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("owner_id = ? AND id = ?", ownerID, contactID).
			Delete(&models.Contact{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundf("contact")
		}
		return tx.Model(&models.Recommendation{}).
			Where("owner_id = ? AND contact_id = ? AND state IN ?",
				ownerID, contactID, []string{models.RecStateActive, models.RecStateSnoozed}).
			Updates(map[string]interface{}{
				"state":         models.RecStateExpired,
				"active_key":    nil,
				"snoozed_until": nil,
			}).Error
	})
}

// touchContact is the shared strength cascade: realize decay at the given
// instant, add the boost, advance the last contact date. Runs inside the
// caller's transaction so concurrent recordings are a single atomic
// read-modify-write against the store.
func touchContact(tx *gorm.DB, e *Engine, ownerID, contactID string, at time.Time, boost float64) (*models.Contact, error) {
	var contact models.Contact
	err := tx.Where("owner_id = ? AND id = ?", ownerID, contactID).First(&contact).Error
	if err != nil {
		return nil, translateStoreErr(err, "contact")
	}

	raw, err := e.boostedStrength(contact.RelationshipStrength, contact.LastContactDate, contact.ContactFrequencyDays, at, boost)
	if err != nil {
		return nil, err
	}

	contact.RelationshipStrength = raw
	contact.EffectiveStrength = raw
	if contact.LastContactDate == nil || at.After(*contact.LastContactDate) {
		t := at
		contact.LastContactDate = &t
	}
	if err := tx.Save(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}
