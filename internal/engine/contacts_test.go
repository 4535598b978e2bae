package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContact_NormalizesAndDefaults(t *testing.T) {
	e, _ := newTestEngine(t)

	contact, err := e.CreateContact(context.Background(), "owner-1", ContactInput{
		FirstName: "  John ",
		LastName:  "Doe",
		Email:     " John@Example.COM ",
		Phone:     "+1 (555) 123-4567",
	})
	require.NoError(t, err)

	assert.Equal(t, "John", contact.FirstName)
	require.NotNil(t, contact.NormalizedEmail)
	assert.Equal(t, "john@example.com", *contact.NormalizedEmail)
	assert.Equal(t, "15551234567", contact.NormalizedPhone)
	assert.Equal(t, "doe|example.com", contact.BlockingKey)
	assert.Equal(t, 5.0, contact.RelationshipStrength)
	assert.Equal(t, 30, contact.ContactFrequencyDays)
}

func TestCreateContact_DuplicateEmailConflicts(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{LastName: "Doe", Email: "john@example.com"})
	require.NoError(t, err)

	// Same normalized email in the same owner scope: the unique index is the
	// backstop, whatever the matcher said.
	_, err = e.CreateContact(ctx, "owner-1", ContactInput{LastName: "Doe", Email: "JOHN@example.com"})
	assert.True(t, errors.Is(err, ErrConflict))

	// A different owner is a different partition.
	_, err = e.CreateContact(ctx, "owner-2", ContactInput{LastName: "Doe", Email: "john@example.com"})
	assert.NoError(t, err)
}

func TestCreateContact_Validation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{LastName: "Doe", Email: "not-an-email"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = e.CreateContact(ctx, "owner-1", ContactInput{LastName: "Doe", ContactFrequencyDays: -3})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = e.CreateContact(ctx, "", ContactInput{LastName: "Doe"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestGetContact_CrossTenantLooksMissing(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	contact, err := e.CreateContact(ctx, "owner-1", ContactInput{LastName: "Doe"})
	require.NoError(t, err)

	_, err = e.GetContact(ctx, "owner-2", contact.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteContact_SoftDeleteExcludesFromReads(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	contact, err := e.CreateContact(ctx, "owner-1", ContactInput{LastName: "Doe", Email: "john@example.com"})
	require.NoError(t, err)
	require.NoError(t, e.DeleteContact(ctx, "owner-1", contact.ID))

	_, err = e.GetContact(ctx, "owner-1", contact.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	contacts, err := e.ListContacts(ctx, "owner-1", "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, contacts)

	result, err := e.CheckDuplicate(ctx, "owner-1", DuplicateQuery{Email: "john@example.com"})
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)

	err = e.DeleteContact(ctx, "owner-1", contact.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListContacts_SearchAndTagFilter(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "Ada", LastName: "Lovelace", Company: "Analytical Engines", Tags: []string{"vip", "mentor"},
	})
	require.NoError(t, err)
	_, err = e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "Grace", LastName: "Hopper", Company: "Navy",
	})
	require.NoError(t, err)

	byName, err := e.ListContacts(ctx, "owner-1", "lovelace", "", 0)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Ada", byName[0].FirstName)

	byTag, err := e.ListContacts(ctx, "owner-1", "", "vip", 0)
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "Ada", byTag[0].FirstName)

	_, err = e.ListContacts(ctx, "owner-1", "", "", 500)
	assert.True(t, errors.Is(err, ErrValidation))
}
