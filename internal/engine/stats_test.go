package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStats_HeadlineCounts(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()

	seedContact(t, e, "owner-1", "Alpha", 30, 45)
	fresh := seedContact(t, e, "owner-1", "Beta", 30, 5)
	seedContact(t, e, "owner-2", "Other", 30, 45)

	_, err := e.RecordInteraction(ctx, "owner-1", InteractionInput{
		Type: "email", Direction: "outbound", ContactIDs: []string{fresh.ID},
	})
	require.NoError(t, err)

	stats, err := e.GetStats(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalContacts)
	assert.Equal(t, int64(1), stats.InteractionsLast7Days)
	assert.Equal(t, int64(1), stats.OverdueFollowUps)
	// RecordInteraction already ran a generation pass for the fresh contact;
	// the overdue one has not been evaluated yet.
	_, err = e.GetRecommendations(ctx, "owner-1", "", 0)
	require.NoError(t, err)

	stats, err = e.GetStats(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActiveRecommendations)
	assert.Greater(t, stats.AverageStrength, 0.0)

	// An old interaction falls out of the 7-day window.
	clock.AdvanceDays(10)
	stats, err = e.GetStats(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.InteractionsLast7Days)

	_, err = e.GetStats(ctx, "")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestRecomputeEffectiveStrengths_RefreshOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	contact := seedContact(t, e, "owner-1", "Doe", 30, 45)

	updated, err := e.RecomputeEffectiveStrengths(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	reloaded, err := e.GetContact(ctx, "owner-1", contact.ID)
	require.NoError(t, err)
	// Raw strength is untouched; only the denormalized column moves.
	assert.Equal(t, contact.RelationshipStrength, reloaded.RelationshipStrength)
	assert.Less(t, reloaded.EffectiveStrength, reloaded.RelationshipStrength)

	// Nothing changed since, so the second sweep writes nothing.
	updated, err = e.RecomputeEffectiveStrengths(ctx, "owner-1")
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestIngestSignal_Validation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	contact := seedContact(t, e, "owner-1", "Doe", 30, 5)

	_, err := e.IngestSignal(ctx, "owner-1", SignalInput{ContactID: contact.ID, Kind: "", Severity: 0.5})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = e.IngestSignal(ctx, "owner-1", SignalInput{ContactID: contact.ID, Kind: "news", Severity: 1.5})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = e.IngestSignal(ctx, "owner-1", SignalInput{ContactID: "missing", Kind: "news", Severity: 0.5})
	assert.True(t, errors.Is(err, ErrNotFound))

	signal, err := e.IngestSignal(ctx, "owner-1", SignalInput{ContactID: contact.ID, Kind: " news ", Severity: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "news", signal.Kind)
	assert.Equal(t, e.now(), signal.DetectedAt)
}
