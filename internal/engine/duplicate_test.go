package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "5551234567", NormalizePhone("555.123.4567"))
	assert.Equal(t, "", NormalizePhone("ext"))
}

func TestBlockingKey(t *testing.T) {
	assert.Equal(t, "doe|example.com", BlockingKey("Doe", "john@example.com"))
	assert.Equal(t, "smi|", BlockingKey("Smithers", ""))
	assert.Equal(t, "|corp.io", BlockingKey("", "a@corp.io"))
	// The prefix counts runes, not bytes.
	assert.Equal(t, "žůž|", BlockingKey("Žůžo", ""))
}

func TestCheckDuplicate_ExactEmailIsCaseAndWhitespaceInsensitive(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "John", LastName: "Doe", Email: "john@example.com",
	})
	require.NoError(t, err)

	result, err := e.CheckDuplicate(ctx, "owner-1", DuplicateQuery{Email: " John@Example.com "})
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 1.0, result.Matches[0].Score)
	assert.Equal(t, MatchExact, result.Matches[0].Category)
	assert.Contains(t, result.Matches[0].MatchedFields, "email")
}

func TestCheckDuplicate_ExactPhoneShortCircuits(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "Jane", LastName: "Roe", Phone: "555 000 1111",
	})
	require.NoError(t, err)

	result, err := e.CheckDuplicate(ctx, "owner-1", DuplicateQuery{Phone: "(555) 000-1111", LastName: "Roe"})
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, MatchExact, result.Matches[0].Category)
}

func TestCheckDuplicate_FuzzyNameAndEmail(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "Jonathan", LastName: "Doe", Email: "jonathan.doe@example.com",
	})
	require.NoError(t, err)

	result, err := e.CheckDuplicate(ctx, "owner-1", DuplicateQuery{
		FirstName: "Jonathan", LastName: "Doe", Email: "jonathan.do@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)
	m := result.Matches[0]
	assert.NotEqual(t, MatchExact, m.Category)
	assert.GreaterOrEqual(t, m.Score, e.params.FuzzyThreshold)
	assert.Equal(t, MatchFuzzy, m.Category)
	assert.True(t, result.IsDuplicate)
}

func TestCheckDuplicate_NoMatchesIsNotAnError(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "Alice", LastName: "Zimmer", Email: "alice@wonder.org",
	})
	require.NoError(t, err)

	result, err := e.CheckDuplicate(ctx, "owner-1", DuplicateQuery{
		FirstName: "Bob", LastName: "Quincy", Email: "bob@elsewhere.net",
	})
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Empty(t, result.Matches)
}

func TestCheckDuplicate_ScopedToOwner(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "John", LastName: "Doe", Email: "john@example.com",
	})
	require.NoError(t, err)

	result, err := e.CheckDuplicate(ctx, "owner-2", DuplicateQuery{Email: "john@example.com"})
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Empty(t, result.Matches)
}

func TestCheckDuplicate_EmptyQueryRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CheckDuplicate(context.Background(), "owner-1", DuplicateQuery{})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCheckDuplicate_RankedByScoreThenRecency(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "Jon", LastName: "Doering", Email: "jon.doering@example.com",
	})
	require.NoError(t, err)
	_, err = e.CreateContact(ctx, "owner-1", ContactInput{
		FirstName: "John", LastName: "Doe", Email: "john.doe@example.com",
	})
	require.NoError(t, err)

	result, err := e.CheckDuplicate(ctx, "owner-1", DuplicateQuery{
		FirstName: "John", LastName: "Doe", Email: "john.doe@example.net",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(result.Matches), 1)
	for i := 1; i < len(result.Matches); i++ {
		assert.GreaterOrEqual(t, result.Matches[i-1].Score, result.Matches[i].Score)
	}
	assert.Equal(t, "John Doe", result.Matches[0].Name)
}

func TestSimilarityHelpers(t *testing.T) {
	assert.Equal(t, 1.0, nameSimilarity("john doe", "john doe"))
	assert.Greater(t, nameSimilarity("john doe", "doe john"), 0.6)
	assert.Less(t, nameSimilarity("john doe", "xavier quill"), 0.2)

	assert.Equal(t, 1.0, emailSimilarity("a@b.com", "a@b.com"))
	assert.Greater(t, emailSimilarity("john.doe@x.com", "john.do@x.com"), 0.8)

	assert.Equal(t, 1.0, phoneSimilarity("15551234567", "5551234567")) // shared 7+ suffix
	assert.Less(t, phoneSimilarity("15551234567", "15559876543"), 0.5)
}
