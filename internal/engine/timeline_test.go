package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	dto "crm-intelligence/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a fixed event slice the way a real provider would:
// filtered, sorted descending, strictly older than the cursor.
type fakeSource struct {
	name   string
	events []dto.TimelineEvent
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(_ context.Context, _ string, f EventFilter, limit int) ([]dto.TimelineEvent, error) {
	var out []dto.TimelineEvent
	for _, ev := range s.events {
		if !f.wantsType(ev.Type) {
			continue
		}
		if f.Before != nil {
			boundary := dto.TimelineEvent{ID: f.Before.ID, OccurredAt: f.Before.OccurredAt}
			if !eventOlder(ev, boundary) {
				continue
			}
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return eventOlder(out[j], out[i]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeSource) Count(_ context.Context, _ string, f EventFilter) (int64, error) {
	var n int64
	for _, ev := range s.events {
		if f.wantsType(ev.Type) {
			n++
		}
	}
	return n, nil
}

func makeEvents(prefix, eventType string, base time.Time, count int) []dto.TimelineEvent {
	events := make([]dto.TimelineEvent, count)
	for i := 0; i < count; i++ {
		events[i] = dto.TimelineEvent{
			ID:         fmt.Sprintf("%s-%03d", prefix, i),
			Type:       eventType,
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
			Title:      prefix,
			Source:     prefix,
		}
	}
	return events
}

func newTimelineEngine(t *testing.T) *Engine {
	e, _ := newTestEngine(t)
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	e.SetSources(
		&fakeSource{name: "email", events: makeEvents("email", "email", base, 12)},
		&fakeSource{name: "calls", events: makeEvents("call", "call", base.Add(20*time.Minute), 7)},
		&fakeSource{name: "notes", events: makeEvents("note", "note", base.Add(40*time.Minute), 9)},
	)
	return e
}

func TestGetTimeline_MergedDescending(t *testing.T) {
	e := newTimelineEngine(t)

	page, err := e.GetTimeline(context.Background(), "owner-1", TimelineQuery{Limit: 100})
	require.NoError(t, err)
	require.Len(t, page.Data, 28)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, int64(28), page.Total)

	for i := 1; i < len(page.Data); i++ {
		prev, cur := page.Data[i-1], page.Data[i]
		ok := cur.OccurredAt.Before(prev.OccurredAt) ||
			(cur.OccurredAt.Equal(prev.OccurredAt) && cur.ID < prev.ID)
		assert.True(t, ok, "events out of order at %d", i)
	}
}

func TestGetTimeline_PaginationIsGaplessAndDuplicateFree(t *testing.T) {
	e := newTimelineEngine(t)
	ctx := context.Background()

	full, err := e.GetTimeline(ctx, "owner-1", TimelineQuery{Limit: 100})
	require.NoError(t, err)

	for _, limit := range []int{1, 3, 5, 20} {
		var collected []dto.TimelineEvent
		cursor := ""
		for {
			page, err := e.GetTimeline(ctx, "owner-1", TimelineQuery{Limit: limit, Cursor: cursor})
			require.NoError(t, err)
			collected = append(collected, page.Data...)
			if !page.HasMore {
				break
			}
			require.NotEmpty(t, page.NextCursor)
			cursor = page.NextCursor
		}
		require.Len(t, collected, len(full.Data), "limit %d", limit)
		for i := range full.Data {
			assert.Equal(t, full.Data[i].ID, collected[i].ID, "limit %d position %d", limit, i)
		}
	}
}

func TestGetTimeline_StableUnderInsertsBetweenPages(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{name: "email", events: makeEvents("email", "email", base, 10)}
	e.SetSources(src)

	first, err := e.GetTimeline(ctx, "owner-1", TimelineQuery{Limit: 4})
	require.NoError(t, err)
	require.Len(t, first.Data, 4)
	require.True(t, first.HasMore)

	// A new event arrives at the top of the feed between page fetches.
	src.events = append(src.events, dto.TimelineEvent{
		ID: "email-new", Type: "email", OccurredAt: base.Add(100 * time.Hour), Source: "email",
	})

	second, err := e.GetTimeline(ctx, "owner-1", TimelineQuery{Limit: 100, Cursor: first.NextCursor})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, ev := range first.Data {
		seen[ev.ID] = true
	}
	for _, ev := range second.Data {
		assert.False(t, seen[ev.ID], "event %s duplicated across pages", ev.ID)
		seen[ev.ID] = true
	}
	// Nothing that existed before the insert was skipped.
	assert.Len(t, seen, 10)
}

func TestGetTimeline_TypeFilterAppliedPerSource(t *testing.T) {
	e := newTimelineEngine(t)

	page, err := e.GetTimeline(context.Background(), "owner-1", TimelineQuery{
		Types: []string{"note"}, Limit: 100,
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 9)
	for _, ev := range page.Data {
		assert.Equal(t, "note", ev.Type)
	}
	assert.Equal(t, int64(9), page.Total)
}

func TestGetTimeline_Validation(t *testing.T) {
	e := newTimelineEngine(t)
	ctx := context.Background()

	_, err := e.GetTimeline(ctx, "owner-1", TimelineQuery{Limit: 101})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = e.GetTimeline(ctx, "owner-1", TimelineQuery{Cursor: "not base64!"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 5, 3, 9, 30, 0, 123456789, time.UTC)
	encoded := EncodeCursor(Cursor{OccurredAt: at, ID: "ev-42"})

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.OccurredAt.Equal(at))
	assert.Equal(t, "ev-42", decoded.ID)
}

func TestGetTimeline_StoreBackedSources(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	contact := seedContact(t, e, "owner-1", "Doe", 30, 5)

	for i := 0; i < 3; i++ {
		clock.Advance(time.Hour)
		_, err := e.RecordInteraction(ctx, "owner-1", InteractionInput{
			Type: "email", Direction: "outbound", Subject: fmt.Sprintf("thread %d", i),
			ContactIDs: []string{contact.ID},
		})
		require.NoError(t, err)
	}
	_, err := e.CreateNote(ctx, "owner-1", NoteInput{ContactID: contact.ID, Title: "intro", Body: "met at conf"})
	require.NoError(t, err)

	page, err := e.GetTimeline(ctx, "owner-1", TimelineQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Data, 4)
	assert.Equal(t, int64(4), page.Total)

	// Another owner sees nothing.
	other, err := e.GetTimeline(ctx, "owner-2", TimelineQuery{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, other.Data)

	// Search narrows inside the source.
	searched, err := e.GetTimeline(ctx, "owner-1", TimelineQuery{Limit: 10, Search: "thread 1"})
	require.NoError(t, err)
	require.Len(t, searched.Data, 1)
	assert.Equal(t, "thread 1", searched.Data[0].Title)
}
