package engine

import (
	"container/heap"
	"context"
	"encoding/base64"
	"strings"
	"time"

	dto "crm-intelligence/pkg/models"
)

// Cursor is a strict ordering boundary on (occurredAt, id). Pages resume
// strictly after it, which keeps pagination gapless and duplicate-free even
// while new events are being inserted.
type Cursor struct {
	OccurredAt time.Time
	ID         string
}

func EncodeCursor(c Cursor) string {
	raw := c.OccurredAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (*Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, validationf("malformed cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, validationf("malformed cursor")
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, validationf("malformed cursor")
	}
	return &Cursor{OccurredAt: at, ID: parts[1]}, nil
}

// EventFilter is applied inside each source, before the merge, so filtered
// events are never fetched only to be discarded.
type EventFilter struct {
	Types     []string
	Search    string
	ContactID string
	Before    *Cursor
}

func (f EventFilter) wantsType(t string) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, want := range f.Types {
		if want == t {
			return true
		}
	}
	return false
}

// EventSource supplies one pre-normalized, pre-filtered event sequence,
// sorted by (occurredAt desc, id desc) and strictly older than the cursor.
type EventSource interface {
	Name() string
	Fetch(ctx context.Context, ownerID string, filter EventFilter, limit int) ([]dto.TimelineEvent, error)
	Count(ctx context.Context, ownerID string, filter EventFilter) (int64, error)
}

type TimelineQuery struct {
	Types     []string
	Search    string
	ContactID string
	Cursor    string
	Limit     int
}

// GetTimeline merges the per-source sequences into one page. Stateless: the
// same (sources, filter, cursor, limit) always yields the same page. HasMore
// comes from overfetching one extra event; Total is the approximate sum of
// per-source counts.
func (e *Engine) GetTimeline(ctx context.Context, ownerID string, q TimelineQuery) (dto.TimelinePage, error) {
	page := dto.TimelinePage{Data: []dto.TimelineEvent{}}
	if err := validateOwner(ownerID); err != nil {
		return page, err
	}
	limit, err := normalizeLimit(q.Limit)
	if err != nil {
		return page, err
	}

	filter := EventFilter{Types: q.Types, Search: q.Search, ContactID: q.ContactID}
	if q.Cursor != "" {
		cursor, err := DecodeCursor(q.Cursor)
		if err != nil {
			return page, err
		}
		filter.Before = cursor
	}

	sequences := make([][]dto.TimelineEvent, 0, len(e.sources))
	for _, src := range e.sources {
		events, err := src.Fetch(ctx, ownerID, filter, limit+1)
		if err != nil {
			return page, err
		}
		sequences = append(sequences, events)

		n, err := src.Count(ctx, ownerID, filter)
		if err != nil {
			return page, err
		}
		page.Total += n
	}

	merged := mergeDescending(sequences, limit+1)
	page.HasMore = len(merged) > limit
	if page.HasMore {
		merged = merged[:limit]
	}
	page.Data = merged
	if page.HasMore && len(merged) > 0 {
		last := merged[len(merged)-1]
		page.NextCursor = EncodeCursor(Cursor{OccurredAt: last.OccurredAt, ID: last.ID})
	}
	return page, nil
}

// eventOlder is the single ordering rule: occurredAt descending, ties broken
// by id descending so repeated merges are reproducible.
func eventOlder(a, b dto.TimelineEvent) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	return a.ID < b.ID
}

type mergeItem struct {
	event  dto.TimelineEvent
	source int
	pos    int
}

type mergeHeap []mergeItem

func (h mergeHeap) Len() int      { return len(h) }
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h mergeHeap) Less(i, j int) bool {
	// Max-heap on the descending sort order: newest first.
	return eventOlder(h[j].event, h[i].event)
}

func (h *mergeHeap) Push(x interface{}) {
	*h = append(*h, x.(mergeItem))
}

func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeDescending performs a bounded k-way merge of sequences that are each
// already sorted (occurredAt desc, id desc).
func mergeDescending(sequences [][]dto.TimelineEvent, limit int) []dto.TimelineEvent {
	h := &mergeHeap{}
	for i, seq := range sequences {
		if len(seq) > 0 {
			*h = append(*h, mergeItem{event: seq[0], source: i, pos: 0})
		}
	}
	heap.Init(h)

	out := make([]dto.TimelineEvent, 0, limit)
	for h.Len() > 0 && len(out) < limit {
		item := heap.Pop(h).(mergeItem)
		out = append(out, item.event)
		next := item.pos + 1
		if next < len(sequences[item.source]) {
			heap.Push(h, mergeItem{event: sequences[item.source][next], source: item.source, pos: next})
		}
	}
	return out
}
