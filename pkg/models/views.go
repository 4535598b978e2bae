package models

import "time"

// DuplicateMatch is one scored candidate from a duplicate check. Never
// persisted; computed fresh per request.
type DuplicateMatch struct {
	ContactID     string   `json:"contact_id"`
	Name          string   `json:"name"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Score         float64  `json:"score"`
	Category      string   `json:"category"` // exact, fuzzy, potential
	MatchedFields []string `json:"matched_fields"`
}

type DuplicateResult struct {
	IsDuplicate bool             `json:"is_duplicate"`
	Matches     []DuplicateMatch `json:"matches"`
}

// FollowUp is a read-time projection of a contact's cadence state, not a
// stored entity.
type FollowUp struct {
	ContactID            string     `json:"contact_id"`
	ContactName          string     `json:"contact_name"`
	DueDate              time.Time  `json:"due_date"`
	EffectiveDueDate     time.Time  `json:"effective_due_date"`
	IsPastDue            bool       `json:"is_past_due"`
	SnoozedUntil         *time.Time `json:"snoozed_until,omitempty"`
	LastContactDate      *time.Time `json:"last_contact_date,omitempty"`
	ContactFrequencyDays int        `json:"contact_frequency_days"`
	RelationshipStrength float64    `json:"relationship_strength"`
}

// TimelineEvent is the normalized shape every event source must expose.
type TimelineEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Title      string            `json:"title"`
	Snippet    string            `json:"snippet,omitempty"`
	Direction  string            `json:"direction,omitempty"`
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// TimelinePage is one page of the merged feed. Total is approximate by
// contract; HasMore comes from overfetching, not from Total.
type TimelinePage struct {
	Data       []TimelineEvent `json:"data"`
	Total      int64           `json:"total"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

type Stats struct {
	TotalContacts         int64   `json:"total_contacts"`
	InteractionsLast7Days int64   `json:"interactions_last_7_days"`
	OverdueFollowUps      int64   `json:"overdue_follow_ups"`
	ActiveRecommendations int64   `json:"active_recommendations"`
	AverageStrength       float64 `json:"average_strength"`
}
