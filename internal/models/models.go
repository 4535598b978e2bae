package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Contact is a person in an owner's network. Rows are never hard-deleted;
// gorm.DeletedAt keeps soft-deleted contacts out of every default query.
type Contact struct {
	ID              string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID         string  `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_owner_email" json:"owner_id"`
	FirstName       string  `gorm:"type:varchar(255)" json:"first_name"`
	LastName        string  `gorm:"type:varchar(255)" json:"last_name"`
	NormalizedEmail *string `gorm:"type:varchar(255);uniqueIndex:idx_owner_email" json:"email,omitempty"`
	NormalizedPhone string  `gorm:"type:varchar(32);index" json:"phone,omitempty"`
	Company         string  `gorm:"type:varchar(255)" json:"company,omitempty"`
	Tags            string  `gorm:"type:text" json:"tags,omitempty"` // comma separated

	// Raw strength as of the last boost. Effective strength is always derived
	// from this plus LastContactDate, never by repeated subtraction.
	RelationshipStrength float64 `gorm:"default:5" json:"relationship_strength"`
	// Denormalized effective strength for ordering and reporting only.
	EffectiveStrength    float64    `gorm:"default:5" json:"effective_strength"`
	LastContactDate      *time.Time `json:"last_contact_date,omitempty"`
	ContactFrequencyDays int        `gorm:"default:30" json:"contact_frequency_days"`
	// Follow-up snooze override; cleared lazily once it has passed.
	FollowupSnoozedUntil *time.Time `json:"followup_snoozed_until,omitempty"`

	// Cheap pre-filter for fuzzy duplicate candidates: lowercased last-name
	// prefix plus email domain, maintained on every write.
	BlockingKey string `gorm:"type:varchar(80);index" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Interaction is an append-only record of a touchpoint with one or more
// contacts. Immutable after creation except for soft delete.
type Interaction struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID    string     `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	Type       string     `gorm:"type:varchar(20);not null" json:"type"`      // email, call, meeting, linkedin, other
	Direction  string     `gorm:"type:varchar(10);not null" json:"direction"` // inbound, outbound
	Subject    string     `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Summary    string     `gorm:"type:text" json:"summary,omitempty"`
	Source     string     `gorm:"type:varchar(50)" json:"source,omitempty"`
	Sentiment  *float64   `json:"sentiment,omitempty"`
	OccurredAt time.Time  `gorm:"not null;index" json:"occurred_at"`

	Participants []InteractionParticipant `gorm:"foreignKey:InteractionID" json:"participants,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Interaction) TableName() string {
	return "interactions"
}

type InteractionParticipant struct {
	InteractionID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_interaction_contact" json:"interaction_id"`
	ContactID     string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_interaction_contact" json:"contact_id"`
}

func (InteractionParticipant) TableName() string {
	return "interaction_participants"
}

// Note is a free-form annotation on a contact and the second timeline source.
type Note struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID   string `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	ContactID string `gorm:"type:varchar(36);not null;index" json:"contact_id"`
	Title     string `gorm:"type:varchar(255)" json:"title"`
	Body      string `gorm:"type:text" json:"body"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Note) TableName() string {
	return "notes"
}

// Recommendation lifecycle states.
const (
	RecStateActive    = "active"
	RecStateDismissed = "dismissed"
	RecStateSnoozed   = "snoozed"
	RecStateExpired   = "expired"
)

// Recommendation is a surfaced suggestion for a contact. ActiveKey holds
// "<contact_id>:<trigger>" while the row is active or snoozed and is NULL in
// terminal states; the unique index on it is the storage-level guarantee that
// at most one non-terminal row exists per (contact, trigger).
type Recommendation struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID     string  `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	ContactID   string  `gorm:"type:varchar(36);not null;index" json:"contact_id"`
	TriggerType string  `gorm:"type:varchar(30);not null" json:"trigger_type"`
	Urgency     float64 `gorm:"not null" json:"urgency"`
	State       string  `gorm:"type:varchar(15);not null;default:'active';index" json:"state"`
	Reason      string  `gorm:"type:varchar(255)" json:"reason,omitempty"`

	ActiveKey       *string    `gorm:"type:varchar(80);uniqueIndex" json:"-"`
	SnoozedUntil    *time.Time `json:"snoozed_until,omitempty"`
	HelpfulFeedback *bool      `json:"helpful_feedback,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}

// ExternalSignal is a trigger candidate fed by the enrichment collaborator
// (job change, birthday, company news). Consumed by the next generation pass.
type ExternalSignal struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID    string    `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	ContactID  string    `gorm:"type:varchar(36);not null;index" json:"contact_id"`
	Kind       string    `gorm:"type:varchar(50);not null" json:"kind"`
	Severity   float64   `gorm:"not null" json:"severity"`
	DetectedAt time.Time `gorm:"not null" json:"detected_at"`
	Consumed   bool      `gorm:"default:false;index" json:"consumed"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ExternalSignal) TableName() string {
	return "external_signals"
}
