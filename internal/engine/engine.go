package engine

import (
	"time"

	"gorm.io/gorm"
)

// Params collects the tunable policy surface. The defaults are the documented
// policy; none of them are structural contracts.
type Params struct {
	// Decay constant: strength lost per whole missed cadence interval.
	DecayK float64

	// Duplicate scoring weights and thresholds.
	NameWeight         float64
	EmailWeight        float64
	PhoneWeight        float64
	FuzzyThreshold     float64
	PotentialThreshold float64
	CandidateLimit     int

	// Strength boost applied when a follow-up is marked done.
	FollowupDoneBoost float64

	// Urgency weighting for recommendations.
	SeverityWeight float64
	StrengthWeight float64
	RecencyWeight  float64
}

func DefaultParams() Params {
	return Params{
		DecayK:             2.0,
		NameWeight:         0.4,
		EmailWeight:        0.3,
		PhoneWeight:        0.3,
		FuzzyThreshold:     0.85,
		PotentialThreshold: 0.6,
		CandidateLimit:     200,
		FollowupDoneBoost:  1.0,
		SeverityWeight:     0.5,
		StrengthWeight:     0.3,
		RecencyWeight:      0.2,
	}
}

// Engine is the relationship intelligence core. It holds no per-request
// state; every operation is scoped by the caller's owner id and runs against
// the shared store.
type Engine struct {
	db      *gorm.DB
	params  Params
	sources []EventSource

	// Overridable for tests.
	now func() time.Time
}

func New(db *gorm.DB, params Params) *Engine {
	return &Engine{
		db:      db,
		params:  params,
		sources: []EventSource{&interactionSource{db: db}, &noteSource{db: db}},
		now:     time.Now,
	}
}

// SetSources swaps the timeline event providers. Used to plug in additional
// per-source feeds and by tests.
func (e *Engine) SetSources(sources ...EventSource) {
	e.sources = sources
}

func (e *Engine) DB() *gorm.DB {
	return e.db
}
