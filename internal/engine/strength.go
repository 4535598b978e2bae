package engine

import (
	"math"
	"time"
)

// Relationship strength lives on a 1-10 scale, always clamped.
const (
	MinStrength = 1.0
	MaxStrength = 10.0
)

// interactionBoost maps an interaction type to its additive strength
// increment. Unknown types never reach here; the closed set is validated at
// the boundary.
func interactionBoost(interactionType string) float64 {
	switch interactionType {
	case "meeting":
		return 1.5
	case "call":
		return 1.0
	case "email":
		return 0.5
	default:
		return 0.25
	}
}

func clampStrength(v float64) float64 {
	return math.Min(MaxStrength, math.Max(MinStrength, v))
}

// EffectiveStrength derives the current strength from stored facts only: the
// raw strength as of the last boost, the last contact date and the contact's
// own cadence. No decay inside one cadence interval; past it, strength drops
// linearly with the missed fraction, floored at the scale minimum. Because
// the inputs are immutable between boosts, recomputing is idempotent.
func EffectiveStrength(raw float64, lastContact *time.Time, frequencyDays int, now time.Time, k float64) (float64, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, ErrComputation
	}
	if err := validateFrequency(frequencyDays); err != nil {
		return 0, err
	}
	if lastContact == nil {
		return clampStrength(raw), nil
	}

	elapsed := now.Sub(*lastContact).Hours() / 24
	frequency := float64(frequencyDays)
	if elapsed <= frequency {
		return clampStrength(raw), nil
	}

	effective := raw - k*(elapsed-frequency)/frequency
	if math.IsNaN(effective) || math.IsInf(effective, 0) {
		return 0, ErrComputation
	}
	return clampStrength(effective), nil
}

// effectiveStrengthOf is the contact-shaped convenience wrapper.
func (e *Engine) effectiveStrengthOf(raw float64, lastContact *time.Time, frequencyDays int, now time.Time) (float64, error) {
	return EffectiveStrength(raw, lastContact, frequencyDays, now, e.params.DecayK)
}

// boostedStrength folds a boost into the stored raw value: decay up to the
// boost instant is realized first, then the increment is added and clamped.
// The result becomes the new stored raw strength.
func (e *Engine) boostedStrength(raw float64, lastContact *time.Time, frequencyDays int, at time.Time, boost float64) (float64, error) {
	current, err := e.effectiveStrengthOf(raw, lastContact, frequencyDays, at)
	if err != nil {
		return 0, err
	}
	return clampStrength(current + boost), nil
}
