package engine

import (
	"strings"
)

// Explicit, data-driven validation rules. Each rule rejects before any store
// access; limits follow the API contract (page limit 1-100, default 20).

const (
	DefaultLimit = 20
	MaxLimit     = 100

	maxNameLen    = 255
	maxCompanyLen = 255
	maxTitleLen   = 255
)

// Interaction vocabulary. Closed sets; anything else is a validation error.
var interactionTypes = map[string]bool{
	"email":    true,
	"call":     true,
	"meeting":  true,
	"linkedin": true,
	"other":    true,
}

var interactionDirections = map[string]bool{
	"inbound":  true,
	"outbound": true,
}

// normalizeLimit applies the default and rejects out-of-range values.
func normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < 1 || limit > MaxLimit {
		return 0, validationf("limit must be between 1 and %d", MaxLimit)
	}
	return limit, nil
}

func validateDays(days int) error {
	if days < 1 {
		return validationf("days must be positive")
	}
	return nil
}

func validateFrequency(days int) error {
	if days < 1 {
		return validationf("contact frequency must be at least 1 day")
	}
	return nil
}

func validateInteractionType(t string) error {
	if !interactionTypes[t] {
		return validationf("unknown interaction type %q", t)
	}
	return nil
}

func validateDirection(d string) error {
	if !interactionDirections[d] {
		return validationf("direction must be inbound or outbound")
	}
	return nil
}

func validateName(field, value string) error {
	if len(value) > maxNameLen {
		return validationf("%s exceeds %d characters", field, maxNameLen)
	}
	return nil
}

// validateEmail checks shape only; full RFC validation is not the point, the
// store's uniqueness constraint is the real guard.
func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 || strings.IndexByte(email[at+1:], '.') < 1 {
		return validationf("malformed email %q", email)
	}
	return nil
}

func validateOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return validationf("owner id is required")
	}
	return nil
}
