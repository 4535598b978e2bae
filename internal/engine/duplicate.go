package engine

import (
	"context"
	"sort"
	"strings"

	"crm-intelligence/internal/models"
	dto "crm-intelligence/pkg/models"
)

// Duplicate match categories.
const (
	MatchExact     = "exact"
	MatchFuzzy     = "fuzzy"
	MatchPotential = "potential"
)

// DuplicateQuery carries the normalized-before-compare fields of a prospective
// contact. At least one of email/phone/name must be present.
type DuplicateQuery struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

// NormalizeEmail lower-cases and trims. Applied before every comparison and
// before every store write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone reduces a phone number to its canonical digits-only form.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BlockingKey builds the cheap pre-filter key: first three lowercased
// characters of the last name plus the email domain. Either half may be
// empty.
func BlockingKey(lastName, normalizedEmail string) string {
	name := strings.ToLower(strings.TrimSpace(lastName))
	if runes := []rune(name); len(runes) > 3 {
		name = string(runes[:3])
	}
	domain := ""
	if at := strings.IndexByte(normalizedEmail, '@'); at >= 0 {
		domain = normalizedEmail[at+1:]
	}
	return name + "|" + domain
}

// CheckDuplicate scores existing contacts in the owner's scope against the
// query. Exact email/phone matches short-circuit at score 1.0; otherwise a
// blocking-key-restricted candidate set is scored fuzzily. An empty match
// list is a normal outcome, never an error. The result is advisory: the
// store's (owner, email) uniqueness constraint is the correctness backstop.
func (e *Engine) CheckDuplicate(ctx context.Context, ownerID string, q DuplicateQuery) (dto.DuplicateResult, error) {
	result := dto.DuplicateResult{Matches: []dto.DuplicateMatch{}}
	if err := validateOwner(ownerID); err != nil {
		return result, err
	}

	q.Email = NormalizeEmail(q.Email)
	q.Phone = NormalizePhone(q.Phone)
	if q.Email == "" && q.Phone == "" && q.FirstName == "" && q.LastName == "" {
		return result, validationf("at least one of email, phone or name is required")
	}
	if err := validateEmail(q.Email); err != nil {
		return result, err
	}

	exact, err := e.exactMatches(ctx, ownerID, q)
	if err != nil {
		return result, err
	}
	if len(exact) > 0 {
		result.IsDuplicate = true
		result.Matches = exact
		return result, nil
	}

	fuzzy, err := e.fuzzyMatches(ctx, ownerID, q)
	if err != nil {
		return result, err
	}
	result.Matches = fuzzy
	for _, m := range fuzzy {
		if m.Category == MatchFuzzy {
			result.IsDuplicate = true
			break
		}
	}
	return result, nil
}

func (e *Engine) exactMatches(ctx context.Context, ownerID string, q DuplicateQuery) ([]dto.DuplicateMatch, error) {
	var contacts []models.Contact
	tx := e.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	switch {
	case q.Email != "" && q.Phone != "":
		tx = tx.Where("normalized_email = ? OR normalized_phone = ?", q.Email, q.Phone)
	case q.Email != "":
		tx = tx.Where("normalized_email = ?", q.Email)
	case q.Phone != "":
		tx = tx.Where("normalized_phone = ?", q.Phone)
	default:
		return nil, nil
	}
	if err := tx.Order("updated_at DESC").Find(&contacts).Error; err != nil {
		return nil, err
	}

	matches := make([]dto.DuplicateMatch, 0, len(contacts))
	for _, c := range contacts {
		fields := []string{}
		if q.Email != "" && c.NormalizedEmail != nil && *c.NormalizedEmail == q.Email {
			fields = append(fields, "email")
		}
		if q.Phone != "" && c.NormalizedPhone == q.Phone {
			fields = append(fields, "phone")
		}
		matches = append(matches, toMatch(c, 1.0, MatchExact, fields))
	}
	return matches, nil
}

func (e *Engine) fuzzyMatches(ctx context.Context, ownerID string, q DuplicateQuery) ([]dto.DuplicateMatch, error) {
	candidates, err := e.blockedCandidates(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}

	type scored struct {
		contact models.Contact
		score   float64
		fields  []string
	}
	var kept []scored
	for _, c := range candidates {
		score, fields := e.scoreCandidate(q, c)
		if score >= e.params.PotentialThreshold {
			kept = append(kept, scored{contact: c, score: score, fields: fields})
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].contact.UpdatedAt.After(kept[j].contact.UpdatedAt)
	})

	matches := make([]dto.DuplicateMatch, 0, len(kept))
	for _, s := range kept {
		category := MatchPotential
		if s.score >= e.params.FuzzyThreshold {
			category = MatchFuzzy
		}
		matches = append(matches, toMatch(s.contact, s.score, category, s.fields))
	}
	return matches, nil
}

// blockedCandidates restricts the fuzzy candidate set: same blocking-key name
// prefix, same email domain, or same phone suffix. Capped so a huge scope
// never turns the check into a full scan.
func (e *Engine) blockedCandidates(ctx context.Context, ownerID string, q DuplicateQuery) ([]models.Contact, error) {
	key := BlockingKey(q.LastName, q.Email)
	parts := strings.SplitN(key, "|", 2)
	namePrefix, domain := parts[0], parts[1]

	tx := e.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	var conds []string
	var args []interface{}
	if namePrefix != "" {
		conds = append(conds, "blocking_key LIKE ?")
		args = append(args, namePrefix+"|%")
	}
	if domain != "" {
		conds = append(conds, "blocking_key LIKE ?")
		args = append(args, "%|"+domain)
	}
	if len(q.Phone) >= 4 {
		conds = append(conds, "normalized_phone LIKE ?")
		args = append(args, "%"+q.Phone[len(q.Phone)-4:])
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var candidates []models.Contact
	err := tx.Where(strings.Join(conds, " OR "), args...).
		Limit(e.params.CandidateLimit).
		Find(&candidates).Error
	return candidates, err
}

// scoreCandidate combines per-field similarities as a weighted sum in [0,1].
// Weights are renormalized over the fields both sides actually have, so a
// missing phone does not cap the achievable score.
func (e *Engine) scoreCandidate(q DuplicateQuery, c models.Contact) (float64, []string) {
	var score, weightSum float64
	var fields []string

	qName := strings.ToLower(strings.TrimSpace(q.FirstName + " " + q.LastName))
	cName := strings.ToLower(c.FullName())
	if qName != "" && cName != "" {
		s := nameSimilarity(qName, cName)
		score += e.params.NameWeight * s
		weightSum += e.params.NameWeight
		if s >= 0.8 {
			fields = append(fields, "name")
		}
	}

	cEmail := ""
	if c.NormalizedEmail != nil {
		cEmail = *c.NormalizedEmail
	}
	if q.Email != "" && cEmail != "" {
		s := emailSimilarity(q.Email, cEmail)
		score += e.params.EmailWeight * s
		weightSum += e.params.EmailWeight
		if s >= 0.8 {
			fields = append(fields, "email")
		}
	}

	if q.Phone != "" && c.NormalizedPhone != "" {
		s := phoneSimilarity(q.Phone, c.NormalizedPhone)
		score += e.params.PhoneWeight * s
		weightSum += e.params.PhoneWeight
		if s >= 0.8 {
			fields = append(fields, "phone")
		}
	}

	if weightSum == 0 {
		return 0, nil
	}
	return score / weightSum, fields
}

// nameSimilarity blends token overlap with character-bigram Jaccard so both
// reordered tokens ("doe john") and small typos score high.
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	tokenScore := tokenOverlap(tokensA, tokensB)
	return 0.5*tokenScore + 0.5*bigramJaccard(a, b)
}

func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	shared := 0
	for _, t := range b {
		if set[t] {
			shared++
		}
	}
	union := len(set) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func emailSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	localA, domainA := splitEmail(a)
	localB, domainB := splitEmail(b)
	s := 0.7 * bigramJaccard(localA, localB)
	if domainA != "" && domainA == domainB {
		s += 0.3
	}
	return s
}

func splitEmail(email string) (local, domain string) {
	if at := strings.IndexByte(email, '@'); at >= 0 {
		return email[:at], email[at+1:]
	}
	return email, ""
}

// phoneSimilarity rewards a shared suffix: differing country or area prefixes
// on the same line should still score high.
func phoneSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	shared := 0
	for shared < len(a) && shared < len(b) {
		if a[len(a)-1-shared] != b[len(b)-1-shared] {
			break
		}
		shared++
	}
	if shared >= 7 {
		return 1.0
	}
	return float64(shared) / float64(maxLen)
}

// bigramJaccard is the shared-bigram ratio of two strings. Cheap, no
// embeddings or edit-distance tables needed at this layer.
func bigramJaccard(a, b string) float64 {
	if a == b {
		return 1.0
	}
	bigramsA := bigrams(a)
	bigramsB := bigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}
	shared := 0
	for bg := range bigramsA {
		if bigramsB[bg] {
			shared++
		}
	}
	union := len(bigramsA) + len(bigramsB) - shared
	if union == 0 {
		return 1.0
	}
	return float64(shared) / float64(union)
}

func bigrams(s string) map[string]bool {
	if len(s) < 2 {
		return nil
	}
	m := make(map[string]bool, len(s)-1)
	for i := 0; i < len(s)-1; i++ {
		m[s[i:i+2]] = true
	}
	return m
}

func toMatch(c models.Contact, score float64, category string, fields []string) dto.DuplicateMatch {
	email := ""
	if c.NormalizedEmail != nil {
		email = *c.NormalizedEmail
	}
	if fields == nil {
		fields = []string{}
	}
	return dto.DuplicateMatch{
		ContactID:     c.ID,
		Name:          c.FullName(),
		Email:         email,
		Phone:         c.NormalizedPhone,
		Score:         score,
		Category:      category,
		MatchedFields: fields,
	}
}
