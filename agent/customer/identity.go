package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

// Resolve matches the facts known in the current session against stored
// records, ranked: phone exact match, then full-name exact match, then
// first-name-only with at least one corroborating fact. More than one
// plausible candidate is ErrIdentityAmbiguous and callers must treat it as no
// match; a record is never created speculatively here.
func Resolve(ctx context.Context, store Store, businessID string, facts map[string]string) (*Record, error) {
	name := strings.TrimSpace(facts["name"])
	digits := PhoneDigits(facts["phone"])
	if name == "" && digits == "" {
		return nil, ErrRecordNotFound
	}

	// Phone exact match wins outright.
	if digits != "" {
		rec, err := store.Lookup(ctx, businessID+":"+digits)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
	}

	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, ErrRecordNotFound
	}

	// Full-name keyed record (stored before a phone was ever known).
	rec, err := store.Lookup(ctx, businessID+":"+normalized)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	records, err := store.List(ctx, businessID)
	if err != nil {
		return nil, err
	}

	// Phone-keyed records found by stored full name.
	var fullMatches []*Record
	for _, r := range records {
		if NormalizeName(r.Facts["name"]) == normalized {
			fullMatches = append(fullMatches, r)
		}
	}
	if len(fullMatches) == 1 {
		return fullMatches[0], nil
	}
	if len(fullMatches) > 1 {
		return nil, fmt.Errorf("%w: %d records named %q", contractx.ErrIdentityAmbiguous, len(fullMatches), normalized)
	}

	// First-name-only: require a corroborating fact, never guess.
	if strings.Contains(normalized, " ") {
		return nil, ErrRecordNotFound
	}
	var partial []*Record
	for _, r := range records {
		stored := NormalizeName(r.Facts["name"])
		if stored == "" {
			continue
		}
		if firstToken(stored) != normalized {
			continue
		}
		if corroborates(r, facts) {
			partial = append(partial, r)
		}
	}
	switch len(partial) {
	case 0:
		return nil, ErrRecordNotFound
	case 1:
		return partial[0], nil
	default:
		return nil, fmt.Errorf("%w: %d records share first name %q", contractx.ErrIdentityAmbiguous, len(partial), normalized)
	}
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// corroborates reports whether at least one additional session fact agrees
// with the stored record. Name alone is never enough for a partial match.
func corroborates(r *Record, facts map[string]string) bool {
	if d := PhoneDigits(facts["phone"]); d != "" && PhoneDigits(r.Facts["phone"]) == d {
		return true
	}
	if e := strings.ToLower(strings.TrimSpace(facts["email"])); e != "" &&
		strings.ToLower(strings.TrimSpace(r.Facts["email"])) == e {
		return true
	}
	for _, field := range []string{"date", "time", "party_size", "restaurant", "location"} {
		v := strings.TrimSpace(facts[field])
		if v != "" && strings.EqualFold(strings.TrimSpace(r.Facts[field]), v) {
			return true
		}
	}
	return false
}
