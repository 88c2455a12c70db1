package classify

import (
	"context"
	"strings"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

// Keyword groups that flip a turn onto the search-augmented path. Matching is
// substring-based over the lowercased utterance; any hit dominates, so a
// compound utterance with an identity clause and a discovery clause still
// classifies true.
var (
	discoveryKeywords = []string{
		"find", "search", "look for", "looking for", "compare",
		"options", "recommend", "suggest", "show me", "any good",
	}

	researchKeywords = []string{
		"what is", "tell me about", "how do i get to", "directions",
		"where is", "nearby", "close to", "around here",
		"weather", "traffic", "news", "latest",
		"reviews", "ratings", "best", "recommended",
		"hours", "open", "closed", "website", "phone number",
		"price", "cost of", "how much",
	}

	bookingKeywords = []string{
		"book", "reserve", "appointment", "schedule",
		"available", "availability", "can i get",
		"sign up", "register", "membership",
	}
)

// Rules is the deterministic classifier. Default is false: search is the
// expensive path and must be opted into by an explicit discovery, research,
// or booking signal in the utterance.
type Rules struct{}

func NewRules() *Rules {
	return &Rules{}
}

var _ contractx.Classifier = (*Rules)(nil)

func (r *Rules) NeedsSearch(ctx context.Context, utterance string, history []contractx.Turn) (bool, error) {
	text := strings.ToLower(strings.TrimSpace(utterance))
	if text == "" {
		return false, nil
	}

	for _, group := range [][]string{discoveryKeywords, researchKeywords, bookingKeywords} {
		for _, kw := range group {
			if strings.Contains(text, kw) {
				return true, nil
			}
		}
	}
	return false, nil
}
