package extract

import (
	"regexp"
	"strings"
)

var confirmationKeywords = []string{
	"reserved", "booked", "confirmed", "all set", "appointment is",
}

var (
	confirmDateRe  = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?`)
	simpleDateRe   = regexp.MustCompile(`\b(tonight|today|tomorrow|this evening)\b`)
	confirmTimeRe  = regexp.MustCompile(`at\s+(\d{1,2}(?::\d{2})?\s*(?:am|pm|p\.m\.|a\.m\.)?)`)
	confirmPartyRe = regexp.MustCompile(`(?:for|party of)\s+(\d+)|(\d+)\s+(?:people|guests)`)
)

// FromConfirmation pulls booking details out of an agent reply that confirms
// a reservation, filling only fields the session does not already know. A
// reply that is not a confirmation yields nothing.
func FromConfirmation(reply string, known map[string]string) map[string]string {
	lower := strings.ToLower(reply)
	if !hasAny(lower, confirmationKeywords) {
		return map[string]string{}
	}

	found := map[string]string{"has_reservation": "true"}

	if known["date"] == "" {
		if m := confirmDateRe.FindStringSubmatch(lower); m != nil {
			found["date"] = titleWord(m[1]) + " " + m[2]
		} else if m := simpleDateRe.FindStringSubmatch(lower); m != nil {
			found["date"] = m[1]
		}
	}
	if known["time"] == "" {
		if m := confirmTimeRe.FindStringSubmatch(lower); m != nil {
			found["time"] = strings.TrimSpace(m[1])
		}
	}
	if known["party_size"] == "" {
		if m := confirmPartyRe.FindStringSubmatch(lower); m != nil {
			if m[1] != "" {
				found["party_size"] = m[1]
			} else {
				found["party_size"] = m[2]
			}
		}
	}

	return found
}
