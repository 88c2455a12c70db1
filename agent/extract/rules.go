package extract

import (
	"context"
	"regexp"
	"strings"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

// Rules is the deterministic extractor: a fixed set of patterns over the raw
// utterance. It returns only the facts found this turn; merging into session
// state is the caller's job, so an absent field here never erases anything.
type Rules struct{}

func NewRules() *Rules {
	return &Rules{}
}

var _ contractx.Extractor = (*Rules)(nil)

var namePrefixes = []string{
	"my name is ", "i'm ", "i am ", "this is ", "call me ",
	"name's ", "it's ", "the name is ", "name is ",
}

// Words that terminate or disqualify a name capture. Includes question words
// so "This is Kelly. What are your hours?" stops at "Kelly".
var nameStopWords = map[string]bool{
	"what": true, "whats": true, "what's": true, "when": true, "where": true,
	"how": true, "why": true, "which": true, "who": true,
	"can": true, "could": true, "would": true, "will": true,
	"do": true, "does": true, "did": true, "is": true, "are": true,
	"was": true, "were": true, "the": true, "and": true, "or": true,
	"but": true, "for": true, "to": true, "at": true, "on": true, "in": true,
	"i": true, "my": true, "me": true, "want": true, "need": true,
	"have": true, "had": true, "reservation": true, "appointment": true,
	"booking": true, "book": true, "table": true, "dinner": true,
	"lunch": true, "breakfast": true, "please": true, "thanks": true,
	"make": true, "call": true, "calling": true, "check": true,
	"looking": true, "like": true, "just": true, "give": true, "tell": true,
	"show": true, "info": true, "information": true, "details": true,
	"about": true, "here": true, "hi": true, "hello": true, "hey": true,
	"yes": true, "no": true, "ok": true, "okay": true, "sure": true,
	"great": true, "perfect": true, "yeah": true, "yep": true,
}

var calendarWords = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
	"today": true, "tonight": true, "tomorrow": true,
}

var (
	phoneRe = regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.\s]?\d{4}|\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\d{3}[-.\s]\d{4}`)
	emailRe = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)

	partyRes = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(?:people|persons|guests|of us)`),
		regexp.MustCompile(`party of (\d+)`),
		regexp.MustCompile(`table for (\d+)`),
		regexp.MustCompile(`room for (\d+)`),
		regexp.MustCompile(`(\d+)\s*(?:adults?|kids?|children)`),
	}

	monthDayRe = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*,?\s*(\d{4}))?`)
	weekdayRe  = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?)\b`)

	timeRes = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}:\d{2}\s*(?:am|pm|a\.m\.|p\.m\.)`),
		regexp.MustCompile(`\d{1,2}\s*(?:am|pm|a\.m\.|p\.m\.)`),
		regexp.MustCompile(`\d{1,2}\s*o'?clock`),
	}
	// RE2 has no lookahead; the optional suffix group disqualifies ordinals
	// and counts ("at 25th", "at 4 people").
	bareHourRe = regexp.MustCompile(`at\s+(\d{1,2})((?:st|nd|rd|th)|\s+(?:people|persons|guests|person))?\b`)

	venueRe    = regexp.MustCompile(`(?:[Bb]ook|[Rr]eserve|[Tt]able at|[Rr]eservation at)\s+((?:[A-Z][A-Za-z']*)(?:\s+[A-Z][A-Za-z']*)*)`)
	locationRe = regexp.MustCompile(`\bin\s+((?:[A-Z][A-Za-z']*)(?:\s+[A-Z][A-Za-z']*)*)`)

	moneyRes = []struct {
		re    *regexp.Regexp
		scale int64
	}{
		{regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)\s*(?:million|m\b)`), 1_000_000},
		{regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)\s*(?:k\b|thousand)`), 1_000},
		{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*million\s*(?:dollars?)?`), 1_000_000},
		{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:k\b|thousand)\s*(?:dollars?)?`), 1_000},
		{regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)`), 1},
	}
)

var bookingContextWords = []string{
	"book", "reserv", "appointment", "schedule", "table for", "room for",
	"want to", "like to", "need to", "can i", "available", "opening", "slot",
}

var wantsToBookPhrases = []string{
	"want to book", "want to make", "want to reserve", "like to book",
	"like to make", "like to reserve", "need to book", "need to make",
	"can i book", "can i make", "can i reserve", "make a reservation",
	"book a table", "book a room", "schedule an appointment", "need an appointment",
}

var existingReservationPhrases = []string{
	"my reservation", "my appointment", "my booking", "i have a reservation",
	"i have an appointment", "i have a booking", "i booked", "i reserved",
	"i made a reservation", "check my", "look up my", "find my",
}

var seatingPatterns = []struct {
	re    *regexp.Regexp
	value string
}{
	{regexp.MustCompile(`\b(terrace|patio|outdoor|outside)\b`), "outdoor terrace"},
	{regexp.MustCompile(`\b(indoor|inside)\b`), "indoor"},
	{regexp.MustCompile(`\bprivate (room|dining)\b`), "private room"},
	{regexp.MustCompile(`\b(at the bar|bar seating|bar area|counter)\b`), "bar area"},
	{regexp.MustCompile(`\b(by the window|window seat|window table)\b`), "window seat"},
}

func (r *Rules) Extract(ctx context.Context, utterance string, known map[string]string) (map[string]string, error) {
	found := map[string]string{}
	msg := strings.TrimSpace(utterance)
	if msg == "" {
		return found, nil
	}
	lower := strings.ToLower(msg)

	if name := extractName(msg, lower); name != "" {
		found["name"] = name
	}
	if phone := lastMatch(phoneRe, msg); phone != "" {
		found["phone"] = phone
	}
	if email := lastMatch(emailRe, msg); email != "" {
		found["email"] = email
	}
	if venue := extractVenue(msg); venue != "" {
		found["restaurant"] = venue
	}
	if loc := extractLocation(msg); loc != "" {
		found["location"] = loc
	}
	for _, re := range partyRes {
		if m := lastSubmatch(re, lower); m != "" {
			found["party_size"] = m
			break
		}
	}
	if hasAny(lower, bookingContextWords) {
		if date := extractDate(lower); date != "" {
			found["date"] = date
		}
	}
	if t := extractTime(lower); t != "" {
		found["time"] = t
	}
	if budget := extractBudget(lower); budget != "" {
		found["budget"] = budget
	}
	for _, sp := range seatingPatterns {
		if sp.re.MatchString(lower) {
			found["seating_preference"] = sp.value
			break
		}
	}
	if hasAny(lower, wantsToBookPhrases) {
		found["wants_to_book"] = "true"
	}
	if hasAny(lower, existingReservationPhrases) {
		found["claims_existing_reservation"] = "true"
	}

	return found, nil
}

// extractName finds a stated name, either a short all-capitalized reply
// ("Kevin Tran") or a phrase following a self-introduction prefix. Capture
// stops at lowercase words, stop words, and question words so a trailing
// clause is never swallowed into the name.
func extractName(msg, lower string) string {
	words := strings.Fields(msg)
	if len(words) > 0 && len(words) <= 3 && allCapitalized(words) {
		var kept []string
		for _, w := range words {
			clean := strings.Trim(w, ".,!?")
			if clean == "" || nameStopWords[strings.ToLower(clean)] || calendarWords[strings.ToLower(clean)] {
				continue
			}
			kept = append(kept, clean)
		}
		if name := strings.Join(kept, " "); len(name) > 1 {
			return name
		}
	}

	for _, prefix := range namePrefixes {
		idx := strings.Index(lower, prefix)
		if idx < 0 {
			continue
		}
		remaining := strings.TrimSpace(msg[idx+len(prefix):])
		var kept []string
		for i, w := range strings.Fields(remaining) {
			if i >= 3 {
				break
			}
			clean := strings.Trim(w, ".,!?")
			if clean == "" || nameStopWords[strings.ToLower(clean)] {
				break
			}
			if clean[0] < 'A' || clean[0] > 'Z' {
				break
			}
			kept = append(kept, clean)
			// Punctuation after a word ends the name clause.
			if strings.ContainsAny(w, ".,!?") {
				break
			}
		}
		if len(kept) > 0 {
			return strings.Join(kept, " ")
		}
	}
	return ""
}

func allCapitalized(words []string) bool {
	for _, w := range words {
		if w == "" {
			continue
		}
		if w[0] < 'A' || w[0] > 'Z' {
			return false
		}
	}
	return true
}

func extractVenue(msg string) string {
	m := venueRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	venue := strings.TrimSpace(m[1])
	// "Book Saturday at 7" captures a calendar word, not a venue.
	if calendarWords[strings.ToLower(strings.Fields(venue)[0])] {
		return ""
	}
	return venue
}

func extractLocation(msg string) string {
	m := locationRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	loc := strings.TrimSpace(m[1])
	if calendarWords[strings.ToLower(strings.Fields(loc)[0])] {
		return ""
	}
	return loc
}

func extractDate(lower string) string {
	if m := monthDayRe.FindAllStringSubmatch(lower, -1); m != nil {
		last := m[len(m)-1]
		date := titleWord(last[1]) + " " + last[2]
		if last[3] != "" {
			date += ", " + last[3]
		}
		return date
	}
	switch {
	case strings.Contains(lower, "tomorrow"):
		return "tomorrow"
	case strings.Contains(lower, "tonight"), strings.Contains(lower, "today"):
		return "today"
	case strings.Contains(lower, "this weekend"):
		return "this weekend"
	case strings.Contains(lower, "next week"):
		return "next week"
	}
	if m := weekdayRe.FindAllString(lower, -1); m != nil {
		return titleWord(m[len(m)-1])
	}
	if m := numericDateRe.FindAllStringSubmatch(lower, -1); m != nil {
		return m[len(m)-1][1]
	}
	return ""
}

func extractTime(lower string) string {
	for _, re := range timeRes {
		if m := re.FindAllString(lower, -1); m != nil {
			return m[len(m)-1]
		}
	}
	for _, m := range bareHourRe.FindAllStringSubmatch(lower, -1) {
		if m[2] == "" {
			return m[1]
		}
	}
	return ""
}

func extractBudget(lower string) string {
	for _, candidate := range moneyRes {
		m := candidate.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", "")
		return "$" + scaleAmount(raw, candidate.scale)
	}
	return ""
}

// scaleAmount multiplies a decimal string by scale and renders the result
// with comma grouping, e.g. ("1.5", 1000000) -> "1,500,000".
func scaleAmount(raw string, scale int64) string {
	whole, frac := raw, ""
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		whole, frac = raw[:i], raw[i+1:]
	}
	var total int64
	for i := 0; i < len(whole); i++ {
		total = total*10 + int64(whole[i]-'0')
	}
	total *= scale
	for i := 0; i < len(frac); i++ {
		scale /= 10
		total += int64(frac[i]-'0') * scale
	}
	return groupDigits(total)
}

func groupDigits(n int64) string {
	s := []byte{}
	for i := 0; n > 0 || i == 0; i++ {
		if i > 0 && i%3 == 0 {
			s = append([]byte{','}, s...)
		}
		s = append([]byte{byte('0' + n%10)}, s...)
		n /= 10
	}
	return string(s)
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func hasAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func lastMatch(re *regexp.Regexp, s string) string {
	m := re.FindAllString(s, -1)
	if m == nil {
		return ""
	}
	return m[len(m)-1]
}

func lastSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindAllStringSubmatch(s, -1)
	if m == nil {
		return ""
	}
	return m[len(m)-1][1]
}
