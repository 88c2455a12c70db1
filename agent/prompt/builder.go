package prompt

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	sessionx "github.com/cememirsenyurt/subconscious/agent/session"
)

// Facts that are steering flags rather than customer details; they shape the
// guidance block and never appear in the printed fact list.
var internalFacts = map[string]bool{
	"wants_to_book":               true,
	"claims_existing_reservation": true,
	"has_reservation":             true,
}

// BuildInstructions assembles the full instruction text for one engine run:
// persona role, what is known about the customer, the conversation so far,
// the current message, and response guidance. History excludes the current
// utterance, which gets its own section.
func BuildInstructions(systemPrompt string, sess *sessionx.Session, history []contractx.Turn, utterance string) string {
	var b strings.Builder

	b.WriteString("[YOUR ROLE AND INSTRUCTIONS]\n")
	b.WriteString(strings.TrimSpace(systemPrompt))

	if summary := memorySummary(sess); summary != "" {
		b.WriteString("\n\n")
		b.WriteString(summary)
	}

	if len(history) > 0 {
		b.WriteString("\n\n[CONVERSATION HISTORY]")
		for _, turn := range history {
			switch turn.Role {
			case contractx.RoleUser:
				fmt.Fprintf(&b, "\nCustomer: %s", turn.Text)
			case contractx.RoleAgent:
				fmt.Fprintf(&b, "\nYou (Agent): %s", turn.Text)
			}
		}
	}

	b.WriteString("\n\n[CURRENT MESSAGE FROM CUSTOMER]\n")
	fmt.Fprintf(&b, "Customer: %s", utterance)

	b.WriteString("\n\n")
	b.WriteString(LoadPromptSet().ResponseInstructions)

	if guidance := reservationGuidance(sess); guidance != "" {
		b.WriteString("\n\n")
		b.WriteString(guidance)
	}

	return b.String()
}

// memorySummary renders the session's accumulated facts, flagging returning
// customers whose record was restored from the store.
func memorySummary(sess *sessionx.Session) string {
	if sess == nil || len(sess.Facts) == 0 {
		return ""
	}

	var b strings.Builder
	if sess.Bound() {
		b.WriteString("[RETURNING CUSTOMER - found in our records. Use this information:]")
	} else {
		b.WriteString("[CUSTOMER INFORMATION - use this in your responses:]")
	}

	if name, ok := sess.Fact("name"); ok {
		fmt.Fprintf(&b, "\n- Customer's name: %s (address them by name)", name)
	}

	bookingFields := []struct{ key, label string }{
		{"date", "Date"},
		{"time", "Time"},
		{"party_size", "Party size"},
		{"seating_preference", "Seating"},
	}
	_, confirmed := sess.Fact("has_reservation")
	if confirmed {
		b.WriteString("\n- Reservation details (booked in this conversation or on file):")
	}
	for _, field := range bookingFields {
		if v, ok := sess.Fact(field.key); ok {
			if confirmed {
				fmt.Fprintf(&b, "\n  * %s: %s", field.label, v)
			} else {
				fmt.Fprintf(&b, "\n- %s mentioned: %s", field.label, v)
			}
		}
	}

	listed := map[string]bool{
		"name": true, "date": true, "time": true,
		"party_size": true, "seating_preference": true,
	}
	for _, name := range sortedFactNames(sess.Facts) {
		if listed[name] || internalFacts[name] {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s", displayFactName(name), sess.Facts[name])
	}

	b.WriteString("\nWhen the customer asks about these details, give them the exact values above.")
	return b.String()
}

// reservationGuidance steers booking conversations: confirm for returning
// customers with complete details, collect missing details for new bookings,
// ask for a name before looking anything up.
func reservationGuidance(sess *sessionx.Session) string {
	if sess == nil {
		return ""
	}
	_, hasName := sess.Fact("name")
	_, hasDate := sess.Fact("date")
	_, hasTime := sess.Fact("time")
	_, hasParty := sess.Fact("party_size")
	_, wantsToBook := sess.Fact("wants_to_book")
	_, claimsExisting := sess.Fact("claims_existing_reservation")

	complete := hasName && (hasDate || hasTime)

	var b strings.Builder
	b.WriteString("[HANDLING RESERVATIONS]")

	switch {
	case sess.Bound() && complete:
		b.WriteString("\nRETURNING CUSTOMER: you have their reservation details above - confirm them.")
	case wantsToBook:
		b.WriteString("\nCUSTOMER WANTS TO BOOK: collect missing information BEFORE confirming anything:")
		if !hasName {
			b.WriteString("\n- Ask for their NAME first.")
		}
		if !hasDate && !hasTime {
			b.WriteString("\n- Ask what DATE or TIME they prefer.")
		}
		if !hasParty {
			b.WriteString("\n- Ask how many GUESTS.")
		}
		b.WriteString("\n- Only confirm once you have name, date or time, and party size.")
	case claimsExisting && !hasName:
		b.WriteString("\nCUSTOMER CLAIMS AN EXISTING RESERVATION: ask for their name to look it up.")
	default:
		b.WriteString("\nNever claim to hold a reservation unless the details appear above.")
	}

	b.WriteString("\nIf they say they want to make a reservation, they do not have one yet - gather details, do not confirm.")
	return b.String()
}

func sortedFactNames(facts map[string]string) []string {
	names := make([]string, 0, len(facts))
	for name := range facts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func displayFactName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
