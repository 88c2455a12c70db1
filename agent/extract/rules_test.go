package extract

import (
	"context"
	"reflect"
	"testing"
)

func extractAll(t *testing.T, utterance string) map[string]string {
	t.Helper()
	found, err := NewRules().Extract(context.Background(), utterance, nil)
	if err != nil {
		t.Fatalf("Extract(%q) error = %v", utterance, err)
	}
	return found
}

func TestExtractFullBookingUtterance(t *testing.T) {
	t.Parallel()

	found := extractAll(t, "Book Pausa Bar for 4 people Saturday at 7pm. My name is Kevin, phone 555-1234")
	want := map[string]string{
		"restaurant": "Pausa Bar",
		"party_size": "4",
		"date":       "Saturday",
		"time":       "7pm",
		"name":       "Kevin",
		"phone":      "555-1234",
	}
	if !reflect.DeepEqual(found, want) {
		t.Fatalf("Extract() = %+v, want %+v", found, want)
	}
}

func TestExtractNameStopsAtQuestion(t *testing.T) {
	t.Parallel()

	// The trailing question must not be swallowed into the name.
	found := extractAll(t, "This is Kelly. What are your hours today?")
	if found["name"] != "Kelly" {
		t.Fatalf("name = %q, want Kelly", found["name"])
	}
}

func TestExtractNamePatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		utterance string
		want      string
	}{
		{"Hi my name is Kelly", "Kelly"},
		{"I'm Kevin Tran and I need a table", "Kevin Tran"},
		{"Kevin Tran", "Kevin Tran"},
		{"call me Ana", "Ana"},
		{"Yes", ""},
		{"Saturday", ""},
		{"I want to make a reservation", ""},
	}
	for _, tt := range tests {
		found := extractAll(t, tt.utterance)
		if found["name"] != tt.want {
			t.Errorf("Extract(%q) name = %q, want %q", tt.utterance, found["name"], tt.want)
		}
	}
}

func TestExtractPhoneVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		utterance string
		want      string
	}{
		{"my number is 555-1234", "555-1234"},
		{"reach me at (415) 555-0000", "(415) 555-0000"},
		{"phone is 415.555.0000", "415.555.0000"},
		{"no phone here", ""},
	}
	for _, tt := range tests {
		found := extractAll(t, tt.utterance)
		if found["phone"] != tt.want {
			t.Errorf("Extract(%q) phone = %q, want %q", tt.utterance, found["phone"], tt.want)
		}
	}
}

func TestExtractLastMentionWins(t *testing.T) {
	t.Parallel()

	found := extractAll(t, "Book a table at 7pm, actually make it 8pm")
	if found["time"] != "8pm" {
		t.Fatalf("time = %q, want 8pm (last mention wins)", found["time"])
	}
}

func TestExtractDateNeedsBookingContext(t *testing.T) {
	t.Parallel()

	// A bare weekday mention outside booking context is not a reservation date.
	found := extractAll(t, "Saturday was fun")
	if _, ok := found["date"]; ok {
		t.Fatalf("date extracted without booking context: %+v", found)
	}

	found = extractAll(t, "I want to book a table for Saturday")
	if found["date"] != "Saturday" {
		t.Fatalf("date = %q, want Saturday", found["date"])
	}
}

func TestExtractMonthDayDate(t *testing.T) {
	t.Parallel()

	found := extractAll(t, "Can I book a room for March 3, 2026?")
	if found["date"] != "March 3, 2026" {
		t.Fatalf("date = %q", found["date"])
	}
}

func TestExtractLocationAndEmail(t *testing.T) {
	t.Parallel()

	found := extractAll(t, "Find gyms in San Mateo, email me at kelly@example.com")
	if found["location"] != "San Mateo" {
		t.Fatalf("location = %q", found["location"])
	}
	if found["email"] != "kelly@example.com" {
		t.Fatalf("email = %q", found["email"])
	}
}

func TestExtractBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		utterance string
		want      string
	}{
		{"my budget is $1.5 million", "$1,500,000"},
		{"around 750k dollars", "$750,000"},
		{"up to $300", "$300"},
	}
	for _, tt := range tests {
		found := extractAll(t, tt.utterance)
		if found["budget"] != tt.want {
			t.Errorf("Extract(%q) budget = %q, want %q", tt.utterance, found["budget"], tt.want)
		}
	}
}

func TestExtractIntentFlags(t *testing.T) {
	t.Parallel()

	found := extractAll(t, "I want to book a table")
	if found["wants_to_book"] != "true" {
		t.Fatalf("wants_to_book not set: %+v", found)
	}

	found = extractAll(t, "Can you check my reservation?")
	if found["claims_existing_reservation"] != "true" {
		t.Fatalf("claims_existing_reservation not set: %+v", found)
	}
}

func TestExtractSeatingPreference(t *testing.T) {
	t.Parallel()

	found := extractAll(t, "We'd like to sit on the patio if possible")
	if found["seating_preference"] != "outdoor terrace" {
		t.Fatalf("seating_preference = %q", found["seating_preference"])
	}

	// A venue name containing "Bar" is not a seating request.
	found = extractAll(t, "Book Pausa Bar for tonight")
	if _, ok := found["seating_preference"]; ok {
		t.Fatalf("false seating preference: %+v", found)
	}
}

func TestExtractEmptyUtterance(t *testing.T) {
	t.Parallel()

	found := extractAll(t, "   ")
	if len(found) != 0 {
		t.Fatalf("Extract(blank) = %+v, want empty", found)
	}
}
