package extract

import (
	"errors"
	"testing"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

func TestFromConfirmationFillsMissingDetails(t *testing.T) {
	t.Parallel()

	reply := "You're all set! I've booked your table for 4 people on May 3 at 7:30pm."
	found := FromConfirmation(reply, map[string]string{})

	if found["has_reservation"] != "true" {
		t.Fatalf("has_reservation not set: %+v", found)
	}
	if found["date"] != "May 3" {
		t.Fatalf("date = %q", found["date"])
	}
	if found["time"] != "7:30pm" {
		t.Fatalf("time = %q", found["time"])
	}
	if found["party_size"] != "4" {
		t.Fatalf("party_size = %q", found["party_size"])
	}
}

func TestFromConfirmationKeepsKnownDetails(t *testing.T) {
	t.Parallel()

	known := map[string]string{"date": "Saturday", "time": "7pm", "party_size": "2"}
	found := FromConfirmation("Confirmed! See you at 9pm tomorrow with your party of 6.", known)

	// Only the reservation flag lands; the session's own details are not
	// second-guessed by the agent's phrasing.
	if found["has_reservation"] != "true" {
		t.Fatalf("has_reservation not set: %+v", found)
	}
	for _, key := range []string{"date", "time", "party_size"} {
		if _, ok := found[key]; ok {
			t.Errorf("%s should not be re-extracted: %+v", key, found)
		}
	}
}

func TestFromConfirmationIgnoresNonConfirmation(t *testing.T) {
	t.Parallel()

	found := FromConfirmation("What date would you like to come in?", map[string]string{})
	if len(found) != 0 {
		t.Fatalf("non-confirmation produced facts: %+v", found)
	}
}

func TestParseFactsStripsFencesAndProse(t *testing.T) {
	t.Parallel()

	raw := "Sure! Here's what I found:\n```json\n{\"name\": \"Kelly\", \"Party Size\": \"4\", \"notes\": null}\n```"
	found, err := ParseFacts(raw)
	if err != nil {
		t.Fatalf("ParseFacts() error = %v", err)
	}
	if found["name"] != "Kelly" {
		t.Fatalf("name = %q", found["name"])
	}
	if found["party_size"] != "4" {
		t.Fatalf("party_size = %q (key not normalized?)", found["party_size"])
	}
	if _, ok := found["notes"]; ok {
		t.Fatalf("null value kept: %+v", found)
	}
}

func TestParseFactsRejectsMalformedReply(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "I could not find anything.", "[1, 2, 3]"} {
		if _, err := ParseFacts(raw); !errors.Is(err, contractx.ErrExtraction) {
			t.Errorf("ParseFacts(%q) error = %v, want ErrExtraction", raw, err)
		}
	}
}

func TestParseFactsFlagsNonObjectAsSchemaViolation(t *testing.T) {
	t.Parallel()

	// Parseable JSON that is not an object violates the extractor schema.
	_, err := ParseFacts(`{"nested": {"oops": true}} trailing [1, 2]`)
	if err != nil {
		t.Fatalf("object reply rejected: %v", err)
	}

	_, err = ParseFacts("[1, 2, 3]")
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("ParseFacts() error = %v, want ErrSchemaViolation", err)
	}
	if !errors.Is(err, contractx.ErrExtraction) {
		t.Fatalf("ParseFacts() error = %v, want ErrExtraction too", err)
	}
}
