package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

func TestIdentityKeyPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, phone, want string
	}{
		{"Kevin Smith", "555-1234", "restaurant:5551234"},
		{"Kevin  Smith", "", "restaurant:kevin smith"},
		{"", "(415) 555-0000", "restaurant:4155550000"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := IdentityKey("restaurant", tt.name, tt.phone); got != tt.want {
			t.Errorf("IdentityKey(%q, %q) = %q, want %q", tt.name, tt.phone, got, tt.want)
		}
	}
}

func TestPhoneDigits(t *testing.T) {
	t.Parallel()

	if got := PhoneDigits("(555) 123-4567"); got != "5551234567" {
		t.Fatalf("PhoneDigits() = %q", got)
	}
	if got := PhoneDigits("no digits"); got != "" {
		t.Fatalf("PhoneDigits() = %q, want empty", got)
	}
}

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// Phone-keyed record, as written after scenario "Book Pausa Bar ... Kevin, 555-1234".
	if _, err := store.Upsert(ctx, "restaurant:5551234", "restaurant", map[string]string{
		"name":       "Kevin",
		"phone":      "555-1234",
		"restaurant": "Pausa Bar",
		"party_size": "4",
		"date":       "Saturday",
		"time":       "7pm",
	}, now); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	return store
}

func TestResolvePhoneExactMatch(t *testing.T) {
	t.Parallel()

	store := seedStore(t)
	rec, err := Resolve(context.Background(), store, "restaurant", map[string]string{
		"name":  "Someone Else",
		"phone": "555.1234",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if rec.Facts["restaurant"] != "Pausa Bar" {
		t.Fatalf("unexpected record: %+v", rec.Facts)
	}
}

func TestResolveNameFindsPhoneKeyedRecord(t *testing.T) {
	t.Parallel()

	// New session: customer says only "my name is Kevin" but the stored record
	// is phone-keyed. The stored name matches and the record is unique, so the
	// prior reservation facts come back.
	store := seedStore(t)
	rec, err := Resolve(context.Background(), store, "restaurant", map[string]string{
		"name": "Kevin",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if rec.Facts["date"] != "Saturday" || rec.Facts["time"] != "7pm" {
		t.Fatalf("expected reservation facts restored, got %+v", rec.Facts)
	}
}

func TestResolveFirstNameCollisionIsAmbiguous(t *testing.T) {
	t.Parallel()

	store := seedStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	if _, err := store.Upsert(ctx, "restaurant:5559999", "restaurant", map[string]string{
		"name":  "Kevin",
		"phone": "555-9999",
		"date":  "Sunday",
	}, now); err != nil {
		t.Fatalf("seed second kevin: %v", err)
	}

	_, err := Resolve(ctx, store, "restaurant", map[string]string{"name": "Kevin"})
	if !errors.Is(err, contractx.ErrIdentityAmbiguous) {
		t.Fatalf("Resolve() error = %v, want ErrIdentityAmbiguous", err)
	}
}

func TestResolveFirstNameNeedsCorroboration(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	if _, err := store.Upsert(ctx, "restaurant:5551234", "restaurant", map[string]string{
		"name":  "Kevin Tran",
		"phone": "555-1234",
	}, now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// First name alone, no corroborating fact: stays unresolved.
	if _, err := Resolve(ctx, store, "restaurant", map[string]string{"name": "Kevin"}); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrRecordNotFound", err)
	}

	// Same first name plus the matching phone corroborates.
	rec, err := Resolve(ctx, store, "restaurant", map[string]string{
		"name":  "Kevin",
		"phone": "5551234",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if rec.Facts["name"] != "Kevin Tran" {
		t.Fatalf("unexpected record: %+v", rec.Facts)
	}
}

func TestResolveNoFactsNoMatch(t *testing.T) {
	t.Parallel()

	store := seedStore(t)
	_, err := Resolve(context.Background(), store, "restaurant", map[string]string{})
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrRecordNotFound", err)
	}
}

func TestResolveScopedToBusiness(t *testing.T) {
	t.Parallel()

	store := seedStore(t)
	_, err := Resolve(context.Background(), store, "hotel", map[string]string{"name": "Kevin"})
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrRecordNotFound across businesses", err)
	}
}
