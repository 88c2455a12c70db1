package customer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	written, err := store.Upsert(ctx, "gym:5551234", "gym", map[string]string{
		"name":  "Kelly",
		"phone": "555-1234",
	}, now)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if written.Version != 1 {
		t.Fatalf("Version = %d, want 1", written.Version)
	}

	// Read back from an unrelated caller's point of view.
	got, err := store.Lookup(ctx, "gym:5551234")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !reflect.DeepEqual(got.Facts, written.Facts) {
		t.Fatalf("Lookup facts = %+v, want %+v", got.Facts, written.Facts)
	}

	// Mutating the returned copy must not touch the stored record.
	got.Facts["name"] = "mutated"
	again, _ := store.Lookup(ctx, "gym:5551234")
	if again.Facts["name"] != "Kelly" {
		t.Fatal("Lookup returned a shared map")
	}
}

func TestMemoryStoreUpsertIdempotent(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	facts := map[string]string{"name": "Kevin", "party_size": "4"}

	first, err := store.Upsert(ctx, "restaurant:5551234", "restaurant", facts, now)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	second, err := store.Upsert(ctx, "restaurant:5551234", "restaurant", facts, now)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !reflect.DeepEqual(first.Facts, second.Facts) {
		t.Fatalf("facts diverged: %+v vs %+v", first.Facts, second.Facts)
	}
}

func TestMemoryStoreMergeNeverErases(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Upsert(ctx, "hotel:ana", "hotel", map[string]string{"name": "Ana", "date": "May 3"}, now); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	rec, err := store.Upsert(ctx, "hotel:ana", "hotel", map[string]string{"date": "", "time": "8pm"}, now)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if rec.Facts["date"] != "May 3" {
		t.Fatalf("empty value erased date: %+v", rec.Facts)
	}
	if rec.Facts["time"] != "8pm" {
		t.Fatalf("new value missing: %+v", rec.Facts)
	}
}

func TestMemoryStoreLookupMissing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Lookup(context.Background(), "gym:nobody"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrRecordNotFound", err)
	}
	if _, err := store.Lookup(context.Background(), "  "); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Lookup() error = %v, want ErrInvalidKey", err)
	}
}

func TestMemoryStoreConcurrentUpsertsSameKey(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Upsert(ctx, "salon:5550000", "salon", map[string]string{
				"name":          "Mia",
				fmt.Sprintf("pref_%d", i): "yes",
			}, now)
			if err != nil {
				t.Errorf("Upsert() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	rec, err := store.Lookup(ctx, "salon:5550000")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if rec.Version != writers {
		t.Fatalf("Version = %d, want %d (no lost writes)", rec.Version, writers)
	}
	// Every writer's field landed: no interleaved partial updates.
	for i := 0; i < writers; i++ {
		if rec.Facts[fmt.Sprintf("pref_%d", i)] != "yes" {
			t.Fatalf("missing field from writer %d: %+v", i, rec.Facts)
		}
	}
}

func TestMemoryStoreListFiltersBusiness(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	store.Upsert(ctx, "gym:1", "gym", map[string]string{"name": "A"}, now)
	store.Upsert(ctx, "gym:2", "gym", map[string]string{"name": "B"}, now)
	store.Upsert(ctx, "hotel:3", "hotel", map[string]string{"name": "C"}, now)

	records, err := store.List(ctx, "gym")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(List) = %d, want 2", len(records))
	}
}
