package customer

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Writes to one identity key are
// serialized through a striped mutex; reads take the stripe briefly and never
// block writers to other keys.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record

	stripes stripedLocks
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

func (s *MemoryStore) Lookup(ctx context.Context, identityKey string) (*Record, error) {
	if strings.TrimSpace(identityKey) == "" {
		return nil, ErrInvalidKey
	}
	s.mu.RLock()
	rec, ok := s.records[identityKey]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, identityKey, businessID string, facts map[string]string, now time.Time) (*Record, error) {
	if strings.TrimSpace(identityKey) == "" {
		return nil, ErrInvalidKey
	}

	lock := s.stripes.forKey(identityKey)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	existing := s.records[identityKey]
	s.mu.RUnlock()

	rec := existing.Clone()
	if rec == nil {
		rec = &Record{
			IdentityKey: identityKey,
			BusinessID:  businessID,
			Facts:       make(map[string]string, len(facts)),
		}
	}
	rec.Facts = mergeFacts(rec.Facts, facts)
	rec.Version++
	rec.LastUpdatedAt = now.UTC()

	s.mu.Lock()
	s.records[identityKey] = rec
	s.mu.Unlock()

	return rec.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, businessID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, rec := range s.records {
		if rec.BusinessID == businessID {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}
