package session

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultStoreCapacity = 1024

// Store owns live sessions. Each session belongs to exactly one logical call;
// the store only maps ids to sessions and evicts the least recently used
// conversation when full.
type Store interface {
	GetOrCreate(sessionID, businessID string, now time.Time) *Session
	Get(sessionID string) (*Session, bool)
	Reset(sessionID string)
}

// LRUStore is an in-memory, capacity-bounded Store.
type LRUStore struct {
	cache *lru.Cache[string, *Session]
}

func NewLRUStore(capacity int) (*LRUStore, error) {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}
	cache, err := lru.New[string, *Session](capacity)
	if err != nil {
		return nil, err
	}
	return &LRUStore{cache: cache}, nil
}

func (s *LRUStore) GetOrCreate(sessionID, businessID string, now time.Time) *Session {
	if sess, ok := s.cache.Get(sessionID); ok {
		return sess
	}
	sess := New(sessionID, businessID, now)
	s.cache.Add(sessionID, sess)
	return sess
}

func (s *LRUStore) Get(sessionID string) (*Session, bool) {
	return s.cache.Get(sessionID)
}

// Reset discards session state. Customer records are untouched.
func (s *LRUStore) Reset(sessionID string) {
	s.cache.Remove(sessionID)
}
