package customer

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"
)

var (
	ErrRecordNotFound = errors.New("customer record not found")
	ErrInvalidKey     = errors.New("identity key is empty")
)

// Record is a durable, identity-keyed customer profile. It outlives every
// session and is mutated through Store.Upsert only.
type Record struct {
	IdentityKey   string            `json:"identity_key"`
	BusinessID    string            `json:"business_id"`
	Facts         map[string]string `json:"facts"`
	Version       int64             `json:"version"`
	LastUpdatedAt time.Time         `json:"last_updated_at"`
}

// Clone returns a detached copy safe to hand to callers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Facts = make(map[string]string, len(r.Facts))
	for k, v := range r.Facts {
		out.Facts[k] = v
	}
	return &out
}

// Store is the durable customer profile contract. Per-key writes are
// serialized; reads never block writes to other keys.
type Store interface {
	Lookup(ctx context.Context, identityKey string) (*Record, error)
	Upsert(ctx context.Context, identityKey, businessID string, facts map[string]string, now time.Time) (*Record, error)
	// List returns all records for a business; used by identity resolution
	// when the caller knows a name but not the key the record was stored under.
	List(ctx context.Context, businessID string) ([]*Record, error)
}

// NormalizeName lowercases and collapses internal whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// PhoneDigits strips everything but digits from a phone number.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// IdentityKey derives the storage key for a customer within a business.
// Phone digits take precedence over the normalized name: numbers disambiguate
// common names. Returns "" when neither is usable.
func IdentityKey(businessID, name, phone string) string {
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return ""
	}
	if digits := PhoneDigits(phone); digits != "" {
		return businessID + ":" + digits
	}
	if normalized := NormalizeName(name); normalized != "" {
		return businessID + ":" + normalized
	}
	return ""
}

// stripedLocks serializes read-modify-write cycles per identity key without
// allocating a mutex per key. Keys hash onto a fixed set of stripes.
type stripedLocks [32]sync.Mutex

func (l *stripedLocks) forKey(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l[h.Sum32()%uint32(len(l))]
}

// mergeFacts applies the monotonic-overwrite rule: non-empty values replace,
// empty values never erase.
func mergeFacts(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		if strings.TrimSpace(v) == "" {
			continue
		}
		dst[k] = v
	}
	return dst
}
