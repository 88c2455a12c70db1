package session

import (
	"errors"
	"sort"
	"strings"
	"time"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrNilSession     = errors.New("session is nil")
)

// Session is the per-conversation state: ordered turn history, accumulated
// facts, and an optional bound customer identity. A Session is owned by
// exactly one logical call and is discarded on reset.
type Session struct {
	SessionID  string `json:"session_id"`
	BusinessID string `json:"business_id"`

	Turns []contractx.Turn  `json:"turns,omitempty"`
	Facts map[string]string `json:"facts,omitempty"`

	// CustomerKey is the bound identity key, empty until a successful match.
	CustomerKey string `json:"customer_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(sessionID, businessID string, now time.Time) *Session {
	return &Session{
		SessionID:  sessionID,
		BusinessID: businessID,
		Facts:      make(map[string]string, 8),
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn appends an immutable turn to the history.
func (s *Session) AppendTurn(role contractx.Role, text string, now time.Time) {
	s.Turns = append(s.Turns, contractx.Turn{
		Role:      role,
		Text:      text,
		Timestamp: now.UTC(),
	})
	s.Touch(now)
}

// RecentTurns returns up to n most recent turns, oldest first.
func (s *Session) RecentTurns(n int) []contractx.Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// EnsureFactsMap makes sure s.Facts is initialized.
func (s *Session) EnsureFactsMap() {
	if s.Facts == nil {
		s.Facts = make(map[string]string, 8)
	}
}

// MergeFacts merges newly extracted values into the session facts and returns
// the sorted names of fields whose value changed. The merge is
// monotonic-overwrite: a non-empty value always replaces the prior one, an
// empty or absent value never erases an existing one.
func (s *Session) MergeFacts(found map[string]string) []string {
	if len(found) == 0 {
		return nil
	}
	s.EnsureFactsMap()

	var changed []string
	for name, value := range found {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if s.Facts[name] == value {
			continue
		}
		s.Facts[name] = value
		changed = append(changed, name)
	}
	sort.Strings(changed)
	return changed
}

// Fact returns the value for name; absence is distinct from empty string.
func (s *Session) Fact(name string) (string, bool) {
	if s.Facts == nil {
		return "", false
	}
	v, ok := s.Facts[name]
	return v, ok
}

// FactsCopy returns a detached copy of the fact map.
func (s *Session) FactsCopy() map[string]string {
	out := make(map[string]string, len(s.Facts))
	for k, v := range s.Facts {
		out[k] = v
	}
	return out
}

// Bound reports whether the session is bound to a customer record.
func (s *Session) Bound() bool {
	return s != nil && s.CustomerKey != ""
}

// Bind attaches the session to a resolved customer identity. A session binds
// to at most one record; rebinding to a different key is rejected.
func (s *Session) Bind(customerKey string) error {
	if s == nil {
		return ErrNilSession
	}
	key := strings.TrimSpace(customerKey)
	if key == "" {
		return errors.New("customer key is empty")
	}
	if s.CustomerKey != "" && s.CustomerKey != key {
		return errors.New("session already bound to another customer")
	}
	s.CustomerKey = key
	return nil
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	for i := 1; i < len(s.Turns); i++ {
		if s.Turns[i].Timestamp.Before(s.Turns[i-1].Timestamp) {
			return errors.New("turn history out of order")
		}
	}
	return nil
}
