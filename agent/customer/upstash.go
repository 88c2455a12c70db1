package customer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultUpstashKeyPrefix = "voiceagent:customer:"
	maxResponseSizeBytes    = 2 << 20
)

// UpstashOption customizes UpstashStore.
type UpstashOption func(*UpstashStore)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(s *UpstashStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) UpstashOption {
	return func(s *UpstashStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashStore persists customer records in Upstash Redis via REST. Records
// survive process restarts. Upserts are read-modify-write cycles serialized
// per identity key through a striped mutex; writers from other processes
// settle last-write-wins.
type UpstashStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration

	stripes stripedLocks
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashStore(cfg UpstashConfig, opts ...UpstashOption) (*UpstashStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultUpstashKeyPrefix,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashStore) Lookup(ctx context.Context, identityKey string) (*Record, error) {
	key, err := s.redisKey(identityKey)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrRecordNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode record payload: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(encoded), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal customer record: %w", err)
	}
	if rec.Facts == nil {
		rec.Facts = map[string]string{}
	}
	return &rec, nil
}

func (s *UpstashStore) Upsert(ctx context.Context, identityKey, businessID string, facts map[string]string, now time.Time) (*Record, error) {
	key, err := s.redisKey(identityKey)
	if err != nil {
		return nil, err
	}

	// The GET-merge-SET cycle must not interleave with another upsert for the
	// same key, or the loser's fields vanish from the stored record.
	lock := s.stripes.forKey(identityKey)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.Lookup(ctx, identityKey)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	rec := existing
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

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal customer record: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}
	if _, err := s.exec(ctx, cmd); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (s *UpstashStore) List(ctx context.Context, businessID string) ([]*Record, error) {
	if strings.TrimSpace(businessID) == "" {
		return nil, errors.New("business id is empty")
	}

	resp, err := s.exec(ctx, []any{"KEYS", s.keyPrefix + businessID + ":*"})
	if err != nil {
		return nil, err
	}

	var keys []string
	if err := json.Unmarshal(resp.Result, &keys); err != nil {
		return nil, fmt.Errorf("decode keys response: %w", err)
	}

	out := make([]*Record, 0, len(keys))
	for _, key := range keys {
		identityKey := strings.TrimPrefix(key, s.keyPrefix)
		rec, err := s.Lookup(ctx, identityKey)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *UpstashStore) Delete(ctx context.Context, identityKey string) error {
	key, err := s.redisKey(identityKey)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashStore) redisKey(identityKey string) (string, error) {
	if strings.TrimSpace(identityKey) == "" {
		return "", ErrInvalidKey
	}
	return s.keyPrefix + identityKey, nil
}

func (s *UpstashStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if ttl%time.Second != 0 {
		seconds++
	}
	if seconds <= 0 {
		return 1
	}
	return int64(seconds)
}
