package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/security"
)

// Keys holding credentials. They are opaque and stored verbatim.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyLanguage     = "lang"
	KeyCSRFToken    = "csrfToken"
)

var rawKeys = map[string]struct{}{
	KeyToken:        {},
	KeyRefreshToken: {},
}

// SafeStore is the facade every caller writes through. Values are sanitized
// on the way in: JSON documents are decoded, escaped field by field and
// re-encoded, anything else is HTML-escaped. Read failures are logged and
// reported as absent.
type SafeStore struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewSafeStore(store Store, log zerolog.Logger) *SafeStore {
	return &SafeStore{store: store, log: log, now: time.Now}
}

// WithClock replaces the time source used for secure-store expiry.
func (s *SafeStore) WithClock(now func() time.Time) *SafeStore {
	s.now = now
	return s
}

func (s *SafeStore) Set(ctx context.Context, key, value string) error {
	if _, raw := rawKeys[key]; !raw {
		value = sanitizeStored(value)
	}
	return s.store.Set(ctx, key, value)
}

func (s *SafeStore) Get(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("store read failed")
		return "", false
	}
	return value, ok
}

func (s *SafeStore) Delete(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("store delete failed")
	}
}

func (s *SafeStore) Clear(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("store clear failed")
	}
}

func (s *SafeStore) SetJSON(ctx context.Context, key string, v any) error {
	data, err := marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// GetJSON decodes the stored document into out and reports success.
func (s *SafeStore) GetJSON(ctx context.Context, key string, out any) bool {
	value, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stored value is not valid json")
		return false
	}
	return true
}

type envelope struct {
	Value      json.RawMessage `json:"value"`
	Timestamp  int64           `json:"timestamp"`
	Expiration *int64          `json:"expiration"`
}

// SecureStore wraps value with its write time and an optional expiry. A zero
// ttl never expires.
func (s *SafeStore) SecureStore(ctx context.Context, key string, value any, ttl time.Duration) bool {
	raw, err := marshal(value)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("secure store encode failed")
		return false
	}

	now := s.now()
	item := envelope{Value: raw, Timestamp: now.UnixMilli()}
	if ttl > 0 {
		exp := now.Add(ttl).UnixMilli()
		item.Expiration = &exp
	}

	if err := s.SetJSON(ctx, key, item); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("secure store write failed")
		return false
	}
	return true
}

// SecureRetrieve returns the stored value, dropping it once expired.
func (s *SafeStore) SecureRetrieve(ctx context.Context, key string) (json.RawMessage, bool) {
	var item envelope
	if !s.GetJSON(ctx, key, &item) {
		return nil, false
	}
	if item.Expiration != nil && s.now().UnixMilli() > *item.Expiration {
		s.Delete(ctx, key)
		return nil, false
	}
	return item.Value, true
}

func sanitizeStored(value string) string {
	dec := json.NewDecoder(bytes.NewReader([]byte(value)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil || dec.More() {
		return security.SanitizeHTML(value)
	}
	data, err := marshal(security.SanitizeValue(doc))
	if err != nil {
		return security.SanitizeHTML(value)
	}
	return string(data)
}

// marshal encodes without json's HTML escaping; sanitized strings already
// carry entities and must not be escaped twice.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
