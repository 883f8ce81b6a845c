package guard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptRecord counts failed logins for one identifier.
type AttemptRecord struct {
	Count         int
	LastAttemptAt time.Time
}

// AttemptStore keeps login attempt records. Increment must be atomic so
// concurrent failures for the same identifier are all counted.
type AttemptStore interface {
	Get(ctx context.Context, id string) (AttemptRecord, bool, error)
	// Increment adds one failure stamped at now. Once Count reaches lockAt
	// the record may expire ttl later; below it the record is kept.
	Increment(ctx context.Context, id string, now time.Time, lockAt int, ttl time.Duration) (AttemptRecord, error)
	Delete(ctx context.Context, id string) error
}

type MemoryAttemptStore struct {
	mu      sync.Mutex
	records map[string]AttemptRecord
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{records: make(map[string]AttemptRecord)}
}

func (s *MemoryAttemptStore) Get(_ context.Context, id string) (AttemptRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok, nil
}

func (s *MemoryAttemptStore) Increment(_ context.Context, id string, now time.Time, _ int, _ time.Duration) (AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[id]
	rec.Count++
	rec.LastAttemptAt = now
	s.records[id] = rec
	return rec, nil
}

func (s *MemoryAttemptStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// RedisAttemptStore shares attempt records between processes. Each record is
// a hash {count, last} under prefix+id.
type RedisAttemptStore struct {
	client *redis.Client
	prefix string
}

func NewRedisAttemptStore(client *redis.Client, prefix string) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, prefix: prefix + "login_attempts:"}
}

func (s *RedisAttemptStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisAttemptStore) Get(ctx context.Context, id string) (AttemptRecord, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return AttemptRecord{}, false, fmt.Errorf("load attempts: %w", err)
	}
	if len(fields) == 0 {
		return AttemptRecord{}, false, nil
	}
	return decodeAttempt(fields)
}

// incrementAttempt bumps the count and stamps the failure in one step. The
// expiry is only set once the count reaches the lockout threshold.
var incrementAttempt = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], 'count', '1')
redis.call('HSET', KEYS[1], 'last', ARGV[1])
if n >= tonumber(ARGV[2]) and tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return n
`)

func (s *RedisAttemptStore) Increment(ctx context.Context, id string, now time.Time, lockAt int, ttl time.Duration) (AttemptRecord, error) {
	count, err := incrementAttempt.Run(ctx, s.client, []string{s.key(id)},
		now.UnixMilli(), lockAt, ttl.Milliseconds()).Int()
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("record attempt: %w", err)
	}
	return AttemptRecord{Count: count, LastAttemptAt: time.UnixMilli(now.UnixMilli())}, nil
}

func (s *RedisAttemptStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

var errCorruptAttempt = errors.New("corrupt attempt record")

func decodeAttempt(fields map[string]string) (AttemptRecord, bool, error) {
	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return AttemptRecord{}, false, fmt.Errorf("%w: count %q", errCorruptAttempt, fields["count"])
	}
	last, err := strconv.ParseInt(fields["last"], 10, 64)
	if err != nil {
		return AttemptRecord{}, false, fmt.Errorf("%w: last %q", errCorruptAttempt, fields["last"])
	}
	return AttemptRecord{Count: count, LastAttemptAt: time.UnixMilli(last)}, true, nil
}

// IsRateLimited reports whether id is locked out. A record whose lockout
// window has elapsed is purged.
func (g *Guard) IsRateLimited(ctx context.Context, id string) bool {
	rec, ok, err := g.attempts.Get(ctx, id)
	if err != nil {
		g.log.Error().Err(err).Str("identifier", id).Msg("attempt lookup failed")
		return false
	}
	if !ok || rec.Count < g.cfg.MaxLoginAttempts {
		return false
	}
	if g.now().Sub(rec.LastAttemptAt) < g.cfg.LockoutDuration {
		return true
	}
	g.ResetAttempts(ctx, id)
	return false
}

// RecordFailedAttempt counts a failure and returns maxAttempts minus the new
// count. The result goes negative once id is already locked; use
// RemainingAttempts for display.
func (g *Guard) RecordFailedAttempt(ctx context.Context, id string) int {
	rec, err := g.attempts.Increment(ctx, id, g.now(), g.cfg.MaxLoginAttempts, g.cfg.LockoutDuration)
	if err != nil {
		g.log.Error().Err(err).Str("identifier", id).Msg("attempt record failed")
		return g.cfg.MaxLoginAttempts
	}
	remaining := g.cfg.MaxLoginAttempts - rec.Count
	if remaining <= 0 {
		g.log.Warn().Str("identifier", id).Int("attempts", rec.Count).Msg("identifier locked out")
	}
	return remaining
}

// RemainingAttempts is the clamped countdown shown to users.
func (g *Guard) RemainingAttempts(ctx context.Context, id string) int {
	rec, ok, err := g.attempts.Get(ctx, id)
	if err != nil || !ok {
		return g.cfg.MaxLoginAttempts
	}
	return max(0, g.cfg.MaxLoginAttempts-rec.Count)
}

func (g *Guard) ResetAttempts(ctx context.Context, id string) {
	if err := g.attempts.Delete(ctx, id); err != nil {
		g.log.Error().Err(err).Str("identifier", id).Msg("attempt reset failed")
	}
}

func (g *Guard) RemainingLockoutTime(ctx context.Context, id string) time.Duration {
	rec, ok, err := g.attempts.Get(ctx, id)
	if err != nil || !ok {
		return 0
	}
	return max(0, g.cfg.LockoutDuration-g.now().Sub(rec.LastAttemptAt))
}
