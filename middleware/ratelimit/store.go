package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// Err is ErrRateLimitExceeded for a denied take and nil otherwise.
func (r *Result) Err() error {
	if r.Allowed {
		return nil
	}
	return ErrRateLimitExceeded
}

// Store takes one token from the bucket identified by tier and key.
type Store interface {
	Take(ctx context.Context, key string, tier Tier) (*Result, error)
}

// memoryBucket is retired under mu by Sweep. A take that finds it retired starts over
// on the bucket now stored under its id.
type memoryBucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen int64
	retired  bool
}

// MemoryStore keeps one lazily refilled limiter per bucket. Buckets for different keys never contend.
type MemoryStore struct {
	buckets sync.Map
	now     func() time.Time
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func WithBucketTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		now:  time.Now,
		ttl:  10 * time.Minute,
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *MemoryStore) Take(_ context.Context, key string, tier Tier) (*Result, error) {
	id := bucketKey(tier, key)
	for {
		now := s.now()
		b := s.bucket(id, tier)

		b.mu.Lock()
		if b.retired {
			b.mu.Unlock()
			continue
		}
		b.lastSeen = now.UnixNano()
		allowed := b.limiter.AllowN(now, 1)
		tokens := math.Max(0, b.limiter.TokensAt(now))
		b.mu.Unlock()

		return newResult(allowed, tier, tokens), nil
	}
}

func (s *MemoryStore) bucket(id string, tier Tier) *memoryBucket {
	if existing, ok := s.buckets.Load(id); ok {
		return existing.(*memoryBucket)
	}
	created := &memoryBucket{limiter: rate.NewLimiter(rate.Limit(tier.Rate), tier.Burst)}
	actual, _ := s.buckets.LoadOrStore(id, created)
	return actual.(*memoryBucket)
}

// Sweep drops buckets that have been idle for the TTL and are full again. A bucket that is
// still refilling is kept whatever the TTL, since a fresh one would start at full burst.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	cutoff := now.Add(-s.ttl).UnixNano()
	removed := 0
	s.buckets.Range(func(key, value any) bool {
		b := value.(*memoryBucket)

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.lastSeen >= cutoff || b.limiter.TokensAt(now) < float64(b.limiter.Burst()) {
			return true
		}
		if s.buckets.CompareAndDelete(key, b) {
			b.retired = true
			removed++
		}
		return true
	})
	return removed
}

func (s *MemoryStore) Len() int {
	n := 0
	s.buckets.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func (s *MemoryStore) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func newResult(allowed bool, tier Tier, tokens float64) *Result {
	result := &Result{
		Allowed:   allowed,
		Limit:     tier.Burst,
		Remaining: int(math.Floor(tokens)),
	}
	if tier.Rate > 0 {
		result.ResetAfter = secondsToDuration((float64(tier.Burst) - tokens) / tier.Rate)
		if !allowed {
			result.RetryAfter = secondsToDuration((1 - tokens) / tier.Rate)
		}
	}
	return result
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
