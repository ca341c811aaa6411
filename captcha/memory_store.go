package captcha

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore is a single-process Store. Challenges generated on one instance
// cannot be verified on another; use RedisStore behind a load balancer.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]Entry{},
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, id string, entry Entry, ttl time.Duration) error {
	entry.ExpiresAt = s.now().Add(ttl)
	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) TakeIfValid(_ context.Context, id string) (Entry, bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	return entry, ok, nil
}

// Len returns the number of pending entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Debug("captcha janitor evicted expired challenges", zap.Int("count", n))
				}
			}
		}
	}()
}
