package window

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements WindowStore in process memory. Used by unit tests
// and as the degraded-mode fallback when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	blocks  map[string]time.Time // key -> block expiry
}

type slidingWindow struct {
	timestamps []time.Time
}

// NewMemory creates an empty in-memory window store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*slidingWindow),
		blocks:  make(map[string]time.Time),
	}
}

func (s *MemoryStore) Slide(ctx context.Context, key string, window time.Duration) (int, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.windows[key]
	if sw == nil {
		sw = &slidingWindow{}
		s.windows[key] = sw
	}
	sw.purge(now.Add(-window))
	count := len(sw.timestamps)
	sw.timestamps = append(sw.timestamps, now)
	return count, nil
}

func (s *MemoryStore) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.windows[key]
	if sw == nil {
		return 0, nil
	}
	sw.purge(time.Now().Add(-window))
	return len(sw.timestamps), nil
}

func (s *MemoryStore) OldestInWindow(ctx context.Context, key string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.windows[key]
	if sw == nil || len(sw.timestamps) == 0 {
		return time.Time{}, nil
	}
	return sw.timestamps[0], nil
}

func (s *MemoryStore) SetBlock(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[key] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) BlockTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.blocks[key]
	if !ok {
		return 0, false, nil
	}
	remaining := time.Until(expiry)
	if remaining <= 0 {
		delete(s.blocks, key)
		return 0, false, nil
	}
	return remaining, true, nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	delete(s.blocks, key)
	return nil
}

func (sw *slidingWindow) purge(cutoff time.Time) {
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
