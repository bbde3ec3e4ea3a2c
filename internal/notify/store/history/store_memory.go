package history

import (
	"context"
	"sync"

	"newswire/internal/notify/models"
)

// MemoryStore implements HistoryStore in process memory for unit tests.
// TTL expiry is not simulated; tests control contents directly.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*userHistory
}

type userHistory struct {
	dailySent int
	recent    []models.DeliveryRecord
	stats     models.DeliveryStats
}

// NewMemory creates an empty in-memory history store.
func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[string]*userHistory)}
}

func (s *MemoryStore) DailySent(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[userID]; u != nil {
		return u.dailySent, nil
	}
	return 0, nil
}

func (s *MemoryStore) RecentDeliveries(ctx context.Context, userID string, limit int) ([]models.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userID]
	if u == nil {
		return nil, nil
	}
	if limit <= 0 || limit > len(u.recent) {
		limit = len(u.recent)
	}
	out := make([]models.DeliveryRecord, limit)
	copy(out, u.recent[:limit])
	return out, nil
}

func (s *MemoryStore) Record(ctx context.Context, userID string, rec models.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getOrCreate(userID)
	u.dailySent++
	u.recent = append([]models.DeliveryRecord{rec}, u.recent...)
	if len(u.recent) > recentCap {
		u.recent = u.recent[:recentCap]
	}
	u.stats.TotalDelivered++
	u.stats.ByCategory[rec.Category]++
	u.stats.ByType[rec.Type.String()]++
	u.stats.LastDeliveryAt = rec.SentAt
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context, userID string) (*models.DeliveryStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userID]
	if u == nil {
		return &models.DeliveryStats{
			ByCategory: make(map[string]int),
			ByType:     make(map[string]int),
		}, nil
	}
	stats := models.DeliveryStats{
		TotalDelivered: u.stats.TotalDelivered,
		ByCategory:     make(map[string]int, len(u.stats.ByCategory)),
		ByType:         make(map[string]int, len(u.stats.ByType)),
		LastDeliveryAt: u.stats.LastDeliveryAt,
	}
	for k, v := range u.stats.ByCategory {
		stats.ByCategory[k] = v
	}
	for k, v := range u.stats.ByType {
		stats.ByType[k] = v
	}
	return &stats, nil
}

// SetDailySent seeds the daily counter (tests).
func (s *MemoryStore) SetDailySent(userID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(userID).dailySent = n
}

// SeedRecent seeds recent deliveries, most recent first (tests).
func (s *MemoryStore) SeedRecent(userID string, recs ...models.DeliveryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.getOrCreate(userID)
	u.recent = append(recs, u.recent...)
}

func (s *MemoryStore) getOrCreate(userID string) *userHistory {
	u := s.users[userID]
	if u == nil {
		u = &userHistory{
			stats: models.DeliveryStats{
				ByCategory: make(map[string]int),
				ByType:     make(map[string]int),
			},
		}
		s.users[userID] = u
	}
	return u
}
