package settings

import (
	"context"
	"sort"
	"sync"

	"newswire/internal/notify/models"
)

// MemoryStore implements SettingsStore in process memory for unit tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]models.UserSettings
}

// NewMemory creates an empty in-memory settings store.
func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[string]models.UserSettings)}
}

// Put inserts or replaces a settings record.
func (s *MemoryStore) Put(settings models.UserSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[settings.UserID] = settings
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if settings, ok := s.users[userID]; ok {
		return &settings, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListUrgentEnabled(ctx context.Context) ([]models.UserSettings, error) {
	return s.filter(func(u models.UserSettings) bool { return u.UrgentNotifications }), nil
}

func (s *MemoryStore) ListDigestEnabled(ctx context.Context) ([]models.UserSettings, error) {
	return s.filter(func(u models.UserSettings) bool { return u.DailyDigest }), nil
}

func (s *MemoryStore) filter(keep func(models.UserSettings) bool) []models.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.UserSettings
	for _, u := range s.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	// Deterministic order keeps test assertions stable.
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
