// Package digest accumulates the day's items and delivers them as a single
// scheduled summary to users who opted in.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"newswire/internal/notify/models"
	"newswire/internal/notify/ports"
)

// maxItemsPerDigest bounds the summary so one busy day cannot produce an
// unreadable message.
const maxItemsPerDigest = 25

type Filter interface {
	EligibleUsers(ctx context.Context, item models.Item, deliveryType models.DeliveryType) ([]models.Profile, error)
	RecordDelivery(ctx context.Context, userID string, item models.Item, deliveryType models.DeliveryType, success bool)
}

type Service struct {
	filter Filter
	bot    ports.BotSender
	logger *slog.Logger
	cron   *cron.Cron

	mu     sync.Mutex
	buffer []models.Item
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(filter Filter, bot ports.BotSender, opts ...Option) (*Service, error) {
	if filter == nil {
		return nil, fmt.Errorf("filter is required")
	}
	if bot == nil {
		return nil, fmt.Errorf("bot sender is required")
	}
	s := &Service{
		filter: filter,
		bot:    bot,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Add queues items for the next digest run.
func (s *Service) Add(items ...models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, items...)
}

// Start schedules the digest job. The schedule uses standard cron syntax,
// for example "0 18 * * *" for a daily 18:00 run.
func (s *Service) Start(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("digest schedule is required")
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.Run(ctx)
	}); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Run delivers the buffered items to every digest-enabled user whose
// preferences match, then clears the buffer. Safe to call manually.
func (s *Service) Run(ctx context.Context) {
	s.mu.Lock()
	items := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(items) == 0 {
		s.logger.Debug("digest run skipped, no items buffered")
		return
	}
	if len(items) > maxItemsPerDigest {
		items = items[len(items)-maxItemsPerDigest:]
	}

	// Group per user so each gets one message covering only the items
	// their preferences admit.
	perUser := make(map[string][]models.Item)
	settings := make(map[string]models.UserSettings)
	for _, item := range items {
		profiles, err := s.filter.EligibleUsers(ctx, item, models.DeliveryDigest)
		if err != nil {
			s.logger.Error("digest eligibility failed", "item_id", item.ID, "error", err)
			continue
		}
		for _, p := range profiles {
			perUser[p.Settings.UserID] = append(perUser[p.Settings.UserID], item)
			settings[p.Settings.UserID] = p.Settings
		}
	}

	sent := 0
	for userID, userItems := range perUser {
		err := s.bot.SendDigest(ctx, settings[userID], userItems)
		if err != nil {
			s.logger.Warn("digest send failed", "user_id", userID, "error", err)
		} else {
			sent++
		}
		for _, item := range userItems {
			s.filter.RecordDelivery(ctx, userID, item, models.DeliveryDigest, err == nil)
		}
	}

	s.logger.Info("digest run complete",
		"items", len(items), "recipients", len(perUser), "sent", sent)
}
