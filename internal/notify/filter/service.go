// Package filter decides, per user and per item, whether a delivery should
// occur: preference matching, daily quota enforcement, and duplicate/spam
// suppression.
//
// Failure posture is fail-closed, the inverse of the rate limiter: when the
// backing store cannot be consulted, a user is excluded rather than guessed
// at. Over-throttling is safe, over-delivering is not.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newswire/internal/notify/models"
	"newswire/internal/notify/ports"
	"newswire/internal/platform/events"
)

// recentTitlesChecked bounds the near-duplicate comparison to the user's
// latest deliveries.
const recentTitlesChecked = 10

type Service struct {
	settings ports.SettingsStore
	history  ports.HistoryStore
	logger   *slog.Logger
	events   *events.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventPublisher(p *events.Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func New(settings ports.SettingsStore, history ports.HistoryStore, opts ...Option) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history store is required")
	}

	svc := &Service{
		settings: settings,
		history:  history,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// EligibleUsers resolves the recipient set for one item and delivery type.
// An error means the candidate set itself could not be fetched; callers
// degrade that item to zero recipients. Per-candidate store failures exclude
// only the affected user.
func (s *Service) EligibleUsers(ctx context.Context, item models.Item, deliveryType models.DeliveryType) ([]models.Profile, error) {
	candidates, err := s.candidates(ctx, deliveryType)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	eligible := make([]models.Profile, 0, len(candidates))
	for _, settings := range candidates {
		profile, ok := s.checkUser(ctx, settings, item, deliveryType)
		if ok {
			eligible = append(eligible, profile)
		}
	}
	return eligible, nil
}

func (s *Service) candidates(ctx context.Context, deliveryType models.DeliveryType) ([]models.UserSettings, error) {
	if deliveryType == models.DeliveryDigest {
		return s.settings.ListDigestEnabled(ctx)
	}
	// Urgent and regular share the urgent-notifications flag: both are
	// live-push kinds, digest is the separate batched channel.
	return s.settings.ListUrgentEnabled(ctx)
}

// checkUser runs the per-candidate eligibility chain. The first failing
// check excludes the user.
func (s *Service) checkUser(ctx context.Context, settings models.UserSettings, item models.Item, deliveryType models.DeliveryType) (models.Profile, bool) {
	profile := models.Profile{Settings: settings}

	// Delivery-type flag re-check.
	if deliveryType.RequiresDigestFlag() {
		if !settings.DailyDigest {
			return profile, false
		}
	} else if !settings.UrgentNotifications {
		return profile, false
	}

	// Daily quota applies to regular deliveries only.
	if !deliveryType.ExemptFromDailyCap() {
		sent, err := s.history.DailySent(ctx, settings.UserID)
		if err != nil {
			s.logger.Warn("daily counter unavailable, excluding user",
				"user_id", settings.UserID, "item_id", item.ID, "error", err)
			return profile, false
		}
		profile.DailySent = sent
		if sent >= settings.DailyCap() {
			return profile, false
		}
	}

	// Urgent bypass: urgency outranks personalization. An urgent item on
	// the urgent path skips importance, category, and duplicate checks.
	if deliveryType == models.DeliveryUrgent && item.IsUrgent {
		return profile, true
	}

	if !s.matchesPreferences(settings, item) {
		return profile, false
	}

	recent, err := s.history.RecentDeliveries(ctx, settings.UserID, recentTitlesChecked)
	if err != nil {
		s.logger.Warn("delivery history unavailable, excluding user",
			"user_id", settings.UserID, "item_id", item.ID, "error", err)
		return profile, false
	}
	profile.Recent = recent

	if isLowQuality(item) {
		return profile, false
	}
	if isNearDuplicate(item.Title, recent) {
		return profile, false
	}

	return profile, true
}

// matchesPreferences applies the importance threshold with category
// subscription overrides. A configured category list is an allow-list once
// non-empty; the default bucket stays exempt.
func (s *Service) matchesPreferences(settings models.UserSettings, item models.Item) bool {
	if sub, ok := settings.CategorySubscriptions[item.Category]; ok {
		if !sub.IsSubscribed {
			return false
		}
		return item.ImportanceScore >= sub.MinImportance
	}

	if len(settings.CategorySubscriptions) > 0 && item.Category != models.DefaultCategory {
		return false
	}

	return item.ImportanceScore >= settings.MinImportance()
}

// RecordDelivery appends one delivery attempt to the user's history and
// publishes the delivery event. Best-effort: failures are logged as skipped
// recordings, never surfaced to the caller.
func (s *Service) RecordDelivery(ctx context.Context, userID string, item models.Item, deliveryType models.DeliveryType, success bool) {
	rec := models.DeliveryRecord{
		ItemID:     item.ID,
		Title:      item.Title,
		Category:   item.Category,
		Importance: item.ImportanceScore,
		Type:       deliveryType,
		SentAt:     time.Now(),
		Success:    success,
	}

	if err := s.history.Record(ctx, userID, rec); err != nil {
		s.logger.Warn("delivery recording skipped",
			"user_id", userID, "item_id", item.ID,
			"delivery_type", deliveryType.String(), "error", err)
		return
	}

	s.events.DeliveryRecorded(ctx, events.DeliveryEvent{
		UserID:       userID,
		ItemID:       item.ID,
		Category:     item.Category,
		Importance:   item.ImportanceScore,
		DeliveryType: deliveryType.String(),
		Success:      success,
		OccurredAt:   rec.SentAt,
	})
}

// UserStats returns the combined daily counter, aggregate statistics, and
// recent deliveries for one user.
func (s *Service) UserStats(ctx context.Context, userID string) (*models.UserDeliveryStats, error) {
	daily, err := s.history.DailySent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("daily sent: %w", err)
	}
	stats, err := s.history.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	recent, err := s.history.RecentDeliveries(ctx, userID, recentTitlesChecked)
	if err != nil {
		return nil, fmt.Errorf("recent deliveries: %w", err)
	}

	out := &models.UserDeliveryStats{
		UserID:    userID,
		DailySent: daily,
		Recent:    recent,
	}
	if stats != nil {
		out.Stats = *stats
	}
	return out, nil
}
