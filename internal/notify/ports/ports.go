// Package ports defines shared interfaces for the notify module.
// Interfaces are placed here when consumed by multiple services to avoid
// duplication.
package ports

import (
	"context"

	"newswire/internal/notify/models"
)

// SettingsStore reads persisted user notification settings.
type SettingsStore interface {
	// Get returns the settings record for one user, nil when absent.
	Get(ctx context.Context, userID string) (*models.UserSettings, error)

	// ListUrgentEnabled returns users with urgent notifications enabled
	// (candidates for urgent and regular deliveries).
	ListUrgentEnabled(ctx context.Context) ([]models.UserSettings, error)

	// ListDigestEnabled returns users with the daily digest enabled.
	ListDigestEnabled(ctx context.Context) ([]models.UserSettings, error)
}

// HistoryStore keeps the ephemeral per-user delivery history in the shared
// external store: daily counters, recent fingerprints, aggregate stats.
type HistoryStore interface {
	// DailySent returns notifications already counted against today's cap.
	DailySent(ctx context.Context, userID string) (int, error)

	// RecentDeliveries returns up to limit fingerprints, most recent first.
	RecentDeliveries(ctx context.Context, userID string, limit int) ([]models.DeliveryRecord, error)

	// Record appends a delivery attempt: bumps the daily counter, pushes
	// the fingerprint, updates aggregate stats. Atomic per user.
	Record(ctx context.Context, userID string, rec models.DeliveryRecord) error

	// Stats returns the aggregate delivery statistics for one user.
	Stats(ctx context.Context, userID string) (*models.DeliveryStats, error)
}

// StreamSender is the low-latency broadcast-to-all channel. Fire and forget:
// there is no per-recipient acknowledgment.
type StreamSender interface {
	Send(item models.Item)
}

// SendOutcome is one per-recipient bot send result.
type SendOutcome struct {
	UserID  string
	Success bool
}

// BotSender is the per-recipient message channel. SendToUsers returns one
// outcome per recipient actually attempted; the error is reserved for
// channel-level failure. SendDigest delivers a day's items as one message.
type BotSender interface {
	SendToUsers(ctx context.Context, recipients []models.Profile, item models.Item, deliveryType models.DeliveryType) ([]SendOutcome, error)
	SendDigest(ctx context.Context, recipient models.UserSettings, items []models.Item) error
}
