package models

import (
	"errors"
	"time"
)

// DefaultCategory is the catch-all bucket for items without a specific
// category. It is exempt from the category allow-list semantics: users with
// configured subscriptions still receive general items that clear their
// global importance threshold.
const DefaultCategory = "general"

// Item is an enriched news item as handed over by the ingestion pipeline
// after AI analysis and persistence.
type Item struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	Category        string    `json:"category"`
	PublishedAt     time.Time `json:"published_at"`
	ImportanceScore int       `json:"importance_score"` // 1..5
	IsUrgent        bool      `json:"is_urgent"`
	MarketImpact    string    `json:"market_impact,omitempty"`
	SentimentScore  float64   `json:"sentiment_score,omitempty"`
}

// DeliveryType is the closed set of delivery kinds. Each variant carries its
// own eligibility-check subset; never branch on raw strings.
type DeliveryType int

const (
	DeliveryUrgent DeliveryType = iota
	DeliveryRegular
	DeliveryDigest
)

var deliveryTypeNames = [...]string{"urgent", "regular", "digest"}

// ErrInvalidDeliveryType is returned when parsing an unknown delivery type.
var ErrInvalidDeliveryType = errors.New("invalid delivery type")

func (t DeliveryType) IsValid() bool {
	return t >= DeliveryUrgent && t <= DeliveryDigest
}

func (t DeliveryType) String() string {
	if !t.IsValid() {
		return "unknown"
	}
	return deliveryTypeNames[t]
}

// ExemptFromDailyCap reports whether the daily notification cap applies.
// Urgent must always reach subscribers; digest is a single daily send.
func (t DeliveryType) ExemptFromDailyCap() bool {
	return t == DeliveryUrgent || t == DeliveryDigest
}

// RequiresDigestFlag reports which settings flag gates this delivery type.
// Urgent and regular are both live-push kinds gated by the urgent flag.
func (t DeliveryType) RequiresDigestFlag() bool {
	return t == DeliveryDigest
}

// ParseDeliveryType converts the wire representation.
func ParseDeliveryType(s string) (DeliveryType, error) {
	for i, name := range deliveryTypeNames {
		if name == s {
			return DeliveryType(i), nil
		}
	}
	return 0, ErrInvalidDeliveryType
}

// CategorySubscription is a per-category override of the global preference.
type CategorySubscription struct {
	IsSubscribed  bool `json:"is_subscribed"`
	MinImportance int  `json:"min_importance"`
}

const (
	// DefaultDailyCap applies when a settings record is missing or carries a
	// nonsensical max-daily value: conservative, never unlimited.
	DefaultDailyCap = 10
	// DefaultMinImportance applies when the global threshold is unset.
	DefaultMinImportance = 3
)

// UserSettings is the persisted notification preference record for one user.
type UserSettings struct {
	UserID                string                          `json:"user_id"`
	ChatID                int64                           `json:"chat_id"`
	UrgentNotifications   bool                            `json:"urgent_notifications"`
	DailyDigest           bool                            `json:"daily_digest"`
	DigestTime            string                          `json:"digest_time,omitempty"`
	MinImportanceScore    int                             `json:"min_importance_score"`
	MaxDailyNotifications int                             `json:"max_daily_notifications"`
	Timezone              string                          `json:"timezone,omitempty"`
	CategorySubscriptions map[string]CategorySubscription `json:"category_subscriptions,omitempty"`
}

// DailyCap returns the effective daily notification cap, substituting the
// conservative default for malformed records.
func (s UserSettings) DailyCap() int {
	if s.MaxDailyNotifications <= 0 {
		return DefaultDailyCap
	}
	return s.MaxDailyNotifications
}

// MinImportance returns the effective global importance threshold.
func (s UserSettings) MinImportance() int {
	if s.MinImportanceScore < 1 || s.MinImportanceScore > 5 {
		return DefaultMinImportance
	}
	return s.MinImportanceScore
}

// DeliveryRecord is one delivery attempt for (user, item, channel).
type DeliveryRecord struct {
	ItemID     string       `json:"item_id"`
	Title      string       `json:"title"`
	Category   string       `json:"category"`
	Importance int          `json:"importance"`
	Type       DeliveryType `json:"type"`
	SentAt     time.Time    `json:"sent_at"`
	Success    bool         `json:"success"`
}

// Profile pairs a user's settings with the ephemeral counters consulted
// during filtering. Built on demand per filtering pass, never persisted
// as a unit.
type Profile struct {
	Settings  UserSettings
	DailySent int
	Recent    []DeliveryRecord
}

// DeliveryStats aggregates a user's delivery history.
type DeliveryStats struct {
	TotalDelivered int            `json:"total_delivered"`
	ByCategory     map[string]int `json:"by_category,omitempty"`
	ByType         map[string]int `json:"by_type,omitempty"`
	LastDeliveryAt time.Time      `json:"last_delivery_at"`
}

// UserDeliveryStats is the full per-user stats view exposed to callers.
type UserDeliveryStats struct {
	UserID    string           `json:"user_id"`
	DailySent int              `json:"daily_sent"`
	Stats     DeliveryStats    `json:"stats"`
	Recent    []DeliveryRecord `json:"recent"`
}

// BatchResult aggregates one coordinator invocation. Transient, returned to
// the caller, never persisted.
type BatchResult struct {
	TotalProcessed   int `json:"total_processed"`
	UrgentBroadcast  int `json:"urgent_broadcast"`
	RegularBroadcast int `json:"regular_broadcast"`
	BotNotifications int `json:"bot_notifications"`
	StreamBroadcasts int `json:"stream_broadcasts"`
}
