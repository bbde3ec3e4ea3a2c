package models

import (
	"errors"
	"math"
	"time"
)

// Category identifies a rate limit rule set. Every inbound surface and
// internal caller checks against exactly one category.
type Category string

const (
	// CategoryGeneral: default API traffic.
	CategoryGeneral Category = "general"
	// CategoryAuth: authentication endpoints.
	CategoryAuth Category = "auth"
	// CategoryBroadcast: item ingestion / broadcast triggering.
	CategoryBroadcast Category = "broadcast"
	// CategoryRegistration: subscriber sign-up.
	CategoryRegistration Category = "registration"
	// CategoryPasswordReset: password reset requests.
	CategoryPasswordReset Category = "password_reset"
	// CategoryChannelConnect: stream channel connection upgrades.
	CategoryChannelConnect Category = "channel_connect"
)

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryGeneral, CategoryAuth, CategoryBroadcast,
		CategoryRegistration, CategoryPasswordReset, CategoryChannelConnect:
		return true
	}
	return false
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// ErrUnknownCategory is returned when a check is issued for a category with
// no registered rule. This is a call-contract violation, not a runtime
// condition, and is the only error the limiter surfaces.
var ErrUnknownCategory = errors.New("unknown rate limit category")

// Rule is the static configuration for one category. Immutable after startup.
type Rule struct {
	RequestsPerWindow int
	Window            time.Duration
	BurstMultiplier   float64
	BlockDuration     time.Duration
}

// BurstLimit is the hard per-window ceiling: requests beyond
// RequestsPerWindow but within BurstLimit are tolerated as burst.
func (r Rule) BurstLimit() int {
	return int(math.Floor(float64(r.RequestsPerWindow) * r.BurstMultiplier))
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed bool `json:"allowed"`

	// BurstUsed flags an allowed request that landed in the burst band
	// above the nominal per-window limit.
	BurstUsed bool `json:"burst_used,omitempty"`

	// Blocked flags a denial caused by an active block entry rather than
	// the sliding window.
	Blocked bool `json:"blocked,omitempty"`

	// Fallback flags a fail-open decision taken because the store was
	// unreachable; ErrorFallback the same for an unexpected store error.
	Fallback      bool `json:"fallback,omitempty"`
	ErrorFallback bool `json:"error_fallback,omitempty"`

	Count      int       `json:"count"`
	Limit      int       `json:"limit"`
	BurstLimit int       `json:"burst_limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when denied
}

// Status is the read-only view of a (identifier, category) window.
type Status struct {
	Category  Category  `json:"category"`
	Count     int       `json:"count"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Blocked   bool      `json:"blocked"`
	ResetAt   time.Time `json:"reset_at"`
}
