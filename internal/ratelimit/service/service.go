// Package service implements the adaptive rate limiter: sliding-window
// counting with burst tolerance and automatic punitive blocking, backed by
// the shared external store.
//
// Failure posture is fail-open: an unreachable or misbehaving store degrades
// to allowing traffic with a logged warning. Over-throttling is safe to skip;
// an outage must not take the API down with it.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newswire/internal/platform/events"
	"newswire/internal/ratelimit/config"
	"newswire/internal/ratelimit/metrics"
	"newswire/internal/ratelimit/models"
	"newswire/internal/ratelimit/ports"
)

// defaultWaitBackoff is the sleep between retries in WaitUntilAllowed.
const defaultWaitBackoff = 10 * time.Second

type Limiter struct {
	store   ports.WindowStore
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	events  *events.Publisher
	backoff time.Duration
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func WithEventPublisher(p *events.Publisher) Option {
	return func(l *Limiter) {
		l.events = p
	}
}

// WithWaitBackoff overrides the WaitUntilAllowed retry interval (tests).
func WithWaitBackoff(d time.Duration) Option {
	return func(l *Limiter) {
		l.backoff = d
	}
}

func New(store ports.WindowStore, cfg *config.Config, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("window store is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("rule config is required")
	}

	l := &Limiter{
		store:   store,
		config:  cfg,
		logger:  slog.Default(),
		backoff: defaultWaitBackoff,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Check runs one rate limit decision for (identifier, category).
//
// The only error returned is ErrUnknownCategory, a call-contract violation.
// Store trouble never surfaces: an unreachable store fails open with the
// Fallback flag, an unexpected store error fails open with ErrorFallback.
func (l *Limiter) Check(ctx context.Context, identifier string, category models.Category) (*models.Result, error) {
	rule, ok := l.config.Rule(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}

	now := time.Now()

	// Active block entries short-circuit the (cheaper) window check entirely.
	blockTTL, blocked, err := l.store.BlockTTL(ctx, models.BlockKey(identifier, category))
	if err != nil {
		l.logger.Warn("rate limit store unreachable, failing open",
			"identifier", identifier, "category", category, "error", err)
		l.recordCheck(category, "fallback")
		return &models.Result{
			Allowed:   true,
			Fallback:  true,
			Limit:     rule.RequestsPerWindow,
			Remaining: rule.RequestsPerWindow,
			ResetAt:   now.Add(rule.Window),
		}, nil
	}
	if blocked {
		l.recordCheck(category, "blocked")
		return &models.Result{
			Allowed:    false,
			Blocked:    true,
			Limit:      rule.RequestsPerWindow,
			BurstLimit: rule.BurstLimit(),
			ResetAt:    now.Add(blockTTL),
			RetryAfter: ceilSeconds(blockTTL),
		}, nil
	}

	count, err := l.store.Slide(ctx, models.WindowKey(identifier, category), rule.Window)
	if err != nil {
		l.logger.Warn("rate limit check failed, failing open",
			"identifier", identifier, "category", category, "error", err)
		l.recordCheck(category, "error_fallback")
		return &models.Result{
			Allowed:       true,
			ErrorFallback: true,
			Limit:         rule.RequestsPerWindow,
			Remaining:     rule.RequestsPerWindow,
			ResetAt:       now.Add(rule.Window),
		}, nil
	}

	burstLimit := rule.BurstLimit()
	result := &models.Result{
		Count:      count,
		Limit:      rule.RequestsPerWindow,
		BurstLimit: burstLimit,
		Remaining:  max(0, rule.RequestsPerWindow-count),
		ResetAt:    now.Add(rule.Window),
	}

	switch {
	case count <= rule.RequestsPerWindow:
		result.Allowed = true
		l.recordCheck(category, "allowed")

	case count <= burstLimit:
		result.Allowed = true
		result.BurstUsed = true
		l.recordCheck(category, "burst")

	default:
		result.RetryAfter = ceilSeconds(rule.Window)
		l.recordCheck(category, "denied")

		// Sustained abuse escalates to an independent, longer-lived block.
		if count > burstLimit*2 {
			l.createBlock(ctx, identifier, category, rule, count)
		}
	}

	return result, nil
}

// WaitUntilAllowed blocks until a check passes or the context is cancelled.
// Intended for internal callers such as outbound fetchers; inbound handlers
// surface the denial instead.
func (l *Limiter) WaitUntilAllowed(ctx context.Context, identifier string, category models.Category) error {
	for {
		result, err := l.Check(ctx, identifier, category)
		if err != nil {
			return err
		}
		if result.Allowed {
			return nil
		}

		l.logger.Debug("rate limited, waiting",
			"identifier", identifier, "category", category, "retry_after", result.RetryAfter)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}

// Status reports the current window state without consuming a slot.
// Same fail-open posture as Check: store trouble yields an empty status.
func (l *Limiter) Status(ctx context.Context, identifier string, category models.Category) (*models.Status, error) {
	rule, ok := l.config.Rule(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}

	status := &models.Status{
		Category:  category,
		Limit:     rule.RequestsPerWindow,
		Remaining: rule.RequestsPerWindow,
		ResetAt:   time.Now().Add(rule.Window),
	}

	_, blocked, err := l.store.BlockTTL(ctx, models.BlockKey(identifier, category))
	if err != nil {
		l.logger.Warn("rate limit status unavailable",
			"identifier", identifier, "category", category, "error", err)
		return status, nil
	}
	status.Blocked = blocked

	key := models.WindowKey(identifier, category)
	count, err := l.store.Count(ctx, key, rule.Window)
	if err != nil {
		l.logger.Warn("rate limit status unavailable",
			"identifier", identifier, "category", category, "error", err)
		return status, nil
	}
	status.Count = count
	status.Remaining = max(0, rule.RequestsPerWindow-count)

	if oldest, err := l.store.OldestInWindow(ctx, key); err == nil && !oldest.IsZero() {
		status.ResetAt = oldest.Add(rule.Window)
	}

	return status, nil
}

func (l *Limiter) createBlock(ctx context.Context, identifier string, category models.Category, rule models.Rule, count int) {
	if err := l.store.SetBlock(ctx, models.BlockKey(identifier, category), rule.BlockDuration); err != nil {
		l.logger.Warn("failed to create block entry",
			"identifier", identifier, "category", category, "error", err)
		return
	}

	l.logger.Warn("blocked identifier for sustained rate limit abuse",
		"identifier", identifier,
		"category", category,
		"count", count,
		"burst_limit", rule.BurstLimit(),
		"block_duration", rule.BlockDuration)

	if l.metrics != nil {
		l.metrics.RecordBlockCreated()
	}
	l.events.BlockCreated(ctx, events.ViolationEvent{
		Identifier:   identifier,
		Category:     string(category),
		Count:        count,
		BurstLimit:   rule.BurstLimit(),
		BlockSeconds: int(rule.BlockDuration.Seconds()),
		OccurredAt:   time.Now(),
	})
}

func (l *Limiter) recordCheck(category models.Category, outcome string) {
	if l.metrics == nil {
		return
	}
	l.metrics.RecordCheck(string(category), outcome)
	if outcome == "fallback" || outcome == "error_fallback" {
		l.metrics.RecordFallback()
	}
}

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
