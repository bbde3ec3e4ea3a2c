package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"newswire/internal/ratelimit/models"
	"newswire/pkg/platform/httputil"
)

// Limiter is the checking surface the middleware depends on.
type Limiter interface {
	Check(ctx context.Context, identifier string, category models.Category) (*models.Result, error)
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit gates requests against the given category keyed by client IP.
// A limiter error other than a contract violation never blocks traffic.
func (m *Middleware) RateLimit(category models.Category) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := httputil.ClientIP(r)

			result, err := m.limiter.Check(r.Context(), ip, category)
			if err != nil {
				m.logger.Error("failed to check rate limit", "error", err, "category", category)
				next.ServeHTTP(w, r)
				return
			}

			// Add headers regardless of outcome
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))

	message := "Too many requests. Please try again later."
	errCode := "rate_limit_exceeded"
	if result.Blocked {
		errCode = "temporarily_blocked"
		message = "Temporarily blocked due to sustained request volume."
	}

	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       errCode,
		"message":     message,
		"retry_after": result.RetryAfter,
	})
}
