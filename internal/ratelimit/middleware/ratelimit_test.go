package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"newswire/internal/ratelimit/models"
)

// =============================================================================
// Rate Limit Middleware Test Suite
// =============================================================================

type MiddlewareSuite struct {
	suite.Suite
	limiter *stubLimiter
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.limiter = &stubLimiter{
		result: &models.Result{
			Allowed:   true,
			Limit:     100,
			Remaining: 99,
			ResetAt:   time.Now().Add(time.Minute),
		},
	}
}

type stubLimiter struct {
	result     *models.Result
	err        error
	lastID     string
	lastCat    models.Category
	checkCalls int
}

func (s *stubLimiter) Check(_ context.Context, identifier string, category models.Category) (*models.Result, error) {
	s.checkCalls++
	s.lastID = identifier
	s.lastCat = category
	return s.result, s.err
}

func (s *MiddlewareSuite) serve(m *Middleware) *httptest.ResponseRecorder {
	handler := m.RateLimit(models.CategoryGeneral)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newMiddleware(limiter Limiter, opts ...Option) *Middleware {
	return New(limiter, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func (s *MiddlewareSuite) TestAllowedRequestPassesWithHeaders() {
	rec := s.serve(newMiddleware(s.limiter))

	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("100", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("99", rec.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rec.Header().Get("X-RateLimit-Reset"))
	s.Equal("198.51.100.7", s.limiter.lastID)
	s.Equal(models.CategoryGeneral, s.limiter.lastCat)
}

func (s *MiddlewareSuite) TestDeniedRequestGets429() {
	s.limiter.result = &models.Result{
		Allowed:    false,
		Limit:      100,
		RetryAfter: 60,
		ResetAt:    time.Now().Add(time.Minute),
	}

	rec := s.serve(newMiddleware(s.limiter))

	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("60", rec.Header().Get("Retry-After"))
	s.Contains(rec.Body.String(), "rate_limit_exceeded")
}

func (s *MiddlewareSuite) TestBlockedRequestGetsBlockedCode() {
	s.limiter.result = &models.Result{
		Allowed:    false,
		Blocked:    true,
		RetryAfter: 120,
		ResetAt:    time.Now().Add(2 * time.Minute),
	}

	rec := s.serve(newMiddleware(s.limiter))

	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Contains(rec.Body.String(), "temporarily_blocked")
}

func (s *MiddlewareSuite) TestLimiterErrorFailsOpen() {
	s.limiter.result = nil
	s.limiter.err = errors.New("unknown category")

	rec := s.serve(newMiddleware(s.limiter))

	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *MiddlewareSuite) TestDisabledSkipsChecks() {
	rec := s.serve(newMiddleware(s.limiter, WithDisabled(true)))

	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal(0, s.limiter.checkCalls)
	s.Empty(rec.Header().Get("X-RateLimit-Limit"))
}
