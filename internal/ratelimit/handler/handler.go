package handler

import (
	"context"
	"log/slog"
	"net/http"

	"newswire/internal/ratelimit/models"
	"newswire/pkg/platform/httputil"
)

// StatusReader is the read-only limiter surface the handler depends on.
type StatusReader interface {
	Status(ctx context.Context, identifier string, category models.Category) (*models.Status, error)
}

type Handler struct {
	limiter StatusReader
	logger  *slog.Logger
}

func New(limiter StatusReader, logger *slog.Logger) *Handler {
	return &Handler{limiter: limiter, logger: logger}
}

// Status reports the caller's current window for a category.
// GET /v1/ratelimit/status?category=general
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	category := models.Category(r.URL.Query().Get("category"))
	if category == "" {
		category = models.CategoryGeneral
	}
	if !category.IsValid() {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_category",
			"message": "unknown rate limit category",
		})
		return
	}

	status, err := h.limiter.Status(r.Context(), httputil.ClientIP(r), category)
	if err != nil {
		h.logger.Error("failed to read rate limit status", "error", err, "category", category)
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal_error",
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, status)
}
