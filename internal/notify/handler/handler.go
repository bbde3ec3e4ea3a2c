package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"newswire/internal/notify/models"
	"newswire/pkg/platform/httputil"
)

// Broadcaster runs the fan-out pipeline for a batch of items.
type Broadcaster interface {
	ProcessAndBroadcast(ctx context.Context, items []models.Item) *models.BatchResult
}

// StatsReader reports per-user delivery statistics.
type StatsReader interface {
	UserStats(ctx context.Context, userID string) (*models.UserDeliveryStats, error)
}

// DigestQueue receives items for the scheduled daily summary.
type DigestQueue interface {
	Add(items ...models.Item)
}

type Handler struct {
	broadcaster Broadcaster
	stats       StatsReader
	digest      DigestQueue
	logger      *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithDigestQueue enables queueing of ingested items for digest delivery.
func WithDigestQueue(q DigestQueue) Option {
	return func(h *Handler) { h.digest = q }
}

func New(broadcaster Broadcaster, stats StatsReader, opts ...Option) *Handler {
	h := &Handler{
		broadcaster: broadcaster,
		stats:       stats,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type ingestRequest struct {
	Items []models.Item `json:"items"`
}

// Ingest accepts a batch of news items and runs the broadcast pipeline.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "items is required"})
		return
	}

	items := make([]models.Item, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ID == "" || item.Title == "" {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "item id and title are required"})
			return
		}
		if item.Category == "" {
			item.Category = models.DefaultCategory
		}
		if item.ImportanceScore < 1 {
			item.ImportanceScore = 1
		}
		if item.ImportanceScore > 5 {
			item.ImportanceScore = 5
		}
		items = append(items, item)
	}

	result := h.broadcaster.ProcessAndBroadcast(r.Context(), items)

	if h.digest != nil {
		h.digest.Add(items...)
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// UserStats returns delivery statistics for one user.
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "user id is required"})
		return
	}

	stats, err := h.stats.UserStats(r.Context(), userID)
	if err != nil {
		h.logger.Error("user stats lookup failed", "user_id", userID, "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats lookup failed"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
