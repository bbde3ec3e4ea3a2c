package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"newswire/internal/notify/models"
)

// Retention is TTL-driven: abandoned users' history self-cleans without a
// reaper pass.
const (
	dailyTTL  = 24 * time.Hour
	recentTTL = 7 * 24 * time.Hour
	statsTTL  = 30 * 24 * time.Hour

	recentCap = 20
)

// RedisStore keeps delivery history in Redis: a plain daily counter, a
// bounded fingerprint list, and an aggregate stats hash per user.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed history store.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) DailySent(ctx context.Context, userID string) (int, error) {
	val, err := s.client.Get(ctx, dailyKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get daily counter: %w", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse daily counter: %w", err)
	}
	return n, nil
}

func (s *RedisStore) RecentDeliveries(ctx context.Context, userID string, limit int) ([]models.DeliveryRecord, error) {
	if limit <= 0 || limit > recentCap {
		limit = recentCap
	}
	raw, err := s.client.LRange(ctx, recentKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent deliveries: %w", err)
	}

	records := make([]models.DeliveryRecord, 0, len(raw))
	for _, entry := range raw {
		var rec models.DeliveryRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			// A corrupt fingerprint only weakens duplicate detection;
			// skip it rather than fail the whole lookup.
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisStore) Record(ctx context.Context, userID string, rec models.DeliveryRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode delivery record: %w", err)
	}

	daily := dailyKey(userID)
	recent := recentKey(userID)
	stats := statsKey(userID)

	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, daily)
	pipe.Expire(ctx, daily, dailyTTL)
	pipe.LPush(ctx, recent, payload)
	pipe.LTrim(ctx, recent, 0, recentCap-1)
	pipe.Expire(ctx, recent, recentTTL)
	pipe.HIncrBy(ctx, stats, "total", 1)
	pipe.HIncrBy(ctx, stats, "category:"+rec.Category, 1)
	pipe.HIncrBy(ctx, stats, "type:"+rec.Type.String(), 1)
	pipe.HSet(ctx, stats, "last_delivery_at", rec.SentAt.UTC().Format(time.RFC3339Nano))
	pipe.Expire(ctx, stats, statsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context, userID string) (*models.DeliveryStats, error) {
	fields, err := s.client.HGetAll(ctx, statsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read delivery stats: %w", err)
	}

	stats := &models.DeliveryStats{
		ByCategory: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for field, val := range fields {
		switch {
		case field == "total":
			stats.TotalDelivered, _ = strconv.Atoi(val)
		case field == "last_delivery_at":
			stats.LastDeliveryAt, _ = time.Parse(time.RFC3339Nano, val)
		case strings.HasPrefix(field, "category:"):
			n, _ := strconv.Atoi(val)
			stats.ByCategory[strings.TrimPrefix(field, "category:")] = n
		case strings.HasPrefix(field, "type:"):
			n, _ := strconv.Atoi(val)
			stats.ByType[strings.TrimPrefix(field, "type:")] = n
		}
	}
	return stats, nil
}

// sanitize escapes the key delimiter in user-controlled segments.
func sanitize(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

func dailyKey(userID string) string {
	return "notify:daily:" + sanitize(userID)
}

func recentKey(userID string) string {
	return "notify:recent:" + sanitize(userID)
}

func statsKey(userID string) string {
	return "notify:stats:" + sanitize(userID)
}
