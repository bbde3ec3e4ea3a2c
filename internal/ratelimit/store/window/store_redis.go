package window

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyTTLBuffer is added on top of the window so abandoned keys self-clean
// shortly after they stop mattering.
const keyTTLBuffer = 60 * time.Second

// RedisStore implements WindowStore on Redis sorted sets. Scores are
// nanosecond timestamps; members carry a random suffix so concurrent
// requests in the same nanosecond never collapse into one entry.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed window store.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Slide(ctx context.Context, key string, window time.Duration) (int, error) {
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()[:8]

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, window+keyTTLBuffer)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("slide window: %w", err)
	}

	return int(card.Val()), nil
}

func (s *RedisStore) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	cutoff := strconv.FormatInt(time.Now().Add(-window).UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count window: %w", err)
	}

	return int(card.Val()), nil
}

func (s *RedisStore) OldestInWindow(ctx context.Context, key string) (time.Time, error) {
	entries, err := s.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("oldest in window: %w", err)
	}
	if len(entries) == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, int64(entries[0].Score)), nil
}

func (s *RedisStore) SetBlock(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("set block: %w", err)
	}
	return nil
}

func (s *RedisStore) BlockTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("block ttl: %w", err)
	}
	// -2 means no key, -1 no expiry; block markers always carry a TTL.
	if ttl <= 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset window: %w", err)
	}
	return nil
}
