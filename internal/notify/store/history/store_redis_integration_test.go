//go:build integration

package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"newswire/internal/notify/models"
	"newswire/internal/notify/store/history"
	"newswire/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *history.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = history.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func record(itemID, title string) models.DeliveryRecord {
	return models.DeliveryRecord{
		ItemID:     itemID,
		Title:      title,
		Category:   "stocks",
		Importance: 4,
		Type:       models.DeliveryRegular,
		SentAt:     time.Now().UTC().Truncate(time.Millisecond),
		Success:    true,
	}
}

func (s *RedisStoreSuite) TestDailyCounter() {
	ctx := context.Background()

	sent, err := s.store.DailySent(ctx, "u-1")
	s.Require().NoError(err)
	s.Equal(0, sent)

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Record(ctx, "u-1", record("i", "t")))
	}

	sent, err = s.store.DailySent(ctx, "u-1")
	s.Require().NoError(err)
	s.Equal(3, sent)

	// Other users are unaffected.
	sent, err = s.store.DailySent(ctx, "u-2")
	s.Require().NoError(err)
	s.Equal(0, sent)
}

func (s *RedisStoreSuite) TestRecentDeliveriesNewestFirst() {
	ctx := context.Background()

	s.Require().NoError(s.store.Record(ctx, "u-1", record("i-1", "First Title")))
	s.Require().NoError(s.store.Record(ctx, "u-1", record("i-2", "Second Title")))

	recent, err := s.store.RecentDeliveries(ctx, "u-1", 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("i-2", recent[0].ItemID)
	s.Equal("i-1", recent[1].ItemID)
}

func (s *RedisStoreSuite) TestRecentDeliveriesIsCapped() {
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		s.Require().NoError(s.store.Record(ctx, "u-1", record("i", "t")))
	}

	recent, err := s.store.RecentDeliveries(ctx, "u-1", 0)
	s.Require().NoError(err)
	s.Len(recent, 20)
}

func (s *RedisStoreSuite) TestCorruptEntriesAreSkipped() {
	ctx := context.Background()

	s.Require().NoError(s.store.Record(ctx, "u-1", record("i-1", "Valid")))
	s.Require().NoError(s.redis.Client.LPush(ctx, "notify:recent:u-1", "not-json").Err())

	recent, err := s.store.RecentDeliveries(ctx, "u-1", 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal("i-1", recent[0].ItemID)
}

func (s *RedisStoreSuite) TestStatsAggregation() {
	ctx := context.Background()

	s.Require().NoError(s.store.Record(ctx, "u-1", record("i-1", "A")))
	urgent := record("i-2", "B")
	urgent.Type = models.DeliveryUrgent
	urgent.Category = "crypto"
	s.Require().NoError(s.store.Record(ctx, "u-1", urgent))

	stats, err := s.store.Stats(ctx, "u-1")
	s.Require().NoError(err)
	s.Equal(2, stats.TotalDelivered)
	s.Equal(1, stats.ByCategory["stocks"])
	s.Equal(1, stats.ByCategory["crypto"])
	s.Equal(1, stats.ByType[models.DeliveryRegular.String()])
	s.Equal(1, stats.ByType[models.DeliveryUrgent.String()])
	s.False(stats.LastDeliveryAt.IsZero())
}
