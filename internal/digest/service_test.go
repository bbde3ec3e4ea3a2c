package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"newswire/internal/notify/models"
	"newswire/internal/notify/ports"
)

// =============================================================================
// Digest Service Test Suite
// =============================================================================

type DigestSuite struct {
	suite.Suite
	filter  *stubFilter
	bot     *stubBot
	service *Service
}

func TestDigestSuite(t *testing.T) {
	suite.Run(t, new(DigestSuite))
}

func (s *DigestSuite) SetupTest() {
	s.filter = &stubFilter{eligible: map[string][]string{}}
	s.bot = &stubBot{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.service, err = New(s.filter, s.bot, WithLogger(logger))
	s.Require().NoError(err)
}

// stubFilter maps item ID to the user IDs eligible for it.
type stubFilter struct {
	mu       sync.Mutex
	eligible map[string][]string
	recorded []string // "userID/itemID/success"
}

func (f *stubFilter) EligibleUsers(_ context.Context, item models.Item, _ models.DeliveryType) ([]models.Profile, error) {
	out := make([]models.Profile, 0)
	for _, userID := range f.eligible[item.ID] {
		out = append(out, models.Profile{Settings: models.UserSettings{UserID: userID}})
	}
	return out, nil
}

func (f *stubFilter) RecordDelivery(_ context.Context, userID string, item models.Item, _ models.DeliveryType, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	suffix := "/ok"
	if !success {
		suffix = "/failed"
	}
	f.recorded = append(f.recorded, userID+"/"+item.ID+suffix)
}

type stubBot struct {
	mu      sync.Mutex
	sendErr error
	digests map[string]int // userID -> item count
}

func (b *stubBot) SendToUsers(context.Context, []models.Profile, models.Item, models.DeliveryType) ([]ports.SendOutcome, error) {
	return nil, nil
}

func (b *stubBot) SendDigest(_ context.Context, recipient models.UserSettings, items []models.Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	if b.digests == nil {
		b.digests = make(map[string]int)
	}
	b.digests[recipient.UserID] = len(items)
	return nil
}

func (s *DigestSuite) TestRunGroupsItemsPerUser() {
	s.filter.eligible["a"] = []string{"u-1", "u-2"}
	s.filter.eligible["b"] = []string{"u-1"}

	s.service.Add(
		models.Item{ID: "a", Title: "First"},
		models.Item{ID: "b", Title: "Second"},
	)
	s.service.Run(context.Background())

	s.Equal(2, s.bot.digests["u-1"])
	s.Equal(1, s.bot.digests["u-2"])
	s.Len(s.filter.recorded, 3)
	s.Contains(s.filter.recorded, "u-1/a/ok")
	s.Contains(s.filter.recorded, "u-1/b/ok")
	s.Contains(s.filter.recorded, "u-2/a/ok")
}

func (s *DigestSuite) TestRunClearsBuffer() {
	s.filter.eligible["a"] = []string{"u-1"}

	s.service.Add(models.Item{ID: "a", Title: "Once"})
	s.service.Run(context.Background())
	s.Equal(1, s.bot.digests["u-1"])

	s.bot.digests = nil
	s.service.Run(context.Background())
	s.Empty(s.bot.digests)
}

func (s *DigestSuite) TestSendFailureRecordedAsUnsuccessful() {
	s.filter.eligible["a"] = []string{"u-1"}
	s.bot.sendErr = errors.New("bot down")

	s.service.Add(models.Item{ID: "a", Title: "Failing"})
	s.service.Run(context.Background())

	s.Equal([]string{"u-1/a/failed"}, s.filter.recorded)
}

func (s *DigestSuite) TestEmptyRunIsANoOp() {
	s.service.Run(context.Background())
	s.Empty(s.bot.digests)
	s.Empty(s.filter.recorded)
}
