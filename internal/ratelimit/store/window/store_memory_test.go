package window

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// In-Memory Window Store Test Suite
// =============================================================================

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
}

func (s *MemoryStoreSuite) TestSlideReturnsPreInsertCount() {
	ctx := context.Background()

	for want := 0; want < 5; want++ {
		count, err := s.store.Slide(ctx, "k", time.Minute)
		s.Require().NoError(err)
		s.Equal(want, count)
	}

	count, err := s.store.Count(ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Equal(5, count)
}

func (s *MemoryStoreSuite) TestSlidePurgesExpiredEntries() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.store.Slide(ctx, "k", time.Minute)
		s.Require().NoError(err)
	}

	// Age the recorded timestamps past the window instead of sleeping.
	s.store.mu.Lock()
	sw := s.store.windows["k"]
	for i := range sw.timestamps {
		sw.timestamps[i] = sw.timestamps[i].Add(-2 * time.Minute)
	}
	s.store.mu.Unlock()

	count, err := s.store.Slide(ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *MemoryStoreSuite) TestKeysAreIndependent() {
	ctx := context.Background()

	_, err := s.store.Slide(ctx, "a", time.Minute)
	s.Require().NoError(err)

	count, err := s.store.Count(ctx, "b", time.Minute)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *MemoryStoreSuite) TestBlockLifecycle() {
	ctx := context.Background()

	s.Run("no block by default", func() {
		_, blocked, err := s.store.BlockTTL(ctx, "b")
		s.Require().NoError(err)
		s.False(blocked)
	})

	s.Run("active block reports remaining ttl", func() {
		s.Require().NoError(s.store.SetBlock(ctx, "b", time.Minute))

		ttl, blocked, err := s.store.BlockTTL(ctx, "b")
		s.Require().NoError(err)
		s.True(blocked)
		s.Greater(ttl, 50*time.Second)
	})

	s.Run("expired block reads as absent", func() {
		s.store.mu.Lock()
		s.store.blocks["b"] = time.Now().Add(-time.Second)
		s.store.mu.Unlock()

		_, blocked, err := s.store.BlockTTL(ctx, "b")
		s.Require().NoError(err)
		s.False(blocked)
	})

	s.Run("reset clears both window and block", func() {
		s.Require().NoError(s.store.SetBlock(ctx, "b", time.Minute))
		_, err := s.store.Slide(ctx, "b", time.Minute)
		s.Require().NoError(err)

		s.Require().NoError(s.store.Reset(ctx, "b"))

		count, err := s.store.Count(ctx, "b", time.Minute)
		s.Require().NoError(err)
		s.Equal(0, count)

		_, blocked, err := s.store.BlockTTL(ctx, "b")
		s.Require().NoError(err)
		s.False(blocked)
	})
}

func (s *MemoryStoreSuite) TestOldestInWindow() {
	ctx := context.Background()

	oldest, err := s.store.OldestInWindow(ctx, "k")
	s.Require().NoError(err)
	s.True(oldest.IsZero())

	_, err = s.store.Slide(ctx, "k", time.Minute)
	s.Require().NoError(err)

	oldest, err = s.store.OldestInWindow(ctx, "k")
	s.Require().NoError(err)
	s.WithinDuration(time.Now(), oldest, time.Second)
}
