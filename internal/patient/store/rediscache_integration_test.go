//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medicus/internal/patient/models"
	"medicus/internal/patient/store"
	"medicus/pkg/platform/sentinel"
	"medicus/pkg/testutil/containers"
)

type CachedStoreSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backend *store.InMemory
	cached  *store.CachedStore
}

func TestCachedStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedStoreSuite))
}

func (s *CachedStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CachedStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.backend = store.NewInMemory()
	s.cached = store.NewCachedStore(s.backend, s.redis.Client, store.WithCacheTTL(time.Minute))
}

func (s *CachedStoreSuite) insert(first string) *models.Patient {
	now := time.Now().UTC().Truncate(time.Millisecond)
	stored, err := s.cached.Insert(context.Background(), &models.Patient{
		FirstName: first,
		LastName:  "Tester",
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.Require().NoError(err)
	return stored
}

// TestReadThrough verifies a second read is served from the cache.
func (s *CachedStoreSuite) TestReadThrough() {
	ctx := context.Background()
	stored := s.insert("Asha")

	found, err := s.cached.FindByID(ctx, stored.ID)
	s.Require().NoError(err)
	s.Equal("Asha", found.FirstName)

	// Mutate the backend directly; the cached copy should still win.
	stored.FirstName = "Changed"
	s.Require().NoError(s.backend.Update(ctx, stored))

	cachedCopy, err := s.cached.FindByID(ctx, stored.ID)
	s.Require().NoError(err)
	s.Equal("Asha", cachedCopy.FirstName)
}

// TestUpdateInvalidates verifies writes drop the cached entry.
func (s *CachedStoreSuite) TestUpdateInvalidates() {
	ctx := context.Background()
	stored := s.insert("Mira")

	_, err := s.cached.FindByID(ctx, stored.ID)
	s.Require().NoError(err)

	stored.FirstName = "Renamed"
	s.Require().NoError(s.cached.Update(ctx, stored))

	found, err := s.cached.FindByID(ctx, stored.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", found.FirstName)
}

// TestDeleteInvalidates verifies a purged record is not resurrected from
// the cache.
func (s *CachedStoreSuite) TestDeleteInvalidates() {
	ctx := context.Background()
	stored := s.insert("Gone")

	_, err := s.cached.FindByID(ctx, stored.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.cached.DeleteByID(ctx, stored.ID))

	_, err = s.cached.FindByID(ctx, stored.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestMissPropagatesNotFound verifies a cache miss on an unknown record
// surfaces the backend error.
func (s *CachedStoreSuite) TestMissPropagatesNotFound() {
	ctx := context.Background()
	stored := s.insert("Known")
	s.Require().NoError(s.backend.DeleteByID(ctx, stored.ID))

	_, err := s.cached.FindByID(ctx, stored.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
