//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medicus/internal/patient/models"
	"medicus/internal/patient/store"
	id "medicus/pkg/domain"
	"medicus/pkg/platform/sentinel"
	"medicus/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), store.Schema)
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "patients"))
}

func newTestPatient(first, email, phone string) *models.Patient {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Patient{
		FirstName: first,
		LastName:  "Tester",
		Email:     email,
		Phone:     phone,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestRoundTrip verifies insert, lookup, update and delete against a
// real database.
func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()

	stored, err := s.store.Insert(ctx, newTestPatient("Asha", "asha@example.com", "+919123456789"))
	s.Require().NoError(err)
	s.False(stored.ID.IsNil())

	found, err := s.store.FindByID(ctx, stored.ID)
	s.Require().NoError(err)
	s.Equal("Asha", found.FirstName)
	s.Equal("asha@example.com", found.Email)
	s.Equal(models.StatusActive, found.Status)

	found.LastName = "Renamed"
	found.Status = models.StatusDeleted
	s.Require().NoError(s.store.Update(ctx, found))

	updated, err := s.store.FindByID(ctx, stored.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", updated.LastName)
	s.Equal(models.StatusDeleted, updated.Status)

	s.Require().NoError(s.store.DeleteByID(ctx, stored.ID))
	_, err = s.store.FindByID(ctx, stored.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.Require().ErrorIs(s.store.DeleteByID(ctx, stored.ID), sentinel.ErrNotFound)
}

// TestEmptyContactsStoredAsNull verifies the empty-string absence
// convention does not trip the partial unique indexes.
func (s *PostgresStoreSuite) TestEmptyContactsStoredAsNull() {
	ctx := context.Background()

	first, err := s.store.Insert(ctx, newTestPatient("One", "", ""))
	s.Require().NoError(err)

	_, err = s.store.Insert(ctx, newTestPatient("Two", "", ""))
	s.Require().NoError(err)

	found, err := s.store.FindByID(ctx, first.ID)
	s.Require().NoError(err)
	s.Empty(found.Email)
	s.Empty(found.Phone)
}

// TestConcurrentDuplicateEmail verifies the partial unique index lets
// exactly one of many concurrent inserts win.
func (s *PostgresStoreSuite) TestConcurrentDuplicateEmail() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Insert(ctx, newTestPatient("Race", "race@example.com", ""))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one insert should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should conflict")
}

// TestSoftDeletedContactsReusable verifies deleting a record frees its
// email and phone for a new active record.
func (s *PostgresStoreSuite) TestSoftDeletedContactsReusable() {
	ctx := context.Background()

	stored, err := s.store.Insert(ctx, newTestPatient("Old", "reuse@example.com", "+919876543210"))
	s.Require().NoError(err)

	stored.Status = models.StatusDeleted
	s.Require().NoError(s.store.Update(ctx, stored))

	_, err = s.store.Insert(ctx, newTestPatient("New", "reuse@example.com", "+919876543210"))
	s.Require().NoError(err)
}

// TestExistenceChecks verifies active-scoped duplicate queries.
func (s *PostgresStoreSuite) TestExistenceChecks() {
	ctx := context.Background()

	_, err := s.store.Insert(ctx, newTestPatient("Asha", "asha@example.com", "+919123456789"))
	s.Require().NoError(err)

	deleted, err := s.store.Insert(ctx, newTestPatient("Gone", "gone@example.com", "+911111111111"))
	s.Require().NoError(err)
	deleted.Status = models.StatusDeleted
	s.Require().NoError(s.store.Update(ctx, deleted))

	ok, err := s.store.ExistsActiveByEmail(ctx, "asha@example.com")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.ExistsActiveByEmail(ctx, "gone@example.com")
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.store.ExistsActiveByEmailOrPhone(ctx, "nobody@example.com", "+919123456789")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.ExistsActiveByEmailOrPhone(ctx, "", "")
	s.Require().NoError(err)
	s.False(ok)
}

// TestSearchActive verifies ILIKE matching, paging and like-escaping.
func (s *PostgresStoreSuite) TestSearchActive() {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		p := newTestPatient("Anna", "", "")
		p.FirstName = "Anna" + string(rune('0'+i))
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := s.store.Insert(ctx, p)
		s.Require().NoError(err)
	}
	_, err := s.store.Insert(ctx, newTestPatient("Bob", "", "+14155552671"))
	s.Require().NoError(err)

	deleted, err := s.store.Insert(ctx, newTestPatient("Annabelle", "", ""))
	s.Require().NoError(err)
	deleted.Status = models.StatusDeleted
	s.Require().NoError(s.store.Update(ctx, deleted))

	items, total, err := s.store.SearchActive(ctx, "anna", 0, 10)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Len(items, 5)

	items, total, err = s.store.SearchActive(ctx, "415555", 0, 10)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("Bob", items[0].FirstName)

	items, total, err = s.store.SearchActive(ctx, "anna", 2, 2)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Require().Len(items, 2)
	s.Equal("Anna2", items[0].FirstName)

	// Wildcards in the query are literals, not patterns.
	_, total, err = s.store.SearchActive(ctx, "%", 0, 10)
	s.Require().NoError(err)
	s.Zero(total)
}

// TestSQLTxRollback verifies that a failing unit of work leaves no rows
// behind.
func (s *PostgresStoreSuite) TestSQLTxRollback() {
	ctx := context.Background()
	runner := store.NewSQLTx(s.postgres.DB)

	var insertedID id.PatientID
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		stored, err := s.store.Insert(ctx, newTestPatient("Rollback", "rollback@example.com", ""))
		if err != nil {
			return err
		}
		insertedID = stored.ID
		return errors.New("abort")
	})
	s.Require().Error(err)

	_, err = s.store.FindByID(ctx, insertedID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
