package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
	apperrors "github.com/ubc/wiki-cwl-link/internal/errors"
	"github.com/ubc/wiki-cwl-link/internal/ports"
	"github.com/ubc/wiki-cwl-link/internal/testutil"
)

func createJaneLink(t *testing.T, repo *LinkRepo, localUserID int64) *identity.LinkRecord {
	t.Helper()
	rec, err := repo.Create(context.Background(), identity.CreateLinkRequest{
		LocalUserID:       localUserID,
		ExternalLoginName: "jsmith99",
		PersonID:          "PUID-1234",
		Affiliations:      identity.NewAffiliationSet("student"),
		DisplayName:       "Jane Smith",
	})
	require.NoError(t, err)
	return rec
}

func TestLinkRepo_CreateAndGetByExternalLogin(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")

		rec := createJaneLink(t, repo, 42)
		assert.Equal(t, "student", rec.CurrentAffiliations)
		assert.Equal(t, "student", rec.HistoricalAffiliations)
		assert.False(t, rec.CreatedAt.IsZero())

		linked, err := repo.GetByExternalLogin(context.Background(), "jsmith99")
		require.NoError(t, err)
		assert.Equal(t, int64(42), linked.Link.LocalUserID)
		assert.Equal(t, "Janesmith", linked.LocalUsername)
		assert.Equal(t, "Jane Smith", linked.Link.DisplayName)
	})
}

func TestLinkRepo_GetByExternalLoginNotFound(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)

		_, err := repo.GetByExternalLogin(context.Background(), "nobody")
		assert.ErrorIs(t, err, ports.ErrLinkNotFound)
	})
}

func TestLinkRepo_GetByLocalUser(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")
		createJaneLink(t, repo, 42)

		rec, err := repo.GetByLocalUser(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, "jsmith99", rec.ExternalLoginName)

		_, err = repo.GetByLocalUser(context.Background(), 7)
		assert.ErrorIs(t, err, ports.ErrLinkNotFound)
	})
}

func TestLinkRepo_CreateDuplicateExternalLogin(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")
		testutil.InsertWikiUser(t, db, 43, "Janesmith1")
		createJaneLink(t, repo, 42)

		_, err := repo.Create(context.Background(), identity.CreateLinkRequest{
			LocalUserID:       43,
			ExternalLoginName: "jsmith99",
			PersonID:          "PUID-1234",
			Affiliations:      identity.NewAffiliationSet("student"),
			DisplayName:       "Jane Smith",
		})

		require.True(t, apperrors.IsConflict(err))
		assert.Equal(t, "external_login_name", apperrors.GetField(err))
	})
}

func TestLinkRepo_CreateDuplicateLocalUser(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")
		createJaneLink(t, repo, 42)

		_, err := repo.Create(context.Background(), identity.CreateLinkRequest{
			LocalUserID:       42,
			ExternalLoginName: "other",
			PersonID:          "PUID-9999",
			Affiliations:      identity.NewAffiliationSet("staff"),
			DisplayName:       "Other Person",
		})

		require.True(t, apperrors.IsConflict(err))
		assert.Equal(t, "local_user_id", apperrors.GetField(err))
	})
}

func TestLinkRepo_CreateValidation(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)

		_, err := repo.Create(context.Background(), identity.CreateLinkRequest{
			LocalUserID:       42,
			ExternalLoginName: "   ",
		})
		require.Error(t, err)
	})
}

func TestLinkRepo_Update(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")
		created := createJaneLink(t, repo, 42)

		updated, err := repo.Update(context.Background(), 42, identity.UpdateLinkRequest{
			PersonID:               "PUID-1234",
			CurrentAffiliations:    identity.NewAffiliationSet("staff"),
			HistoricalAffiliations: identity.NewAffiliationSet("staff", "student"),
			DisplayName:            "Jane Smith-Lee",
		})

		require.NoError(t, err)
		assert.Equal(t, "staff", updated.CurrentAffiliations)
		assert.Equal(t, "staff student", updated.HistoricalAffiliations)
		assert.Equal(t, "Jane Smith-Lee", updated.DisplayName)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
	})
}

func TestLinkRepo_UpdateUnknownUser(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)

		_, err := repo.Update(context.Background(), 42, identity.UpdateLinkRequest{
			PersonID: "PUID-1234",
		})
		assert.ErrorIs(t, err, ports.ErrLinkNotFound)
	})
}

func TestLinkRepo_EmptyAffiliationsStoreAsEmptyString(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")

		rec, err := repo.Create(context.Background(), identity.CreateLinkRequest{
			LocalUserID:       42,
			ExternalLoginName: "jsmith99",
			PersonID:          "PUID-1234",
			Affiliations:      nil,
			DisplayName:       "Jane Smith",
		})

		require.NoError(t, err)
		assert.Equal(t, "", rec.CurrentAffiliations)
		assert.True(t, identity.ParseAffiliations(rec.CurrentAffiliations).IsEmpty())
	})
}

func TestLinkRepo_CreateStampsProvidedTime(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewLinkRepo(db)
		fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		repo.timeProvider = NewFixedTimeProvider(fixed)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")

		rec := createJaneLink(t, repo, 42)

		assert.True(t, rec.CreatedAt.Equal(fixed))
		assert.True(t, rec.UpdatedAt.Equal(fixed))
	})
}

func TestLinkRepo_GetByExternalLoginRequiresLogin(t *testing.T) {
	repo := NewLinkRepo(nil)

	_, err := repo.GetByExternalLogin(context.Background(), "  ")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ports.ErrLinkNotFound))
}
