package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubc/wiki-cwl-link/internal/testutil"
)

func TestWikiUserRepo_Exists(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewWikiUserRepo(db)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")

		exists, err := repo.Exists(context.Background(), "Janesmith")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Exists(context.Background(), "Janesmith1")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestWikiUserRepo_ExistsIsCaseSensitive(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewWikiUserRepo(db)
		testutil.InsertWikiUser(t, db, 42, "Janesmith")

		exists, err := repo.Exists(context.Background(), "janesmith")
		require.NoError(t, err)
		assert.False(t, exists, "the host compares usernames byte for byte")
	})
}

func TestWikiUserRepo_ExistsRequiresUsername(t *testing.T) {
	repo := NewWikiUserRepo(nil)

	_, err := repo.Exists(context.Background(), "  ")
	require.Error(t, err)
}
