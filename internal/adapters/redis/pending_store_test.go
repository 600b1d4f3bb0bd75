package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func pendingFixture() identity.PendingIdentity {
	return identity.PendingIdentity{
		Identity: identity.ExternalIdentity{
			LoginName:    "jsmith99",
			PersonID:     "PUID-1234",
			DisplayName:  "Jane Smith",
			Affiliations: identity.NewAffiliationSet("student", "staff"),
		},
		ProposedUsername: "Janesmith",
	}
}

func TestPendingStore_PutTakeRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewPendingStore(client, PendingStoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", pendingFixture()))

	got, ok, err := store.Take(ctx, "attempt-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "jsmith99", got.Identity.LoginName)
	assert.Equal(t, "Janesmith", got.ProposedUsername)
	assert.True(t, got.Identity.Affiliations.Equal(identity.NewAffiliationSet("staff", "student")))
}

func TestPendingStore_TakeIsSingleUse(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewPendingStore(client, PendingStoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", pendingFixture()))

	_, ok, err := store.Take(ctx, "attempt-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.Take(ctx, "attempt-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingStore_TakeUnknownAttempt(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewPendingStore(client, PendingStoreOptions{})

	_, ok, err := store.Take(context.Background(), "never-staged")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingStore_EmptyAttemptID(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewPendingStore(client, PendingStoreOptions{})
	ctx := context.Background()

	require.Error(t, store.Put(ctx, "", pendingFixture()))

	_, ok, err := store.Take(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingStore_RecordExpires(t *testing.T) {
	srv, client := newTestRedis(t)
	store := NewPendingStore(client, PendingStoreOptions{TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", pendingFixture()))
	srv.FastForward(2 * time.Minute)

	_, ok, err := store.Take(ctx, "attempt-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingStore_PutReplacesPriorRecord(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewPendingStore(client, PendingStoreOptions{})
	ctx := context.Background()

	first := pendingFixture()
	require.NoError(t, store.Put(ctx, "attempt-1", first))

	second := pendingFixture()
	second.ProposedUsername = "Janesmith1"
	require.NoError(t, store.Put(ctx, "attempt-1", second))

	got, ok, err := store.Take(ctx, "attempt-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Janesmith1", got.ProposedUsername)
}

func TestPendingStore_KeyPrefix(t *testing.T) {
	srv, client := newTestRedis(t)
	store := NewPendingStore(client, PendingStoreOptions{Prefix: "staging:"})

	require.NoError(t, store.Put(context.Background(), "attempt-1", pendingFixture()))
	assert.True(t, srv.Exists("staging:attempt-1"))
}
