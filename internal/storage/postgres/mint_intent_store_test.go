package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/storage"
	"tweetstamp/internal/storage/postgres"
)

func TestMintIntentStore_ClaimLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewMintIntentStore(pool)
	ctx := context.Background()

	id := domain.TokenID(1690000000000000001)

	intent, err := store.Claim(ctx, id, "jack")
	require.NoError(t, err)
	assert.Equal(t, id, intent.TokenID)
	assert.Equal(t, "jack", intent.Username)
	assert.Equal(t, storage.IntentClaimed, intent.State)

	err = store.MarkAnchored(ctx, id, "0xabc123")
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storage.IntentAnchored, got.State)
	assert.Equal(t, "0xabc123", got.URI)
	assert.Empty(t, got.MintTxHash)

	err = store.MarkMinted(ctx, id, "0xdef456")
	require.NoError(t, err)

	got, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storage.IntentMinted, got.State)
	assert.Equal(t, "0xabc123", got.URI)
	assert.Equal(t, "0xdef456", got.MintTxHash)
}

func TestMintIntentStore_ClaimDuplicateReturnsExisting(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewMintIntentStore(pool)
	ctx := context.Background()

	id := domain.TokenID(42)

	_, err := store.Claim(ctx, id, "alice")
	require.NoError(t, err)
	require.NoError(t, store.MarkAnchored(ctx, id, "0xanchor"))

	existing, err := store.Claim(ctx, id, "bob")
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
	require.NotNil(t, existing)
	assert.Equal(t, "alice", existing.Username)
	assert.Equal(t, storage.IntentAnchored, existing.State)
	assert.Equal(t, "0xanchor", existing.URI)
}

func TestMintIntentStore_ClaimInvalidID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewMintIntentStore(pool)

	_, err := store.Claim(context.Background(), 0, "alice")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestMintIntentStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewMintIntentStore(pool)

	_, err := store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMintIntentStore_MarkMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewMintIntentStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.MarkAnchored(ctx, 7, "0x1"), storage.ErrNotFound)
	assert.ErrorIs(t, store.MarkMinted(ctx, 7, "0x2"), storage.ErrNotFound)
}

func TestMintIntentStore_Release(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewMintIntentStore(pool)
	ctx := context.Background()

	id := domain.TokenID(100)

	_, err := store.Claim(ctx, id, "alice")
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, id))

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The id is claimable again after release.
	_, err = store.Claim(ctx, id, "bob")
	require.NoError(t, err)
}

func TestMintIntentStore_ReleaseAnchoredRejected(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewMintIntentStore(pool)
	ctx := context.Background()

	id := domain.TokenID(200)

	_, err := store.Claim(ctx, id, "alice")
	require.NoError(t, err)
	require.NoError(t, store.MarkAnchored(ctx, id, "0xanchor"))

	err = store.Release(ctx, id)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// Intent survives the rejected release.
	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storage.IntentAnchored, got.State)
}

func TestMintIntentStore_ReleaseMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewMintIntentStore(pool)

	err := store.Release(context.Background(), 300)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
