package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetstamp/internal/storage"
)

func TestMintIntentStore_ClaimLifecycle(t *testing.T) {
	s := NewMintIntentStore()
	ctx := context.Background()

	intent, err := s.Claim(ctx, 12345, "jack")
	require.NoError(t, err)
	assert.Equal(t, storage.IntentClaimed, intent.State)
	assert.Equal(t, "jack", intent.Username)

	require.NoError(t, s.MarkAnchored(ctx, 12345, "0xanchor"))
	got, err := s.Get(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, storage.IntentAnchored, got.State)
	assert.Equal(t, "0xanchor", got.URI)

	require.NoError(t, s.MarkMinted(ctx, 12345, "0xmint"))
	got, err = s.Get(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, storage.IntentMinted, got.State)
	assert.Equal(t, "0xmint", got.MintTxHash)
}

func TestMintIntentStore_ClaimDuplicateReturnsExisting(t *testing.T) {
	s := NewMintIntentStore()
	ctx := context.Background()

	_, err := s.Claim(ctx, 42, "jack")
	require.NoError(t, err)
	require.NoError(t, s.MarkAnchored(ctx, 42, "0xanchor"))

	existing, err := s.Claim(ctx, 42, "eve")
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	require.NotNil(t, existing)
	assert.Equal(t, storage.IntentAnchored, existing.State)
	assert.Equal(t, "0xanchor", existing.URI)
	assert.Equal(t, "jack", existing.Username)
}

func TestMintIntentStore_ClaimInvalidID(t *testing.T) {
	s := NewMintIntentStore()
	_, err := s.Claim(context.Background(), 0, "jack")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestMintIntentStore_GetNotFound(t *testing.T) {
	s := NewMintIntentStore()
	_, err := s.Get(context.Background(), 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMintIntentStore_Release(t *testing.T) {
	s := NewMintIntentStore()
	ctx := context.Background()

	_, err := s.Claim(ctx, 42, "jack")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, 42))

	// Released ids can be claimed again.
	_, err = s.Claim(ctx, 42, "jack")
	require.NoError(t, err)

	// Anchored intents are never released.
	require.NoError(t, s.MarkAnchored(ctx, 42, "0xanchor"))
	assert.ErrorIs(t, s.Release(ctx, 42), storage.ErrInvalidInput)

	assert.ErrorIs(t, s.Release(ctx, 999), storage.ErrNotFound)
}

func TestMintIntentStore_GetReturnsCopy(t *testing.T) {
	s := NewMintIntentStore()
	ctx := context.Background()

	_, err := s.Claim(ctx, 42, "jack")
	require.NoError(t, err)

	got, err := s.Get(ctx, 42)
	require.NoError(t, err)
	got.State = storage.IntentMinted

	again, err := s.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, storage.IntentClaimed, again.State)
}
