package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetstamp/internal/storage"
	chstore "tweetstamp/internal/storage/clickhouse"
)

func TestEventStore_AppendAndGetByTx(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewEventStore(conn)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	events := []*storage.EventRecord{
		{
			TxHash: "0xaaa",
			Name:   "TransferSingle",
			Params: map[string]string{
				"_operator": "minter",
				"_from":     "11111111111111111111",
				"_to":       "owner",
				"_id":       "0x2a",
				"_value":    "0x1",
			},
			EmittedAt: base,
		},
		{
			TxHash:    "0xaaa",
			Name:      "URI",
			Params:    map[string]string{"_id": "0x2a", "_value": "0xanchor"},
			EmittedAt: base + 1,
		},
		{
			TxHash:    "0xbbb",
			Name:      "TransferSingle",
			Params:    map[string]string{"_id": "0x2b"},
			EmittedAt: base + 2,
		},
	}

	require.NoError(t, store.Append(ctx, events))

	got, err := store.GetByTx(ctx, "0xaaa")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "TransferSingle", got[0].Name)
	assert.Equal(t, "URI", got[1].Name)
	assert.Equal(t, "minter", got[0].Params["_operator"])
	assert.Equal(t, base, got[0].EmittedAt)
}

func TestEventStore_GetByTxEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewEventStore(conn)

	got, err := store.GetByTx(context.Background(), "0xmissing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventStore_GetByNameNewestFirst(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewEventStore(conn)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	var events []*storage.EventRecord
	for i := 0; i < 5; i++ {
		events = append(events, &storage.EventRecord{
			TxHash:    "0xccc",
			Name:      "ApprovalForAll",
			Params:    map[string]string{"_approved": "0x1"},
			EmittedAt: base + int64(i),
		})
	}
	require.NoError(t, store.Append(ctx, events))

	got, err := store.GetByName(ctx, "ApprovalForAll", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, base+4, got[0].EmittedAt)
	assert.Equal(t, base+2, got[2].EmittedAt)
}

func TestEventStore_AppendValidation(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewEventStore(conn)
	ctx := context.Background()

	err := store.Append(ctx, []*storage.EventRecord{{TxHash: "", Name: "URI"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.GetByName(ctx, "URI", 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// Empty append is a no-op.
	assert.NoError(t, store.Append(ctx, nil))
}
