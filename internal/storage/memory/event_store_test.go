package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetstamp/internal/storage"
)

func TestEventStore_AppendAndGetByTx(t *testing.T) {
	s := NewEventStore()
	ctx := context.Background()

	err := s.Append(ctx, []*storage.EventRecord{
		{TxHash: "0xaaa", Name: "TransferSingle", Params: map[string]string{"_id": "42"}, EmittedAt: 1},
		{TxHash: "0xaaa", Name: "URI", Params: map[string]string{"_id": "42", "_value": "0xanchor"}, EmittedAt: 2},
		{TxHash: "0xbbb", Name: "ApprovalForAll", EmittedAt: 3, Params: map[string]string{}},
	})
	require.NoError(t, err)

	events, err := s.GetByTx(ctx, "0xaaa")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "TransferSingle", events[0].Name)
	assert.Equal(t, "URI", events[1].Name)
	assert.Equal(t, "0xanchor", events[1].Params["_value"])

	events, err = s.GetByTx(ctx, "0xmissing")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventStore_GetByNameNewestFirst(t *testing.T) {
	s := NewEventStore()
	ctx := context.Background()

	for i, tx := range []string{"0x1", "0x2", "0x3"} {
		err := s.Append(ctx, []*storage.EventRecord{
			{TxHash: tx, Name: "URI", Params: map[string]string{}, EmittedAt: int64(i)},
		})
		require.NoError(t, err)
	}

	events, err := s.GetByName(ctx, "URI", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "0x3", events[0].TxHash)
	assert.Equal(t, "0x2", events[1].TxHash)
}

func TestEventStore_AppendRejectsInvalid(t *testing.T) {
	s := NewEventStore()
	err := s.Append(context.Background(), []*storage.EventRecord{{TxHash: "", Name: "URI"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
