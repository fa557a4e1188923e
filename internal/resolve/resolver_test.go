package resolve

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
	"tweetstamp/internal/ledger/stub"
)

const testContract = domain.Address("registry")

func TestResolve_RoundTrip(t *testing.T) {
	doc, err := domain.NewMetadataDocument(42, "jack", `{"text":"hello"}`, "https://img.example/42.png")
	require.NoError(t, err)
	body, err := doc.Encode()
	require.NoError(t, err)

	client := stub.NewClient()
	client.SetRead(testContract, "tokenURI", "0xanchor")
	client.AddRecord(&ledger.TxRecord{
		Hash: "0xanchor",
		Kind: ledger.TxMessage,
		Data: "0x" + hex.EncodeToString(body),
	})

	got, err := NewResolver(client, testContract).Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, got.Name)
	assert.Equal(t, doc.Description, got.Description)
	assert.Equal(t, doc.Image, got.Image)
	assert.JSONEq(t, string(doc.Properties), string(got.Properties))
}

func TestResolve_UnmintedID(t *testing.T) {
	client := stub.NewClient()
	client.SetRead(testContract, "tokenURI", "")

	_, err := NewResolver(client, testContract).Resolve(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_MissingAnchor(t *testing.T) {
	client := stub.NewClient()
	client.SetRead(testContract, "tokenURI", "0xgone")

	_, err := NewResolver(client, testContract).Resolve(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch anchor")
}

func TestResolve_BadPayload(t *testing.T) {
	client := stub.NewClient()
	client.SetRead(testContract, "tokenURI", "0xanchor")

	client.AddRecord(&ledger.TxRecord{Hash: "0xanchor", Kind: ledger.TxMessage, Data: "0xzz"})
	_, err := NewResolver(client, testContract).Resolve(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode anchor payload")

	client.AddRecord(&ledger.TxRecord{Hash: "0xanchor", Kind: ledger.TxMessage, Data: ""})
	_, err = NewResolver(client, testContract).Resolve(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payload")

	// Valid hex, invalid JSON.
	client.AddRecord(&ledger.TxRecord{
		Hash: "0xanchor",
		Kind: ledger.TxMessage,
		Data: "0x" + hex.EncodeToString([]byte("not json")),
	})
	_, err = NewResolver(client, testContract).Resolve(context.Background(), 7)
	require.Error(t, err)
}
