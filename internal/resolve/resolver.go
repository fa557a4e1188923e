// Package resolve recovers the metadata document of a minted token by
// following its URI back to the anchor transaction's payload.
package resolve

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
)

// ErrNotFound is returned when the id has no minted token.
var ErrNotFound = errors.New("token not found")

// Resolver reads token metadata back out of one registry contract.
type Resolver struct {
	client   ledger.Client
	contract domain.Address
}

// NewResolver creates a Resolver for the given registry contract.
func NewResolver(client ledger.Client, contract domain.Address) *Resolver {
	return &Resolver{client: client, contract: contract}
}

// Resolve returns the metadata document anchored for a token id.
func (r *Resolver) Resolve(ctx context.Context, id domain.TokenID) (*domain.MetadataDocument, error) {
	raw, err := r.client.Read(ctx, r.contract, "tokenURI", map[string]string{"_id": fmt.Sprintf("0x%x", uint64(id))})
	if err != nil {
		return nil, fmt.Errorf("read token uri: %w", err)
	}
	var uri string
	if err := json.Unmarshal(raw, &uri); err != nil {
		return nil, fmt.Errorf("decode token uri: %w", err)
	}
	if uri == "" {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	rec, err := r.client.GetByHandle(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("fetch anchor %s: %w", uri, err)
	}
	if rec.Data == "" {
		return nil, fmt.Errorf("anchor %s carries no payload", uri)
	}

	payload, err := hex.DecodeString(strings.TrimPrefix(rec.Data, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode anchor payload: %w", err)
	}

	doc, err := domain.DecodeMetadataDocument(payload)
	if err != nil {
		return nil, fmt.Errorf("anchor %s: %w", uri, err)
	}
	return doc, nil
}
