// Package ledger defines the protocol-agnostic client surface the core
// consumes, plus an HTTP JSON-RPC implementation of it. The contract's
// read-only methods go through Read; state changes go through EstimateCost,
// Submit and GetStatus; anchored payloads come back via GetByHandle.
package ledger

import (
	"context"
	"encoding/json"

	"tweetstamp/internal/domain"
)

// Client is the ledger surface consumed by the pipeline, orchestrator and
// resolver.
type Client interface {
	// Read performs a synchronous state query against a contract method.
	Read(ctx context.Context, contract domain.Address, method string, params any) (json.RawMessage, error)

	// EstimateCost dry-runs a transaction and returns its estimated
	// execution cost.
	EstimateCost(ctx context.Context, tx *Transaction) (uint64, error)

	// Submit sends a signed transaction and returns its handle.
	Submit(ctx context.Context, tx *SignedTransaction) (string, error)

	// GetStatus queries the execution state of a submitted transaction.
	GetStatus(ctx context.Context, handle string) (*TxStatus, error)

	// GetByHandle fetches a stored transaction, payload included.
	GetByHandle(ctx context.Context, handle string) (*TxRecord, error)
}
