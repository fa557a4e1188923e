package storage

import (
	"context"

	"tweetstamp/internal/domain"
)

// IntentState is the lifecycle position of a mint intent.
type IntentState string

const (
	// IntentClaimed marks an id reserved for minting; no anchor exists yet.
	IntentClaimed IntentState = "claimed"
	// IntentAnchored marks the metadata document anchored; the mint call has
	// not landed. A retry resumes from here reusing the stored URI.
	IntentAnchored IntentState = "anchored"
	// IntentMinted marks a completed mint.
	IntentMinted IntentState = "minted"
)

// MintIntent is the durable record of an in-flight or completed mint for a
// tweet id. It closes the anchor-then-mint gap: a crash between the two steps
// leaves an anchored intent that the next attempt resumes instead of
// re-anchoring.
type MintIntent struct {
	TokenID    domain.TokenID
	Username   string
	State      IntentState
	URI        string // anchor tx handle; set when State >= anchored
	MintTxHash string // set when State == minted
	UpdatedAt  int64  // last state change (ms)
}

// MintIntentStore provides access to mint_intents storage.
type MintIntentStore interface {
	// Claim registers a new intent for the token id in state claimed.
	// When an intent already exists it is returned alongside ErrDuplicateKey
	// so the caller can decide whether to resume or report a conflict.
	Claim(ctx context.Context, id domain.TokenID, username string) (*MintIntent, error)

	// MarkAnchored records the anchor tx handle and moves the intent to
	// state anchored. Returns ErrNotFound if no intent exists.
	MarkAnchored(ctx context.Context, id domain.TokenID, uri string) error

	// MarkMinted records the mint tx handle and moves the intent to state
	// minted. Returns ErrNotFound if no intent exists.
	MarkMinted(ctx context.Context, id domain.TokenID, txHash string) error

	// Get retrieves the intent for a token id. Returns ErrNotFound if not
	// exists.
	Get(ctx context.Context, id domain.TokenID) (*MintIntent, error)

	// Release deletes an intent that failed before anchoring so the id can
	// be claimed again. Anchored and minted intents are never released.
	Release(ctx context.Context, id domain.TokenID) error
}

// EventRecord is one emitted ledger event as persisted to the event log.
type EventRecord struct {
	TxHash    string
	Name      string
	Params    map[string]string
	EmittedAt int64 // ms
}

// EventStore is the append-only sink for emitted ledger events.
type EventStore interface {
	// Append stores events in emission order.
	Append(ctx context.Context, events []*EventRecord) error

	// GetByTx retrieves all events emitted by a transaction, in emission
	// order.
	GetByTx(ctx context.Context, txHash string) ([]*EventRecord, error)

	// GetByName retrieves the most recent events with the given name,
	// newest first, at most limit entries.
	GetByName(ctx context.Context, name string, limit int) ([]*EventRecord, error)
}
