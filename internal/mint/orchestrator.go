// Package mint orchestrates the two-transaction timestamping flow: anchor
// the tweet's metadata document on the ledger, then mint the token whose
// URI points at the anchor. A durable intent record bridges the gap between
// the two transactions so a crash in the middle is resumable.
package mint

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
	"tweetstamp/internal/pipeline"
	"tweetstamp/internal/storage"
)

var (
	// ErrConflict is returned when the tweet is already minted or another
	// mint for the same id is in flight.
	ErrConflict = errors.New("token already minted or mint in progress")

	// ErrInvalidRequest is returned when the request is missing required
	// fields.
	ErrInvalidRequest = errors.New("invalid mint request")
)

// Orchestrator runs mint flows against one registry contract. Safe for
// concurrent use; concurrent attempts for the same id are serialized and
// all but the first rejected.
type Orchestrator struct {
	client    ledger.Client
	submitter *pipeline.Submitter
	intents   storage.MintIntentStore
	contract  domain.Address
	anchorTo  domain.Address
	verbose   bool

	mu       sync.Mutex
	inflight map[domain.TokenID]struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVerbose enables progress logging.
func WithVerbose(verbose bool) Option {
	return func(o *Orchestrator) {
		o.verbose = verbose
	}
}

// NewOrchestrator creates an Orchestrator. Anchor transactions are addressed
// to anchorTo, which is conventionally the submitting wallet's own address.
func NewOrchestrator(client ledger.Client, submitter *pipeline.Submitter, intents storage.MintIntentStore, contract, anchorTo domain.Address, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		submitter: submitter,
		intents:   intents,
		contract:  contract,
		anchorTo:  anchorTo,
		inflight:  make(map[domain.TokenID]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mint timestamps a tweet: anchors its metadata document and mints the
// token. Returns ErrConflict when the id is already minted or being minted.
func (o *Orchestrator) Mint(ctx context.Context, req *domain.MintRequest) (*domain.MintReceipt, error) {
	if req.ID == 0 || req.Username == "" {
		return nil, ErrInvalidRequest
	}

	if !o.acquire(req.ID) {
		return nil, fmt.Errorf("%w: id %d has a mint in flight", ErrConflict, req.ID)
	}
	defer o.release(req.ID)

	// The registry is the source of truth for "already minted".
	uri, err := o.tokenURI(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("check token uri: %w", err)
	}
	if uri != "" {
		return nil, fmt.Errorf("%w: id %d", ErrConflict, req.ID)
	}

	intent, err := o.claimIntent(ctx, req)
	if err != nil {
		return nil, err
	}

	anchorURI := intent.URI
	if intent.State != storage.IntentAnchored || anchorURI == "" {
		anchorURI, err = o.anchor(ctx, req)
		if err != nil {
			// The id was never anchored, so the claim can be retried
			// from scratch.
			if relErr := o.intents.Release(ctx, req.ID); relErr != nil {
				o.log("release intent %d: %v", req.ID, relErr)
			}
			return nil, err
		}
		if err := o.intents.MarkAnchored(ctx, req.ID, anchorURI); err != nil {
			return nil, fmt.Errorf("record anchor for %d: %w", req.ID, err)
		}
	} else {
		o.log("resuming anchored intent for %d, uri %s", req.ID, anchorURI)
	}

	params := domain.MintParams{
		ID:       req.ID,
		URI:      anchorURI,
		Username: req.Username,
		Supply:   1,
	}
	receipt, err := o.submitter.SubmitCall(ctx, o.contract, "mint", params)
	if err != nil {
		// The anchored intent stays behind so a retry reuses the URI.
		return nil, fmt.Errorf("mint %d: %w", req.ID, err)
	}

	if err := o.intents.MarkMinted(ctx, req.ID, receipt.Handle); err != nil {
		// The mint landed; a stale intent record is not worth failing over.
		o.log("record mint for %d: %v", req.ID, err)
	}
	o.log("minted %d for @%s: %s", req.ID, req.Username, receipt.Handle)

	return &domain.MintReceipt{
		MintTxHash: receipt.Handle,
		MintParams: params,
	}, nil
}

// claimIntent claims the durable intent for the id, resolving an existing
// record into resume-or-reject.
func (o *Orchestrator) claimIntent(ctx context.Context, req *domain.MintRequest) (*storage.MintIntent, error) {
	intent, err := o.intents.Claim(ctx, req.ID, req.Username)
	if err == nil {
		return intent, nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("claim intent for %d: %w", req.ID, err)
	}

	switch intent.State {
	case storage.IntentMinted:
		return nil, fmt.Errorf("%w: id %d", ErrConflict, req.ID)
	case storage.IntentAnchored, storage.IntentClaimed:
		// A previous attempt died partway; resume it.
		o.log("resuming %s intent for %d", intent.State, req.ID)
		return intent, nil
	default:
		return nil, fmt.Errorf("intent for %d in unknown state %q", req.ID, intent.State)
	}
}

// anchor submits the metadata document as a hex message payload and returns
// the anchor transaction's handle, which becomes the token URI.
func (o *Orchestrator) anchor(ctx context.Context, req *domain.MintRequest) (string, error) {
	doc, err := domain.NewMetadataDocument(req.ID, req.Username, req.Body, req.Image)
	if err != nil {
		return "", fmt.Errorf("build metadata for %d: %w", req.ID, err)
	}
	body, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("encode metadata for %d: %w", req.ID, err)
	}

	receipt, err := o.submitter.SubmitMessage(ctx, o.anchorTo, "0x"+hex.EncodeToString(body))
	if err != nil {
		return "", fmt.Errorf("anchor metadata for %d: %w", req.ID, err)
	}
	o.log("anchored metadata for %d: %s", req.ID, receipt.Handle)
	return receipt.Handle, nil
}

// tokenURI reads the registry's URI for an id; "" means unminted.
func (o *Orchestrator) tokenURI(ctx context.Context, id domain.TokenID) (string, error) {
	raw, err := o.client.Read(ctx, o.contract, "tokenURI", map[string]string{"_id": encodeID(id)})
	if err != nil {
		return "", err
	}
	var uri string
	if err := json.Unmarshal(raw, &uri); err != nil {
		return "", fmt.Errorf("decode token uri: %w", err)
	}
	return uri, nil
}

// acquire reserves the id for this process; false if already in flight.
func (o *Orchestrator) acquire(id domain.TokenID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[id]; busy {
		return false
	}
	o.inflight[id] = struct{}{}
	return true
}

func (o *Orchestrator) release(id domain.TokenID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, id)
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[mint] "+format, args...)
	}
}

// encodeID renders a token id in the 0x-hex form contract params use.
func encodeID(id domain.TokenID) string {
	return fmt.Sprintf("0x%x", uint64(id))
}
