// Package pipeline drives a transaction from construction to finality:
// estimate, sign, submit, then poll the ledger until the transaction
// reaches a terminal state or the attempt budget runs out.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
	"tweetstamp/internal/wallet"
)

// Pipeline errors. Callers distinguish a transaction the ledger never
// accepted (rejected), one it executed and failed (execution failed), and
// one that never reached a terminal state inside the poll budget (timeout).
var (
	ErrSubmissionRejected = errors.New("submission rejected")
	ErrExecutionFailed    = errors.New("execution failed")
	ErrTimeout            = errors.New("transaction result timeout")
)

// Default polling and cost parameters.
const (
	DefaultCostMargin        = 10000
	DefaultPollAttempts      = 30
	DefaultPollDelay         = 200 * time.Millisecond
	DefaultMaxPollDelay      = 2 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Receipt is the outcome of a successfully executed transaction.
type Receipt struct {
	Handle string
	Events []ledger.Event
}

// Submitter signs and submits transactions for a single wallet and waits
// for their results. Safe for concurrent use.
type Submitter struct {
	client ledger.Client
	wallet *wallet.Wallet

	costMargin        uint64
	pollAttempts      int
	pollDelay         time.Duration
	maxPollDelay      time.Duration
	backoffMultiplier float64
	verbose           bool

	nonce atomic.Uint64
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithCostMargin sets the headroom added to the estimated execution cost.
func WithCostMargin(margin uint64) Option {
	return func(s *Submitter) {
		s.costMargin = margin
	}
}

// WithPollAttempts sets how many status queries are made before giving up.
func WithPollAttempts(n int) Option {
	return func(s *Submitter) {
		s.pollAttempts = n
	}
}

// WithPollDelay sets the initial and maximum delay between status queries.
func WithPollDelay(initial, max time.Duration) Option {
	return func(s *Submitter) {
		s.pollDelay = initial
		s.maxPollDelay = max
	}
}

// WithBackoffMultiplier sets the poll delay growth factor.
func WithBackoffMultiplier(m float64) Option {
	return func(s *Submitter) {
		s.backoffMultiplier = m
	}
}

// WithVerbose enables progress logging.
func WithVerbose(verbose bool) Option {
	return func(s *Submitter) {
		s.verbose = verbose
	}
}

// NewSubmitter creates a Submitter for the given ledger client and wallet.
func NewSubmitter(client ledger.Client, w *wallet.Wallet, opts ...Option) *Submitter {
	s := &Submitter{
		client:            client,
		wallet:            w,
		costMargin:        DefaultCostMargin,
		pollAttempts:      DefaultPollAttempts,
		pollDelay:         DefaultPollDelay,
		maxPollDelay:      DefaultMaxPollDelay,
		backoffMultiplier: DefaultBackoffMultiplier,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitMessage submits a message transaction carrying an opaque hex payload
// and waits for its result.
func (s *Submitter) SubmitMessage(ctx context.Context, to domain.Address, data string) (*Receipt, error) {
	tx := &ledger.Transaction{
		From: s.wallet.Address(),
		To:   to,
		Kind: ledger.TxMessage,
		Data: data,
	}
	return s.submit(ctx, tx)
}

// SubmitCall submits a contract method invocation and waits for its result.
func (s *Submitter) SubmitCall(ctx context.Context, to domain.Address, method string, params any) (*Receipt, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	tx := &ledger.Transaction{
		From:   s.wallet.Address(),
		To:     to,
		Kind:   ledger.TxCall,
		Method: method,
		Params: raw,
	}
	return s.submit(ctx, tx)
}

// submit runs the full pipeline for an assembled transaction.
func (s *Submitter) submit(ctx context.Context, tx *ledger.Transaction) (*Receipt, error) {
	tx.Nonce = s.nonce.Add(1)

	estimate, err := s.client.EstimateCost(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("estimate cost: %w", err)
	}
	tx.CostLimit = estimate + s.costMargin

	signed, err := s.sign(tx)
	if err != nil {
		return nil, err
	}

	handle, err := s.client.Submit(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionRejected, err)
	}
	s.log("submitted %s tx to %s: %s", tx.Kind, tx.To, handle)

	events, err := s.awaitResult(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &Receipt{Handle: handle, Events: events}, nil
}

// sign produces the signed form of a transaction with the submitter's
// wallet credentials attached.
func (s *Submitter) sign(tx *ledger.Transaction) (*ledger.SignedTransaction, error) {
	body, err := tx.SigningBytes()
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return &ledger.SignedTransaction{
		Transaction: *tx,
		PublicKey:   s.wallet.PublicKeyHex(),
		Signature:   s.wallet.Sign(body),
	}, nil
}

// awaitResult polls the transaction status until it is terminal, the
// attempt budget is exhausted, or the context is cancelled. Transient query
// errors consume an attempt and are retried.
func (s *Submitter) awaitResult(ctx context.Context, handle string) ([]ledger.Event, error) {
	delay := s.pollDelay

	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		status, err := s.client.GetStatus(ctx, handle)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log("status query %d/%d for %s failed: %v", attempt, s.pollAttempts, handle, err)
		case status.Status == ledger.StatusFailure:
			return nil, fmt.Errorf("%w: %s", ErrExecutionFailed, status.Failure)
		case status.Status == ledger.StatusSuccess:
			return status.Events, nil
		}

		if attempt == s.pollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * s.backoffMultiplier)
		if delay > s.maxPollDelay {
			delay = s.maxPollDelay
		}
	}

	return nil, fmt.Errorf("%w: %s not finalized after %d attempts", ErrTimeout, handle, s.pollAttempts)
}

func (s *Submitter) log(format string, args ...interface{}) {
	if s.verbose {
		log.Printf("[pipeline] "+format, args...)
	}
}

// marshalParams normalizes call parameters to raw JSON. Pre-marshalled
// params pass through untouched.
func marshalParams(params any) (json.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	default:
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal call params: %w", err)
		}
		return raw, nil
	}
}
