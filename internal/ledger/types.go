package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"tweetstamp/internal/domain"
)

// TxKind distinguishes the two transaction shapes the ledger accepts.
type TxKind string

const (
	// TxMessage carries an opaque hex payload and no method call. Anchor
	// transactions are self-addressed messages.
	TxMessage TxKind = "message"
	// TxCall invokes a contract method with JSON parameters.
	TxCall TxKind = "call"
)

// Transaction is an unsigned ledger transaction.
type Transaction struct {
	From      domain.Address  `json:"from"`
	To        domain.Address  `json:"to"`
	Kind      TxKind          `json:"kind"`
	Data      string          `json:"data,omitempty"` // 0x-prefixed hex payload (message txs)
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Nonce     uint64          `json:"nonce"`
	CostLimit uint64          `json:"costLimit,omitempty"`
}

// SigningBytes returns the canonical byte form covered by the signature.
func (t *Transaction) SigningBytes() ([]byte, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}
	return body, nil
}

// SignedTransaction is a transaction plus the signer's credentials.
type SignedTransaction struct {
	Transaction
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// Hash computes the transaction handle: 0x-prefixed hex of SHA-256 over the
// signed transaction's JSON form.
func (t *SignedTransaction) Hash() (string, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal signed transaction: %w", err)
	}
	sum := sha256.Sum256(body)
	return "0x" + hex.EncodeToString(sum[:]), nil
}

// Terminal and non-terminal transaction states reported by the ledger.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event is an event record emitted during transaction execution.
type Event struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
}

// TxStatus is the execution state of a submitted transaction.
type TxStatus struct {
	Status  string  `json:"status"`
	Failure string  `json:"failure,omitempty"` // detail when Status == failure
	Events  []Event `json:"events,omitempty"`
}

// Terminal reports whether the status can no longer change.
func (s *TxStatus) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailure
}

// TxRecord is a stored transaction as returned by getTransactionByHash.
// Anchor payloads are recovered from Data.
type TxRecord struct {
	Hash   string          `json:"txHash"`
	From   domain.Address  `json:"from"`
	To     domain.Address  `json:"to"`
	Kind   TxKind          `json:"kind"`
	Data   string          `json:"data,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}
