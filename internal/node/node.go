// Package node hosts a single-process development ledger: one registry
// contract, one apply goroutine, and a JSON-RPC surface compatible with
// ledger.HTTPClient. Submitted transactions execute strictly in arrival
// order, which is the total-order assumption the registry's semantics
// rest on.
package node

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
	"tweetstamp/internal/observability"
	"tweetstamp/internal/storage"
	"tweetstamp/internal/token"
	"tweetstamp/internal/wallet"
)

// Submission and read errors surfaced over RPC.
var (
	ErrRejected        = errors.New("transaction rejected")
	ErrUnknownTx       = errors.New("unknown transaction")
	ErrUnknownContract = errors.New("unknown contract")
	ErrUnknownMethod   = errors.New("unknown method")
)

// Execution cost model: flat base plus a per-byte charge on the payload.
const (
	baseCost    = 100000
	perByteCost = 100
)

// Config configures a Node.
type Config struct {
	// Contract is the address the registry is reachable at.
	Contract domain.Address
	// Minter is the only address allowed to invoke mint and burn.
	Minter domain.Address
	// EventStore, when set, receives every emitted event. Optional.
	EventStore storage.EventStore
	// Metrics, when set, is updated on every submission and apply. Optional.
	Metrics *observability.Metrics
	// QueueSize bounds the apply queue. Defaults to 256.
	QueueSize int
	// Verbose enables apply-loop logging.
	Verbose bool
}

type queuedTx struct {
	hash   string
	signed *ledger.SignedTransaction
}

// Node is the development ledger host. All state transitions happen on the
// apply goroutine; Submit and the read surface are safe for concurrent use.
type Node struct {
	cfg      Config
	registry *token.Registry

	mu       sync.RWMutex
	statuses map[string]*ledger.TxStatus
	records  map[string]*ledger.TxRecord

	queue    chan *queuedTx
	queueMu  sync.Mutex
	stopped  bool
	wg       sync.WaitGroup

	// pending holds the events emitted while applying the current
	// transaction. Touched only by the apply goroutine.
	pending []ledger.Event

	hub *Hub
}

// New creates a Node. Start must be called before submissions are accepted.
func New(cfg Config) *Node {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	n := &Node{
		cfg:      cfg,
		statuses: make(map[string]*ledger.TxStatus),
		records:  make(map[string]*ledger.TxRecord),
		queue:    make(chan *queuedTx, cfg.QueueSize),
		hub:      NewHub(cfg.Metrics),
	}
	n.registry = token.NewRegistry(token.WithEventSink(token.EventSinkFunc(func(e token.Event) {
		n.pending = append(n.pending, ledger.Event{Name: e.Name, Params: e.Params})
	})))
	return n
}

// Start launches the apply goroutine.
func (n *Node) Start() {
	n.wg.Add(1)
	go n.applyLoop()
}

// Stop drains the apply queue and stops the node. Submissions arriving
// after Stop are rejected.
func (n *Node) Stop() {
	n.queueMu.Lock()
	if !n.stopped {
		n.stopped = true
		close(n.queue)
	}
	n.queueMu.Unlock()

	n.wg.Wait()
	n.hub.Close()
}

// Registry exposes the hosted registry for direct inspection in tests and
// tooling.
func (n *Node) Registry() *token.Registry {
	return n.registry
}

// EstimateCost dry-runs the cost model for a transaction.
func (n *Node) EstimateCost(tx *ledger.Transaction) uint64 {
	return baseCost + perByteCost*uint64(len(tx.Data)+len(tx.Params))
}

// Submit validates a signed transaction, records it as pending and queues
// it for execution. Resubmitting an identical transaction returns the same
// handle without queueing it twice.
func (n *Node) Submit(signed *ledger.SignedTransaction) (string, error) {
	if err := n.validate(signed); err != nil {
		if n.cfg.Metrics != nil {
			n.cfg.Metrics.TxRejected.Inc()
		}
		return "", fmt.Errorf("%w: %s", ErrRejected, err)
	}

	hash, err := signed.Hash()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRejected, err)
	}

	n.mu.Lock()
	if _, seen := n.statuses[hash]; seen {
		n.mu.Unlock()
		return hash, nil
	}
	n.statuses[hash] = &ledger.TxStatus{Status: ledger.StatusPending}
	n.mu.Unlock()

	n.queueMu.Lock()
	if n.stopped {
		n.queueMu.Unlock()
		n.mu.Lock()
		delete(n.statuses, hash)
		n.mu.Unlock()
		return "", fmt.Errorf("%w: node stopped", ErrRejected)
	}
	n.queue <- &queuedTx{hash: hash, signed: signed}
	n.queueMu.Unlock()

	if n.cfg.Metrics != nil {
		n.cfg.Metrics.TxSubmitted.WithLabelValues(string(signed.Kind)).Inc()
		n.cfg.Metrics.ApplyQueueDepth.Set(float64(len(n.queue)))
	}
	return hash, nil
}

// Status returns the execution state of a submitted transaction.
func (n *Node) Status(hash string) (*ledger.TxStatus, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	status, ok := n.statuses[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTx, hash)
	}
	return status, nil
}

// Record returns a stored transaction by handle.
func (n *Node) Record(hash string) (*ledger.TxRecord, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	rec, ok := n.records[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTx, hash)
	}
	return rec, nil
}

// validate checks transaction shape and signature.
func (n *Node) validate(signed *ledger.SignedTransaction) error {
	if signed.From == "" || signed.From.IsNull() {
		return errors.New("missing sender")
	}
	switch signed.Kind {
	case ledger.TxMessage:
		if signed.Data == "" {
			return errors.New("message transaction carries no payload")
		}
		if _, err := hex.DecodeString(strings.TrimPrefix(signed.Data, "0x")); err != nil {
			return errors.New("message payload is not hex")
		}
	case ledger.TxCall:
		if signed.Method == "" {
			return errors.New("call transaction names no method")
		}
	default:
		return fmt.Errorf("unknown transaction kind %q", signed.Kind)
	}

	body, err := signed.Transaction.SigningBytes()
	if err != nil {
		return err
	}
	if err := wallet.VerifySignature(signed.From, signed.PublicKey, signed.Signature, body); err != nil {
		return err
	}
	return nil
}

// applyLoop executes queued transactions one at a time, in arrival order.
func (n *Node) applyLoop() {
	defer n.wg.Done()

	for q := range n.queue {
		start := time.Now()
		status := n.apply(q)

		n.mu.Lock()
		n.statuses[q.hash] = status
		n.records[q.hash] = &ledger.TxRecord{
			Hash:   q.hash,
			From:   q.signed.From,
			To:     q.signed.To,
			Kind:   q.signed.Kind,
			Data:   q.signed.Data,
			Method: q.signed.Method,
			Params: q.signed.Params,
		}
		n.mu.Unlock()

		n.publish(q.hash, status.Events)
		n.observeApply(q, status, time.Since(start))
	}
}

// apply executes one transaction and returns its terminal status. Emitted
// events are attached on success only; a failed call leaves no state behind.
func (n *Node) apply(q *queuedTx) *ledger.TxStatus {
	tx := &q.signed.Transaction
	if tx.CostLimit > 0 && tx.CostLimit < n.EstimateCost(tx) {
		return &ledger.TxStatus{Status: ledger.StatusFailure, Failure: "cost limit below execution cost"}
	}

	if tx.Kind == ledger.TxMessage {
		// Anchors carry data only; storing the record is the whole effect.
		return &ledger.TxStatus{Status: ledger.StatusSuccess}
	}

	n.pending = n.pending[:0]
	if err := n.invoke(tx); err != nil {
		return &ledger.TxStatus{Status: ledger.StatusFailure, Failure: err.Error()}
	}

	events := make([]ledger.Event, len(n.pending))
	copy(events, n.pending)
	return &ledger.TxStatus{Status: ledger.StatusSuccess, Events: events}
}

// invoke dispatches a call transaction to the registry.
func (n *Node) invoke(tx *ledger.Transaction) error {
	if tx.To != n.cfg.Contract {
		return fmt.Errorf("%w: %s", ErrUnknownContract, tx.To)
	}

	switch tx.Method {
	case "mint":
		if tx.From != n.cfg.Minter {
			return fmt.Errorf("%s is not the minter", tx.From)
		}
		var p domain.MintParams
		if err := json.Unmarshal(tx.Params, &p); err != nil {
			return fmt.Errorf("decode mint params: %w", err)
		}
		if err := n.registry.Mint(tx.From, p.ID, p.Supply, p.URI, p.Username); err != nil {
			return err
		}
		if n.cfg.Metrics != nil {
			n.cfg.Metrics.TokensMinted.Inc()
		}
		return nil

	case "burn":
		var p struct {
			Owner  domain.Address `json:"_owner"`
			ID     uintParam      `json:"_id"`
			Amount uintParam      `json:"_amount"`
		}
		if err := json.Unmarshal(tx.Params, &p); err != nil {
			return fmt.Errorf("decode burn params: %w", err)
		}
		if tx.From != p.Owner && tx.From != n.cfg.Minter {
			return fmt.Errorf("%s may not burn tokens of %s", tx.From, p.Owner)
		}
		if err := n.registry.Burn(p.Owner, domain.TokenID(p.ID), uint64(p.Amount)); err != nil {
			return err
		}
		if n.cfg.Metrics != nil {
			n.cfg.Metrics.TokensBurned.Inc()
		}
		return nil

	case "transferFrom":
		var p struct {
			From  domain.Address `json:"_from"`
			To    domain.Address `json:"_to"`
			ID    uintParam      `json:"_id"`
			Value uintParam      `json:"_value"`
			Data  string         `json:"_data,omitempty"`
		}
		if err := json.Unmarshal(tx.Params, &p); err != nil {
			return fmt.Errorf("decode transfer params: %w", err)
		}
		return n.registry.TransferFrom(tx.From, p.From, p.To, domain.TokenID(p.ID), uint64(p.Value), decodeData(p.Data))

	case "transferFromBatch":
		var p struct {
			From   domain.Address `json:"_from"`
			To     domain.Address `json:"_to"`
			IDs    []uintParam    `json:"_ids"`
			Values []uintParam    `json:"_values"`
			Data   string         `json:"_data,omitempty"`
		}
		if err := json.Unmarshal(tx.Params, &p); err != nil {
			return fmt.Errorf("decode batch transfer params: %w", err)
		}
		ids := make([]domain.TokenID, len(p.IDs))
		for i, id := range p.IDs {
			ids[i] = domain.TokenID(id)
		}
		values := make([]uint64, len(p.Values))
		for i, v := range p.Values {
			values[i] = uint64(v)
		}
		return n.registry.TransferFromBatch(tx.From, p.From, p.To, ids, values, decodeData(p.Data))

	case "setApprovalForAll":
		var p struct {
			Operator domain.Address `json:"_operator"`
			Approved bool           `json:"_approved"`
		}
		if err := json.Unmarshal(tx.Params, &p); err != nil {
			return fmt.Errorf("decode approval params: %w", err)
		}
		n.registry.SetApprovalForAll(tx.From, p.Operator, p.Approved)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownMethod, tx.Method)
	}
}

// Read serves the registry's read-only surface.
func (n *Node) Read(contract domain.Address, method string, params json.RawMessage) (any, error) {
	if contract != n.cfg.Contract {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, contract)
	}

	switch method {
	case "balanceOf":
		var p struct {
			Owner domain.Address `json:"_owner"`
			ID    uintParam      `json:"_id"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return n.registry.BalanceOf(p.Owner, domain.TokenID(p.ID)), nil

	case "balanceOfBatch":
		var p struct {
			Owners []domain.Address `json:"_owners"`
			IDs    []uintParam      `json:"_ids"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		ids := make([]domain.TokenID, len(p.IDs))
		for i, id := range p.IDs {
			ids[i] = domain.TokenID(id)
		}
		return n.registry.BalanceOfBatch(p.Owners, ids)

	case "tokenURI":
		var p struct {
			ID uintParam `json:"_id"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return n.registry.TokenURI(domain.TokenID(p.ID)), nil

	case "isApprovedForAll":
		var p struct {
			Owner    domain.Address `json:"_owner"`
			Operator domain.Address `json:"_operator"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return n.registry.IsApprovedForAll(p.Owner, p.Operator), nil

	case "timestampedTweets":
		return n.registry.History(), nil

	case "getLastTimestampedTweet":
		return n.registry.LastTokenID(), nil

	case "getTokenIndex":
		return n.registry.TokenIndex(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// publish fans emitted events out to the websocket hub and the event store.
func (n *Node) publish(hash string, events []ledger.Event) {
	if len(events) == 0 {
		return
	}

	now := time.Now().UnixMilli()
	records := make([]*storage.EventRecord, 0, len(events))
	for i, e := range events {
		n.hub.Broadcast(ledger.EventNotification{TxHash: hash, Event: e})
		if n.cfg.Metrics != nil {
			n.cfg.Metrics.EventsEmitted.WithLabelValues(e.Name).Inc()
		}
		records = append(records, &storage.EventRecord{
			TxHash:    hash,
			Name:      e.Name,
			Params:    e.Params,
			EmittedAt: now + int64(i), // preserve order under one-ms bursts
		})
	}

	if n.cfg.EventStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.cfg.EventStore.Append(ctx, records); err != nil {
			n.log("append events for %s: %v", hash, err)
		}
	}
}

func (n *Node) observeApply(q *queuedTx, status *ledger.TxStatus, took time.Duration) {
	if status.Status == ledger.StatusFailure {
		n.log("tx %s (%s %s) failed: %s", q.hash, q.signed.Kind, q.signed.Method, status.Failure)
	} else {
		n.log("tx %s (%s %s) applied in %s", q.hash, q.signed.Kind, q.signed.Method, took)
	}
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.TxExecuted.WithLabelValues(status.Status).Inc()
		n.cfg.Metrics.TxApplyTime.Observe(took.Seconds())
		n.cfg.Metrics.ApplyQueueDepth.Set(float64(len(n.queue)))
	}
}

func (n *Node) log(format string, args ...interface{}) {
	if n.cfg.Verbose {
		log.Printf("[node] "+format, args...)
	}
}

// decodeData turns an optional 0x-hex callback payload into bytes; malformed
// hex degrades to nil rather than failing the transfer.
func decodeData(s string) []byte {
	if s == "" {
		return nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil
	}
	return b
}

// uintParam accepts a JSON number, a decimal string or a 0x-hex string.
// Contract params use the hex form; the flexible decode keeps hand-written
// tooling requests working too.
type uintParam uint64

func (u *uintParam) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		v, err := strconv.ParseUint(s, base, 64)
		if err != nil {
			return fmt.Errorf("parse uint param %q: %w", s, err)
		}
		*u = uintParam(v)
		return nil
	}

	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("parse uint param: %w", err)
	}
	*u = uintParam(v)
	return nil
}
