// Package stub provides a map-backed ledger.Client for tests.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
)

// ErrNotFound is returned when a handle or read target is not scripted.
var ErrNotFound = errors.New("not found")

// readKey addresses a scripted read result.
type readKey struct {
	contract domain.Address
	method   string
}

// Client implements ledger.Client for testing. Reads, estimates, submissions
// and status sequences are scripted by the test; every interaction is
// recorded.
type Client struct {
	mu sync.Mutex

	reads     map[readKey]json.RawMessage
	readFuncs map[readKey]func(params any) (json.RawMessage, error)
	records   map[string]*ledger.TxRecord

	// statuses maps a handle to the sequence of statuses successive
	// GetStatus calls observe; the last entry repeats once exhausted.
	statuses map[string][]statusStep

	// Cost returned by EstimateCost; EstimateErr overrides it.
	Cost        uint64
	EstimateErr error

	// SubmitErr fails the next Submit when set.
	SubmitErr error

	// Submitted collects every submitted transaction in order.
	Submitted []*ledger.SignedTransaction

	// StatusCalls counts GetStatus invocations per handle.
	StatusCalls map[string]int

	nextHandle int
}

type statusStep struct {
	status *ledger.TxStatus
	err    error
}

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		reads:       make(map[readKey]json.RawMessage),
		readFuncs:   make(map[readKey]func(params any) (json.RawMessage, error)),
		records:     make(map[string]*ledger.TxRecord),
		statuses:    make(map[string][]statusStep),
		StatusCalls: make(map[string]int),
		Cost:        1000,
	}
}

// SetRead scripts the result of a read-only query.
func (c *Client) SetRead(contract domain.Address, method string, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		panic(fmt.Sprintf("stub: marshal read result: %v", err))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads[readKey{contract, method}] = raw
}

// SetReadFunc scripts a dynamic read handler, e.g. to vary by params.
func (c *Client) SetReadFunc(contract domain.Address, method string, fn func(params any) (json.RawMessage, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readFuncs[readKey{contract, method}] = fn
}

// AddRecord stores a transaction record for GetByHandle.
func (c *Client) AddRecord(rec *ledger.TxRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.Hash] = rec
}

// ScriptStatus appends a status observation for a handle.
func (c *Client) ScriptStatus(handle string, status *ledger.TxStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[handle] = append(c.statuses[handle], statusStep{status: status})
}

// ScriptStatusErr appends a transient query error observation for a handle.
func (c *Client) ScriptStatusErr(handle string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[handle] = append(c.statuses[handle], statusStep{err: err})
}

// Read returns the scripted result for (contract, method).
func (c *Client) Read(_ context.Context, contract domain.Address, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	fn, okFn := c.readFuncs[readKey{contract, method}]
	raw, ok := c.reads[readKey{contract, method}]
	c.mu.Unlock()

	if okFn {
		return fn(params)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return raw, nil
}

// EstimateCost returns the scripted cost.
func (c *Client) EstimateCost(_ context.Context, _ *ledger.Transaction) (uint64, error) {
	if c.EstimateErr != nil {
		return 0, c.EstimateErr
	}
	return c.Cost, nil
}

// Submit records the transaction and returns a deterministic handle
// ("0xstub-1", "0xstub-2", ...). Handles can be pre-scripted with
// ScriptStatus before the corresponding Submit happens.
func (c *Client) Submit(_ context.Context, tx *ledger.SignedTransaction) (string, error) {
	if c.SubmitErr != nil {
		return "", c.SubmitErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	handle := fmt.Sprintf("0xstub-%d", c.nextHandle)
	c.Submitted = append(c.Submitted, tx)

	// Default: immediately successful, so tests that don't care about
	// polling do not have to script anything.
	if _, scripted := c.statuses[handle]; !scripted {
		c.statuses[handle] = []statusStep{{status: &ledger.TxStatus{Status: ledger.StatusSuccess}}}
	}
	return handle, nil
}

// GetStatus pops the next scripted observation for handle; the final one
// repeats.
func (c *Client) GetStatus(_ context.Context, handle string) (*ledger.TxStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.StatusCalls[handle]++
	steps, ok := c.statuses[handle]
	if !ok || len(steps) == 0 {
		return nil, ErrNotFound
	}

	step := steps[0]
	if len(steps) > 1 {
		c.statuses[handle] = steps[1:]
	}
	if step.err != nil {
		return nil, step.err
	}
	return step.status, nil
}

// GetByHandle returns the stored record for handle.
func (c *Client) GetByHandle(_ context.Context, handle string) (*ledger.TxRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[handle]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Compile-time interface check.
var _ ledger.Client = (*Client)(nil)
