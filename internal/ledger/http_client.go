package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"tweetstamp/internal/domain"
)

// JSON-RPC method names exposed by a ledger node.
const (
	methodCall         = "ldg_call"
	methodEstimateCost = "ldg_estimateCost"
	methodSendTx       = "ldg_sendTransaction"
	methodGetTxResult  = "ldg_getTransactionResult"
	methodGetTxByHash  = "ldg_getTransactionByHash"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new ledger JSON-RPC client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error returned by the node. RPC errors are
// terminal for the request that produced them and are never retried by the
// client.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// Transport-level failures and 429s are retried; RPC-level errors are not.
func (c *HTTPClient) call(ctx context.Context, method string, params any, result any) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// callRequest is the params object for ldg_call.
type callRequest struct {
	To     domain.Address `json:"to"`
	Method string         `json:"method"`
	Params any            `json:"params,omitempty"`
}

// Read performs a read-only contract query.
func (c *HTTPClient) Read(ctx context.Context, contract domain.Address, method string, params any) (json.RawMessage, error) {
	var result json.RawMessage
	err := c.call(ctx, methodCall, callRequest{To: contract, Method: method, Params: params}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// estimateResult is the raw RPC response for ldg_estimateCost.
type estimateResult struct {
	Cost uint64 `json:"cost"`
}

// EstimateCost dry-runs tx against the node and returns the estimated cost.
func (c *HTTPClient) EstimateCost(ctx context.Context, tx *Transaction) (uint64, error) {
	var result estimateResult
	if err := c.call(ctx, methodEstimateCost, tx, &result); err != nil {
		return 0, err
	}
	return result.Cost, nil
}

// submitResult is the raw RPC response for ldg_sendTransaction.
type submitResult struct {
	TxHash string `json:"txHash"`
}

// Submit sends a signed transaction and returns its handle.
func (c *HTTPClient) Submit(ctx context.Context, tx *SignedTransaction) (string, error) {
	var result submitResult
	if err := c.call(ctx, methodSendTx, tx, &result); err != nil {
		return "", err
	}
	return result.TxHash, nil
}

// txHashRequest is the params object for handle lookups.
type txHashRequest struct {
	TxHash string `json:"txHash"`
}

// GetStatus queries the execution state of a submitted transaction.
func (c *HTTPClient) GetStatus(ctx context.Context, handle string) (*TxStatus, error) {
	var result TxStatus
	if err := c.call(ctx, methodGetTxResult, txHashRequest{TxHash: handle}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetByHandle fetches a stored transaction by its handle.
func (c *HTTPClient) GetByHandle(ctx context.Context, handle string) (*TxRecord, error) {
	var result TxRecord
	if err := c.call(ctx, methodGetTxByHash, txHashRequest{TxHash: handle}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
