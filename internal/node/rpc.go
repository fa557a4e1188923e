package node

import (
	"encoding/json"
	"errors"
	"net/http"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
	"tweetstamp/internal/observability"
)

// JSON-RPC error codes used by the node.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeRejected       = -32000
	codeNotFound       = -32001
	codeReadFailed     = -32002
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// callParams mirrors the client's ldg_call params object.
type callParams struct {
	To     domain.Address  `json:"to"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type txHashParams struct {
	TxHash string `json:"txHash"`
}

// Handler returns the node's full HTTP surface: JSON-RPC at /, the event
// feed at /ws and Prometheus metrics at /metrics.
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", n.handleRPC)
	mux.HandleFunc("/ws", n.hub.ServeWS)
	mux.Handle("/metrics", observability.Handler())
	return mux
}

func (n *Node) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
		return
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	result, rpcErr := n.dispatch(&req)
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	writeRPC(w, resp)
}

func (n *Node) dispatch(req *rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "ldg_call":
		var p callParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, &rpcError{Code: codeInvalidRequest, Message: "invalid call params"}
		}
		result, err := n.Read(p.To, p.Method, p.Params)
		if err != nil {
			return nil, &rpcError{Code: codeReadFailed, Message: err.Error()}
		}
		return result, nil

	case "ldg_estimateCost":
		var tx ledger.Transaction
		if err := json.Unmarshal(req.Params, &tx); err != nil {
			return nil, &rpcError{Code: codeInvalidRequest, Message: "invalid transaction"}
		}
		return map[string]uint64{"cost": n.EstimateCost(&tx)}, nil

	case "ldg_sendTransaction":
		var tx ledger.SignedTransaction
		if err := json.Unmarshal(req.Params, &tx); err != nil {
			return nil, &rpcError{Code: codeInvalidRequest, Message: "invalid signed transaction"}
		}
		hash, err := n.Submit(&tx)
		if err != nil {
			return nil, &rpcError{Code: codeRejected, Message: err.Error()}
		}
		return map[string]string{"txHash": hash}, nil

	case "ldg_getTransactionResult":
		var p txHashParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, &rpcError{Code: codeInvalidRequest, Message: "invalid params"}
		}
		status, err := n.Status(p.TxHash)
		if err != nil {
			return nil, notFoundError(err)
		}
		return status, nil

	case "ldg_getTransactionByHash":
		var p txHashParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, &rpcError{Code: codeInvalidRequest, Message: "invalid params"}
		}
		rec, err := n.Record(p.TxHash)
		if err != nil {
			return nil, notFoundError(err)
		}
		return rec, nil

	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found"}
	}
}

func notFoundError(err error) *rpcError {
	if errors.Is(err, ErrUnknownTx) {
		return &rpcError{Code: codeNotFound, Message: err.Error()}
	}
	return &rpcError{Code: codeReadFailed, Message: err.Error()}
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
