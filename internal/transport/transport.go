// Package transport adapts the structured JSON-RPC request/response model of
// a typed client library to the single request primitive of the injected
// wallet provider. It is always ready: no queue, no concurrency limit, no
// retry. Flow control belongs to the host object and the caller.
package transport

import (
	"context"
	"encoding/json"

	"WalletBridge/internal/bridgeerr"
	"WalletBridge/internal/host"
)

// Version is the JSON-RPC protocol version stamped on every response.
const Version = "2.0"

// serverErrorCode is the generic JSON-RPC server error code used when a host
// interaction fails. Wallets do not hand back structured transport errors, so
// the failure's string representation is all there is to forward.
const serverErrorCode = -32000

const (
	methodEthCall = "eth_call"
	keyInput      = "input"
	keyData       = "data"
)

// Request is a single structured RPC request. It is immutable once
// constructed; ID correlates the eventual response and is carried through
// untouched.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request from already-typed parameters.
func NewRequest(id any, method string, params any) (*Request, error) {
	rawID, err := host.EncodeValue(id)
	if err != nil {
		return nil, err
	}
	req := &Request{JSONRPC: Version, ID: rawID, Method: method}
	if params != nil {
		rawParams, err := host.EncodeValue(params)
		if err != nil {
			return nil, err
		}
		req.Params = rawParams
	}
	return req, nil
}

// ErrorObject is the JSON-RPC error member of a failed response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response carries either a result or an error for exactly one request.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Transport forwards structured requests through the host accessor.
// The zero value is not usable; construct with New.
type Transport struct {
	invoke func(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// New returns a transport backed by the process-wide injected provider.
func New() *Transport {
	return &Transport{invoke: host.Invoke}
}

// Send processes one request. Malformed parameters fail the call before any
// host interaction; any failure surfaces as a typed error and aborts this
// call only. A successful call returns exactly one response carrying the
// original request id.
func (t *Transport) Send(ctx context.Context, req *Request) (*Response, error) {
	params, err := decodeParams(req.Params)
	if err != nil {
		return nil, err
	}
	params = normalizeParams(req.Method, params)

	result, err := t.invoke(ctx, req.Method, params)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: Version, ID: req.ID, Result: result}, nil
}

// SendBatch processes every request independently and in order. The returned
// slice has exactly one entry per request, in request order; an item's
// failure becomes that item's error response and never cancels or blocks its
// siblings. Items are awaited one at a time on purpose: an all-or-nothing
// parallel gather would break the sibling isolation contract.
func (t *Transport) SendBatch(ctx context.Context, reqs []*Request) []*Response {
	responses := make([]*Response, 0, len(reqs))
	for _, req := range reqs {
		resp, err := t.Send(ctx, req)
		if err != nil {
			resp = errorResponse(req.ID, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func errorResponse(id json.RawMessage, err error) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &ErrorObject{Code: serverErrorCode, Message: err.Error()},
	}
}

// decodeParams parses the request's raw parameter encoding. Absent or null
// parameters become an empty ordered sequence: some wallets reject a null
// params payload outright.
func decodeParams(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []any{}, nil
	}
	value, err := host.DecodeValue(raw)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.CodeMalformedParams, err, "")
	}
	if value == nil {
		return []any{}, nil
	}
	return value, nil
}

// normalizeParams applies the per-method payload rewrite. The read-only
// eth_call method carries a transaction object whose "input" field wallets do
// not recognise; it is renamed to "data" with every other key preserved.
// Every other method's payload passes through unmodified.
func normalizeParams(method string, params any) any {
	if method != methodEthCall {
		return params
	}
	arr, ok := params.([]any)
	if !ok || len(arr) == 0 {
		return params
	}
	obj, ok := arr[0].(map[string]any)
	if !ok {
		return params
	}
	if _, ok := obj[keyInput]; !ok {
		return params
	}

	rewritten := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == keyInput || k == keyData {
			continue
		}
		rewritten[k] = v
	}
	rewritten[keyData] = obj[keyInput]
	out := make([]any, len(arr))
	copy(out, arr)
	out[0] = rewritten
	return out
}
