// Package transport defines the JSON-RPC 2.0 framing used to talk to
// MCP tool servers, and the Transport interface implemented by the
// concrete carriers.
package transport

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// JSON-RPC error codes, per the 2.0 specification.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC 2.0 request frame.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response frame.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewRequest returns a request frame for the given method and params.
func NewRequest(id uint64, method string, params any) *Request {
	return &Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// DecodeResponse parses a raw JSON-RPC response and returns its result
// payload, or the remote error if the frame carries one.
func DecodeResponse(raw []byte) (json.RawMessage, error) {
	var res Response
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.WithMessage(err, "failed to decode JSON-RPC response")
	}
	if res.Error != nil {
		return nil, errors.WithStack(res.Error)
	}
	return res.Result, nil
}

// Transport carries a single JSON-RPC round trip to an MCP server.
// Implementations must be safe for concurrent use.
type Transport interface {
	// Call sends the method with params and returns the raw result payload.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	// Endpoint describes the destination, for logging.
	Endpoint() string
}
