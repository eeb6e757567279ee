// ABOUTME: Minimal JSON-RPC 2.0 envelope types for the protocol loop
// ABOUTME: Used to route requests and to build error responses with stable codes
package mcp

import (
	"encoding/json"

	"github.com/harper/vaultsearch/internal/apperr"
)

const jsonrpcVersion = "2.0"

// invalidRequestCode is the JSON-RPC code for well-formed JSON that is not a request
const invalidRequestCode = -32600

var nullID = json.RawMessage("null")

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the message carries no id
func (e *envelope) isNotification() bool {
	return len(e.ID) == 0
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *rpcErrorData `json:"data,omitempty"`
}

type rpcErrorData struct {
	Kind string `json:"kind"`
}

type rpcErrorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   rpcError        `json:"error"`
}

func errorResponse(id json.RawMessage, err error) []byte {
	kind := apperr.KindOf(err)
	return errorResponseCode(id, kind.Code(), kind, apperr.MessageOf(err))
}

func errorResponseCode(id json.RawMessage, code int, kind apperr.Kind, message string) []byte {
	if len(id) == 0 {
		id = nullID
	}
	data, _ := json.Marshal(rpcErrorResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error: rpcError{
			Code:    code,
			Message: message,
			Data:    &rpcErrorData{Kind: string(kind)},
		},
	})
	return data
}
