package gateway

import "encoding/json"

// Gateway error codes the server uses to signal transient overload.
const (
	codeServerBusy    = -32004
	codeTryAgainLater = -32005
)

// request is one JSON-RPC 2.0 call envelope. A fresh envelope is built for
// every attempt; the id ties a response back to a specific attempt when
// digging through server logs, so method name plus attempt number is enough.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// response is the JSON-RPC 2.0 reply envelope. Result stays a RawMessage so
// a missing key (nil) can be told apart from a present-but-empty value such
// as {} or [].
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}
