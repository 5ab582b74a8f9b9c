package gateway

import (
	"fmt"
	"net/http"
)

// Kind classifies a gateway client failure. Callers should branch on Kind
// only; Message, Details and Cause exist for logging and diagnostics.
type Kind string

const (
	// KindConfig marks caller errors: bad client setup or bad input.
	// Never retried, and no network call is made.
	KindConfig Kind = "config"
	// KindNetwork marks transport-level failures (DNS, connect, reset).
	KindNetwork Kind = "network"
	// KindTimeout marks an attempt whose per-attempt deadline elapsed.
	KindTimeout Kind = "timeout"
	// KindHTTP marks a non-2xx status from the gateway or a proxy in front of it.
	KindHTTP Kind = "http"
	// KindRPC marks a structured error object in the JSON-RPC response.
	KindRPC Kind = "rpc"
	// KindParse marks a malformed or unexpected-shape response payload.
	KindParse Kind = "parse"
)

// Error is the single failure type the gateway client surfaces. Every failed
// call returns exactly one of these, stamped with the number of attempts
// actually made.
type Error struct {
	Kind     Kind
	Message  string
	Attempts int

	// HTTPStatus is set when Kind is KindHTTP.
	HTTPStatus int
	// RPCCode is set when Kind is KindRPC.
	RPCCode int
	// Details carries the RPC error's data field, or the raw unrecognized
	// failure when nothing better is known. Diagnostics only.
	Details any
	// Cause is the underlying low-level error, if any. Diagnostics only.
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s: %s (attempts=%d)", e.Kind, e.Message, e.Attempts)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether another attempt could plausibly succeed.
// Config and parse failures never recover on retry: the first indicates a
// caller bug, the second a protocol mismatch rather than transient load.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTP:
		return e.HTTPStatus == http.StatusRequestTimeout ||
			e.HTTPStatus == http.StatusTooManyRequests ||
			e.HTTPStatus >= 500
	case KindRPC:
		return e.RPCCode == codeServerBusy || e.RPCCode == codeTryAgainLater
	default:
		return false
	}
}
