package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// fakeResponse scripts one round trip of the fake executor.
type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeDoer replays scripted responses and records every request it sees.
// The last scripted response repeats once the script is exhausted.
type fakeDoer struct {
	responses []fakeResponse
	bodies    []string
	urls      []string
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	raw, _ := io.ReadAll(req.Body)
	f.bodies = append(f.bodies, string(raw))
	f.urls = append(f.urls, req.URL.String())

	i := len(f.bodies) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	r := f.responses[i]
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
	}, nil
}

// blockingDoer hangs until the per-attempt deadline fires.
type blockingDoer struct {
	calls int
}

func (b *blockingDoer) Do(req *http.Request) (*http.Response, error) {
	b.calls++
	<-req.Context().Done()
	return nil, req.Context().Err()
}

// fakeSleeper records requested delays and returns immediately.
type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return nil
}

func testConfig() Config {
	return Config{
		EndpointURL: "https://gateway.example.org/rpc",
		Network:     NetworkTestnet,
		ContractID:  "CREGISTRY",
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   10 * time.Millisecond,
			MaxDelay:    100 * time.Millisecond,
			Multiplier:  2,
		},
	}
}

func newTestClient(t *testing.T, cfg Config, doer Doer, sleeper *fakeSleeper) *Client {
	t.Helper()
	c, err := NewClient(cfg, WithHTTPClient(doer), WithSleep(sleeper.sleep))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func asClientError(t *testing.T, err error) *Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *gateway.Error, got %T: %v", err, err)
	}
	return cerr
}

func TestNewClientConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty endpoint", Config{Network: NetworkTestnet, ContractID: "C1"}},
		{"whitespace endpoint", Config{EndpointURL: "   ", Network: NetworkTestnet, ContractID: "C1"}},
		{"empty contract id", Config{EndpointURL: "https://x", Network: NetworkTestnet}},
		{"whitespace contract id", Config{EndpointURL: "https://x", Network: NetworkTestnet, ContractID: " \t"}},
		{"unknown network", Config{EndpointURL: "https://x", Network: "devnet", ContractID: "C1"}},
		{"empty network", Config{EndpointURL: "https://x", ContractID: "C1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &fakeDoer{}
			_, err := NewClient(tt.cfg, WithHTTPClient(doer))
			cerr := asClientError(t, err)
			if cerr.Kind != KindConfig {
				t.Errorf("expected config error, got %s", cerr.Kind)
			}
			if cerr.Attempts != 0 {
				t.Errorf("expected 0 attempts charged, got %d", cerr.Attempts)
			}
			if len(doer.bodies) != 0 {
				t.Errorf("expected no network calls, got %d", len(doer.bodies))
			}
		})
	}
}

func TestGetIdentityStateRejectsBlankAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tabs and newlines", "\t\n"},
	}

	for _, tt := range tests {
		address := tt.address
		t.Run(tt.name, func(t *testing.T) {
			doer := &fakeDoer{}
			c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

			_, err := c.GetIdentityState(context.Background(), address)
			cerr := asClientError(t, err)
			if cerr.Kind != KindConfig {
				t.Errorf("expected config error, got %s", cerr.Kind)
			}
			if cerr.Attempts != 0 {
				t.Errorf("expected 0 attempts, got %d", cerr.Attempts)
			}
			if len(doer.bodies) != 0 {
				t.Errorf("expected no requests, got %d", len(doer.bodies))
			}
		})
	}
}

func TestCallRetriesTransientHTTPThenSucceeds(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 503},
		{status: 503},
		{status: 200, body: `{"jsonrpc":"2.0","id":"ping-3","result":{"ok":true}}`},
	}}
	sleeper := &fakeSleeper{}
	c := newTestClient(t, testConfig(), doer, sleeper)

	result, err := c.Call(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if string(result) != `{"ok":true}` {
		t.Errorf("unexpected result: %s", result)
	}
	if len(doer.bodies) != 3 {
		t.Errorf("expected 3 requests, got %d", len(doer.bodies))
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, sleeper.delays)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], sleeper.delays[i])
		}
	}
}

func TestCallDelayIsCappedAtMaxDelay(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.MaxDelay = 15 * time.Millisecond

	doer := &fakeDoer{responses: []fakeResponse{
		{status: 503},
		{status: 503},
		{status: 200, body: `{"jsonrpc":"2.0","id":"ping-3","result":1}`},
	}}
	sleeper := &fakeSleeper{}
	c := newTestClient(t, cfg, doer, sleeper)

	if _, err := c.Call(context.Background(), "ping", nil); err != nil {
		t.Fatalf("expected success, got: %v", err)
	}
	want := []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != want[0] || sleeper.delays[1] != want[1] {
		t.Errorf("expected delays %v, got %v", want, sleeper.delays)
	}
}

func TestCallDoesNotRetryClientHTTPErrors(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{{status: 400}}}
	c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

	_, err := c.Call(context.Background(), "ping", nil)
	cerr := asClientError(t, err)
	if cerr.Kind != KindHTTP {
		t.Errorf("expected http error, got %s", cerr.Kind)
	}
	if cerr.HTTPStatus != 400 {
		t.Errorf("expected status 400, got %d", cerr.HTTPStatus)
	}
	if cerr.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", cerr.Attempts)
	}
	if len(doer.bodies) != 1 {
		t.Errorf("expected exactly 1 request, got %d", len(doer.bodies))
	}
}

func TestCallRPCErrorRetryability(t *testing.T) {
	t.Run("unknown code fails immediately", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{
			{status: 200, body: `{"jsonrpc":"2.0","id":"ping-1","error":{"code":-1,"message":"boom"}}`},
		}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		_, err := c.Call(context.Background(), "ping", nil)
		cerr := asClientError(t, err)
		if cerr.Kind != KindRPC {
			t.Errorf("expected rpc error, got %s", cerr.Kind)
		}
		if cerr.RPCCode != -1 {
			t.Errorf("expected code -1, got %d", cerr.RPCCode)
		}
		if cerr.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", cerr.Attempts)
		}
	})

	t.Run("server busy code retries until success", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{
			{status: 200, body: `{"jsonrpc":"2.0","id":"ping-1","error":{"code":-32004,"message":"busy"}}`},
			{status: 200, body: `{"jsonrpc":"2.0","id":"ping-2","result":"ok"}`},
		}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		result, err := c.Call(context.Background(), "ping", nil)
		if err != nil {
			t.Fatalf("expected success, got: %v", err)
		}
		if string(result) != `"ok"` {
			t.Errorf("unexpected result: %s", result)
		}
		if len(doer.bodies) != 2 {
			t.Errorf("expected 2 requests, got %d", len(doer.bodies))
		}
	})

	t.Run("server busy code retries until exhaustion", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{
			{status: 200, body: `{"jsonrpc":"2.0","id":"ping-1","error":{"code":-32005,"message":"try later"}}`},
		}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		_, err := c.Call(context.Background(), "ping", nil)
		cerr := asClientError(t, err)
		if cerr.Kind != KindRPC {
			t.Errorf("expected rpc error, got %s", cerr.Kind)
		}
		if cerr.Attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", cerr.Attempts)
		}
		if len(doer.bodies) != 3 {
			t.Errorf("expected 3 requests, got %d", len(doer.bodies))
		}
	})
}

func TestCallResultFieldHandling(t *testing.T) {
	t.Run("missing result and error is a parse failure", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{
			{status: 200, body: `{"jsonrpc":"2.0","id":"ping-1"}`},
		}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		_, err := c.Call(context.Background(), "ping", nil)
		cerr := asClientError(t, err)
		if cerr.Kind != KindParse {
			t.Errorf("expected parse error, got %s", cerr.Kind)
		}
		if cerr.Attempts != 1 {
			t.Errorf("expected 1 attempt (no retry), got %d", cerr.Attempts)
		}
		if len(doer.bodies) != 1 {
			t.Errorf("expected 1 request, got %d", len(doer.bodies))
		}
	})

	t.Run("explicit null result is valid", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{
			{status: 200, body: `{"jsonrpc":"2.0","id":"ping-1","result":null}`},
		}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		result, err := c.Call(context.Background(), "ping", nil)
		if err != nil {
			t.Fatalf("expected success, got: %v", err)
		}
		if string(result) != "null" {
			t.Errorf("expected null result payload, got %s", result)
		}
	})

	t.Run("empty object result is valid", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{
			{status: 200, body: `{"jsonrpc":"2.0","id":"ping-1","result":{}}`},
		}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		if _, err := c.Call(context.Background(), "ping", nil); err != nil {
			t.Fatalf("expected success, got: %v", err)
		}
	})

	t.Run("malformed body is a parse failure", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{
			{status: 200, body: `not json at all`},
		}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		_, err := c.Call(context.Background(), "ping", nil)
		cerr := asClientError(t, err)
		if cerr.Kind != KindParse {
			t.Errorf("expected parse error, got %s", cerr.Kind)
		}
		if len(doer.bodies) != 1 {
			t.Errorf("expected 1 request, got %d", len(doer.bodies))
		}
	})
}

func TestCallExhaustsAttemptsOnTransportFailures(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{err: errors.New("dial tcp: connection refused")},
	}}
	c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

	_, err := c.Call(context.Background(), "ping", nil)
	cerr := asClientError(t, err)
	if cerr.Kind != KindNetwork {
		t.Errorf("expected network error, got %s", cerr.Kind)
	}
	if cerr.Attempts != 3 {
		t.Errorf("expected attempts to equal max attempts (3), got %d", cerr.Attempts)
	}
	if len(doer.bodies) != 3 {
		t.Errorf("expected 3 requests, got %d", len(doer.bodies))
	}
	if cerr.Cause == nil {
		t.Error("expected underlying cause to be preserved")
	}
}

func TestCallClassifiesDeadlineAsTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.Retry.MaxAttempts = 2

	doer := &blockingDoer{}
	c := newTestClient(t, cfg, doer, &fakeSleeper{})

	_, err := c.Call(context.Background(), "ping", nil)
	cerr := asClientError(t, err)
	if cerr.Kind != KindTimeout {
		t.Errorf("expected timeout error, got %s", cerr.Kind)
	}
	if !strings.Contains(cerr.Message, "10ms") {
		t.Errorf("expected configured timeout in message, got %q", cerr.Message)
	}
	if cerr.Attempts != 2 {
		t.Errorf("expected timeout to be retried to exhaustion (2 attempts), got %d", cerr.Attempts)
	}
	if doer.calls != 2 {
		t.Errorf("expected 2 requests, got %d", doer.calls)
	}
}

func TestCallEnvelopeShape(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{status: 503},
		{status: 200, body: `{"jsonrpc":"2.0","id":"getContractData-2","result":{}}`},
	}}
	c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

	_, err := c.GetIdentityState(context.Background(), "GALICE")
	if err != nil {
		t.Fatalf("expected success, got: %v", err)
	}

	if len(doer.bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(doer.bodies))
	}
	for i, body := range doer.bodies {
		var env struct {
			JSONRPC string `json:"jsonrpc"`
			ID      string `json:"id"`
			Method  string `json:"method"`
			Params  struct {
				ContractID string `json:"contractId"`
				Network    string `json:"network"`
				Key        struct {
					Type    string `json:"type"`
					Address string `json:"address"`
				} `json:"key"`
			} `json:"params"`
		}
		if err := json.Unmarshal([]byte(body), &env); err != nil {
			t.Fatalf("request %d is not valid JSON: %v", i, err)
		}
		if env.JSONRPC != "2.0" {
			t.Errorf("request %d: expected protocol tag 2.0, got %q", i, env.JSONRPC)
		}
		if env.Method != "getContractData" {
			t.Errorf("request %d: unexpected method %q", i, env.Method)
		}
		if env.Params.ContractID != "CREGISTRY" || env.Params.Network != "testnet" {
			t.Errorf("request %d: unexpected params %+v", i, env.Params)
		}
		if env.Params.Key.Type != "identity" || env.Params.Key.Address != "GALICE" {
			t.Errorf("request %d: unexpected key %+v", i, env.Params.Key)
		}
	}
	// The correlation id carries the attempt number.
	if !strings.Contains(doer.bodies[0], `"id":"getContractData-1"`) {
		t.Errorf("first request should carry attempt 1 id: %s", doer.bodies[0])
	}
	if !strings.Contains(doer.bodies[1], `"id":"getContractData-2"`) {
		t.Errorf("second request should carry attempt 2 id: %s", doer.bodies[1])
	}
}

func TestGetContractEventsNormalization(t *testing.T) {
	tests := []struct {
		name       string
		result     string
		wantEvents int
		wantCursor string
	}{
		{"empty object", `{}`, 0, ""},
		{"events with latestCursor", `{"events":[{"id":"e1"}],"latestCursor":"c2"}`, 1, "c2"},
		{"events with legacy cursor", `{"events":[{"id":"e1"}],"cursor":"c9"}`, 1, "c9"},
		{"latestCursor wins over cursor", `{"events":[],"latestCursor":"new","cursor":"old"}`, 0, "new"},
		{"null events", `{"events":null}`, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &fakeDoer{responses: []fakeResponse{
				{status: 200, body: `{"jsonrpc":"2.0","id":"getEvents-1","result":` + tt.result + `}`},
			}}
			c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

			page, err := c.GetContractEvents(context.Background(), "")
			if err != nil {
				t.Fatalf("expected success, got: %v", err)
			}
			if page.Events == nil {
				t.Fatal("events must never be nil")
			}
			if len(page.Events) != tt.wantEvents {
				t.Errorf("expected %d events, got %d", tt.wantEvents, len(page.Events))
			}
			if page.Cursor != tt.wantCursor {
				t.Errorf("expected cursor %q, got %q", tt.wantCursor, page.Cursor)
			}
		})
	}
}

func TestGetContractEventsCursorParam(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":"getEvents-1","result":{}}`

	t.Run("cursor omitted when empty", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{{status: 200, body: body}}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		if _, err := c.GetContractEvents(context.Background(), ""); err != nil {
			t.Fatalf("expected success, got: %v", err)
		}
		if strings.Contains(doer.bodies[0], `"cursor"`) {
			t.Errorf("cursor should be omitted: %s", doer.bodies[0])
		}
	})

	t.Run("cursor forwarded when supplied", func(t *testing.T) {
		doer := &fakeDoer{responses: []fakeResponse{{status: 200, body: body}}}
		c := newTestClient(t, testConfig(), doer, &fakeSleeper{})

		if _, err := c.GetContractEvents(context.Background(), "c42"); err != nil {
			t.Fatalf("expected success, got: %v", err)
		}
		if !strings.Contains(doer.bodies[0], `"cursor":"c42"`) {
			t.Errorf("cursor should be forwarded: %s", doer.bodies[0])
		}
		if !strings.Contains(doer.bodies[0], `"contractIds":["CREGISTRY"]`) {
			t.Errorf("contract ids missing: %s", doer.bodies[0])
		}
	})
}
