package host

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"WalletBridge/internal/bridgeerr"
)

// stubProvider answers every request with a fixed result or error and counts
// how often it was asked.
type stubProvider struct {
	result json.RawMessage
	err    error
	calls  int
}

func (s *stubProvider) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestResolveWithoutProvider(t *testing.T) {
	Eject()
	if _, err := Resolve(); !errors.Is(err, bridgeerr.ErrNoHost) {
		t.Fatalf("expected NO_HOST, got %v", err)
	}
}

func TestResolvePicksUpLateInjection(t *testing.T) {
	Eject()
	if _, err := Resolve(); err == nil {
		t.Fatal("expected resolve to fail before injection")
	}

	stub := &stubProvider{result: json.RawMessage(`"ok"`)}
	Inject(stub)
	defer Eject()

	provider, err := Resolve()
	if err != nil {
		t.Fatalf("resolve after injection: %v", err)
	}
	if provider != stub {
		t.Fatal("resolve returned a different provider than injected")
	}
}

func TestInvokeWithoutProviderSkipsHost(t *testing.T) {
	Eject()
	stub := &stubProvider{}

	_, err := Invoke(context.Background(), "eth_chainId", []any{})
	if !errors.Is(err, bridgeerr.ErrNoHost) {
		t.Fatalf("expected NO_HOST, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("no host interaction may happen, saw %d calls", stub.calls)
	}
}

func TestInvokeReturnsResult(t *testing.T) {
	stub := &stubProvider{result: json.RawMessage(`"0x1"`)}
	Inject(stub)
	defer Eject()

	result, err := Invoke(context.Background(), "eth_chainId", []any{})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if string(result) != `"0x1"` {
		t.Fatalf("unexpected result %s", result)
	}
}

func TestClassifyRejection(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bridgeerr.Code
	}{
		{"metamask phrasing", errors.New("User rejected the request."), bridgeerr.CodeUserRejected},
		{"legacy phrasing", errors.New("User denied message signature"), bridgeerr.CodeUserRejected},
		{"lowercase rejected", errors.New("signature request rejected by user"), bridgeerr.CodeUserRejected},
		{"rpc error", &RPCError{Code: -32601, Message: "method not found"}, bridgeerr.CodeHostRejected},
		{"other failure", errors.New("provider disconnected"), bridgeerr.CodeHostError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyRejection(tc.err)
			if bridgeerr.CodeOf(got) != tc.want {
				t.Fatalf("classified as %s, want %s", bridgeerr.CodeOf(got), tc.want)
			}
		})
	}
}

func TestClassifyRejectionKeepsBridgeErrors(t *testing.T) {
	original := bridgeerr.New(bridgeerr.CodeNoAccounts, "")
	if got := ClassifyRejection(original); !errors.Is(got, bridgeerr.ErrNoAccounts) {
		t.Fatalf("bridge errors must pass through unchanged, got %v", got)
	}
}
