package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"WalletBridge/internal/bridgeerr"
	"WalletBridge/internal/host"
)

// scriptedProvider answers per method and records every invocation.
type scriptedProvider struct {
	results map[string]json.RawMessage
	errs    map[string]error

	methods []string
	params  []any
}

func (p *scriptedProvider) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	p.methods = append(p.methods, method)
	p.params = append(p.params, params)
	if err, ok := p.errs[method]; ok {
		return nil, err
	}
	if result, ok := p.results[method]; ok {
		return result, nil
	}
	return json.RawMessage(`null`), nil
}

func useProvider(t *testing.T, p host.Provider) {
	t.Helper()
	host.Inject(p)
	t.Cleanup(host.Eject)
}

func mustRequest(t *testing.T, id any, method string, params any) *Request {
	t.Helper()
	req, err := NewRequest(id, method, params)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

func TestSendWrapsResult(t *testing.T) {
	provider := &scriptedProvider{results: map[string]json.RawMessage{
		"eth_blockNumber": json.RawMessage(`"0x10"`),
	}}
	useProvider(t, provider)

	resp, err := New().Send(context.Background(), mustRequest(t, 7, "eth_blockNumber", nil))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(resp.ID) != "7" {
		t.Fatalf("response id = %s, want 7", resp.ID)
	}
	if string(resp.Result) != `"0x10"` {
		t.Fatalf("unexpected result %s", resp.Result)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error member %+v", resp.Error)
	}
	if resp.JSONRPC != Version {
		t.Fatalf("response version = %q", resp.JSONRPC)
	}
}

func TestSendAbsentParamsBecomeEmptyArray(t *testing.T) {
	provider := &scriptedProvider{}
	useProvider(t, provider)

	for _, raw := range []json.RawMessage{nil, json.RawMessage(`null`)} {
		provider.params = nil
		req := &Request{JSONRPC: Version, ID: json.RawMessage(`1`), Method: "eth_accounts", Params: raw}
		if _, err := New().Send(context.Background(), req); err != nil {
			t.Fatalf("send: %v", err)
		}
		forwarded, ok := provider.params[0].([]any)
		if !ok {
			t.Fatalf("forwarded params are %T, want empty array", provider.params[0])
		}
		if len(forwarded) != 0 {
			t.Fatalf("forwarded params not empty: %v", forwarded)
		}
	}
}

func TestSendMalformedParamsFailBeforeHost(t *testing.T) {
	provider := &scriptedProvider{}
	useProvider(t, provider)

	req := &Request{ID: json.RawMessage(`1`), Method: "eth_call", Params: json.RawMessage(`{"broken":`)}
	_, err := New().Send(context.Background(), req)
	if !errors.Is(err, bridgeerr.ErrMalformedParams) {
		t.Fatalf("expected MALFORMED_PARAMS, got %v", err)
	}
	if len(provider.methods) != 0 {
		t.Fatalf("malformed input must fail before any host interaction, saw %v", provider.methods)
	}
}

func TestSendWithoutHost(t *testing.T) {
	host.Eject()
	_, err := New().Send(context.Background(), mustRequest(t, 1, "eth_blockNumber", nil))
	if !errors.Is(err, bridgeerr.ErrNoHost) {
		t.Fatalf("expected NO_HOST, got %v", err)
	}
}

func TestEthCallInputRenamedToData(t *testing.T) {
	provider := &scriptedProvider{}
	useProvider(t, provider)

	params := []any{
		map[string]any{
			"from":  "0x1111111111111111111111111111111111111111",
			"to":    "0x2222222222222222222222222222222222222222",
			"input": "0xdeadbeef",
			"value": "0x0",
		},
		"latest",
	}
	if _, err := New().Send(context.Background(), mustRequest(t, 1, "eth_call", params)); err != nil {
		t.Fatalf("send: %v", err)
	}

	forwarded := provider.params[0].([]any)
	if len(forwarded) != 2 || forwarded[1] != "latest" {
		t.Fatalf("sibling params must stay untouched: %v", forwarded)
	}
	obj := forwarded[0].(map[string]any)
	if _, ok := obj["input"]; ok {
		t.Fatal("input key must be renamed")
	}
	if obj["data"] != "0xdeadbeef" {
		t.Fatalf("data = %v, want 0xdeadbeef", obj["data"])
	}
	for _, key := range []string{"from", "to", "value"} {
		if _, ok := obj[key]; !ok {
			t.Fatalf("key %s was dropped by normalization", key)
		}
	}
}

func TestNormalizationOnlyTouchesEthCall(t *testing.T) {
	provider := &scriptedProvider{}
	useProvider(t, provider)

	params := []any{map[string]any{"input": "0x01"}}
	if _, err := New().Send(context.Background(), mustRequest(t, 1, "eth_estimateGas", params)); err != nil {
		t.Fatalf("send: %v", err)
	}
	obj := provider.params[0].([]any)[0].(map[string]any)
	if _, ok := obj["input"]; !ok {
		t.Fatalf("non-eth_call payload was rewritten: %v", obj)
	}
}

func TestNormalizationIsByteStable(t *testing.T) {
	provider := &scriptedProvider{}
	useProvider(t, provider)

	raw := `[{"to":"0xabc","input":"0x01","gas":"0x5208","tags":[1,2,3]},"0x10",{"extra":true}]`
	req := &Request{ID: json.RawMessage(`1`), Method: "eth_call", Params: json.RawMessage(raw)}
	if _, err := New().Send(context.Background(), req); err != nil {
		t.Fatalf("send: %v", err)
	}

	forwarded, err := json.Marshal(provider.params[0])
	if err != nil {
		t.Fatalf("re-encode forwarded params: %v", err)
	}
	want := `[{"gas":"0x5208","data":"0x01","tags":[1,2,3],"to":"0xabc"},"0x10",{"extra":true}]`
	var got, expect any
	if err := json.Unmarshal(forwarded, &got); err != nil {
		t.Fatalf("unmarshal forwarded: %v", err)
	}
	if err := json.Unmarshal([]byte(want), &expect); err != nil {
		t.Fatalf("unmarshal expectation: %v", err)
	}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("forwarded %s, want %s", forwarded, want)
	}
}

func TestSendBatchPreservesOrderAndCardinality(t *testing.T) {
	provider := &scriptedProvider{
		results: map[string]json.RawMessage{
			"eth_blockNumber": json.RawMessage(`"0x10"`),
			"eth_chainId":     json.RawMessage(`"0x1"`),
		},
		errs: map[string]error{
			"eth_getBalance": errors.New("User rejected the request."),
		},
	}
	useProvider(t, provider)

	reqs := []*Request{
		mustRequest(t, 1, "eth_blockNumber", nil),
		mustRequest(t, 2, "eth_getBalance", []any{"0xabc", "latest"}),
		mustRequest(t, 3, "eth_chainId", nil),
	}
	resps := New().SendBatch(context.Background(), reqs)

	if len(resps) != len(reqs) {
		t.Fatalf("got %d responses for %d requests", len(resps), len(reqs))
	}
	for i, resp := range resps {
		if string(resp.ID) != fmt.Sprintf("%d", i+1) {
			t.Fatalf("response %d carries id %s", i, resp.ID)
		}
	}
	if resps[0].Error != nil || resps[2].Error != nil {
		t.Fatal("sibling results must not be affected by the failing item")
	}
	if resps[1].Error == nil {
		t.Fatal("failing item must carry an error member")
	}
	if resps[1].Error.Code != serverErrorCode {
		t.Fatalf("error code = %d, want %d", resps[1].Error.Code, serverErrorCode)
	}
	// The third request must still have reached the host.
	if len(provider.methods) != 3 {
		t.Fatalf("expected 3 host calls, saw %v", provider.methods)
	}
}

func TestSendBatchEmpty(t *testing.T) {
	useProvider(t, &scriptedProvider{})
	if resps := New().SendBatch(context.Background(), nil); len(resps) != 0 {
		t.Fatalf("expected no responses, got %d", len(resps))
	}
}
