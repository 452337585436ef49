// Package host resolves the wallet provider object the embedding runtime
// injects (the EIP-1193 pattern) and exposes a single request primitive on
// top of it. The provider is borrowed, never owned: it may be injected after
// this package initialises and may be ejected again, so every top-level call
// resolves it fresh instead of caching the handle.
package host

import (
	"context"
	"encoding/json"
	"sync"

	"WalletBridge/internal/bridgeerr"
)

// Provider is the host-injected wallet object. Request issues a single
// JSON-RPC method call and awaits its one asynchronous result. params is a
// JSON array or object (already decoded, never raw bytes).
type Provider interface {
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

var (
	injectMu sync.RWMutex
	injected Provider
)

// Inject registers the wallet provider for the process. The embedding host
// calls this once its wallet object is ready; passing nil is equivalent to
// Eject.
func Inject(p Provider) {
	injectMu.Lock()
	defer injectMu.Unlock()
	injected = p
}

// Eject removes the injected provider. Subsequent operations fail with
// NO_HOST until a provider is injected again.
func Eject() {
	injectMu.Lock()
	defer injectMu.Unlock()
	injected = nil
}

// Resolve looks up the injected provider. The lookup is idempotent and
// intentionally uncached so a provider injected after startup is picked up.
func Resolve() (Provider, error) {
	injectMu.RLock()
	defer injectMu.RUnlock()
	if injected == nil {
		return nil, bridgeerr.New(bridgeerr.CodeNoHost, "")
	}
	return injected, nil
}

// Invoke resolves the provider and issues one request against it. Failures
// are classified: user rejections are recognised from the rejection message,
// JSON-RPC errors from the host keep their code and message, anything else
// becomes a generic host error.
func Invoke(ctx context.Context, method string, params any) (json.RawMessage, error) {
	provider, err := Resolve()
	if err != nil {
		return nil, err
	}
	result, err := provider.Request(ctx, method, params)
	if err != nil {
		return nil, ClassifyRejection(err)
	}
	return result, nil
}
