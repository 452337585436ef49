// Package signer exposes a wallet identity and message-signing operations
// delegated to the injected provider. Private key material never enters this
// process: the host wallet produces every signature, and transaction signing
// stays with the host entirely (eth_sendTransaction flows through the
// transport unmodified, the wallet signs and broadcasts atomically).
package signer

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"sync"

	"WalletBridge/internal/bridgeerr"
	"WalletBridge/internal/host"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	methodRequestAccounts = "eth_requestAccounts"
	methodAccounts        = "eth_accounts"
	methodChainID         = "eth_chainId"
	methodPersonalSign    = "personal_sign"
	methodSign            = "eth_sign"
)

// Identity is the cached connection state: the active account plus the chain
// the wallet reported at handshake time. A nil ChainID means the host did not
// report one (or reported something undecodable).
type Identity struct {
	Address common.Address
	ChainID *big.Int
}

// Signer delegates signing to the injected wallet provider. The cached
// identity is the only shared mutable state; Connect and ConnectSilent
// replace it wholesale under the lock, nothing mutates it field by field.
type Signer struct {
	invoke func(ctx context.Context, method string, params any) (json.RawMessage, error)

	mu        sync.RWMutex
	identity  Identity
	connected bool
}

// New returns a signer backed by the process-wide injected provider.
func New() *Signer {
	return &Signer{invoke: host.Invoke}
}

// Connect performs the account-access handshake. The host may prompt the
// user; a declined prompt surfaces as USER_REJECTED. The first authorized
// account becomes the active address. The chain id is queried separately and
// cached; a chain id that fails to decode degrades to unknown rather than
// failing the connect.
func (s *Signer) Connect(ctx context.Context) (Identity, error) {
	return s.connect(ctx, methodRequestAccounts)
}

// ConnectSilent recovers an already-granted session using the non-prompting
// account query. Parsing is identical to Connect.
func (s *Signer) ConnectSilent(ctx context.Context) (Identity, error) {
	return s.connect(ctx, methodAccounts)
}

func (s *Signer) connect(ctx context.Context, method string) (Identity, error) {
	raw, err := s.invoke(ctx, method, []any{})
	if err != nil {
		return Identity{}, err
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return Identity{}, bridgeerr.Wrap(bridgeerr.CodeSerialization, err, "decode account list")
	}
	if len(accounts) == 0 {
		return Identity{}, bridgeerr.New(bridgeerr.CodeNoAccounts, "")
	}
	if !common.IsHexAddress(accounts[0]) {
		return Identity{}, bridgeerr.Newf(bridgeerr.CodeInvalidAddress, "invalid address %q", accounts[0])
	}

	identity := Identity{Address: common.HexToAddress(accounts[0])}

	rawChain, err := s.invoke(ctx, methodChainID, []any{})
	if err != nil {
		return Identity{}, err
	}
	var chainHex string
	if err := json.Unmarshal(rawChain, &chainHex); err != nil {
		return Identity{}, bridgeerr.Wrap(bridgeerr.CodeSerialization, err, "decode chain id")
	}
	identity.ChainID = parseChainID(chainHex)

	s.mu.Lock()
	s.identity = identity
	s.connected = true
	s.mu.Unlock()

	return identity, nil
}

// SignMessage asks the wallet to sign arbitrary bytes with the active account
// (personal_sign, EIP-191). The wallet applies the message prefix itself.
func (s *Signer) SignMessage(ctx context.Context, message []byte) (Signature, error) {
	addr, err := s.activeAddress()
	if err != nil {
		return Signature{}, err
	}
	// personal_sign takes [message, address]; eth_sign reverses them.
	return s.requestSignature(ctx, methodPersonalSign, []any{hexutil.Encode(message), addr.Hex()})
}

// SignHash asks the wallet to sign a raw 32-byte digest (eth_sign). Modern
// wallets refuse this method as a security policy; the refusal is surfaced
// verbatim, never silently rerouted to SignMessage.
func (s *Signer) SignHash(ctx context.Context, hash common.Hash) (Signature, error) {
	addr, err := s.activeAddress()
	if err != nil {
		return Signature{}, err
	}
	return s.requestSignature(ctx, methodSign, []any{addr.Hex(), hash.Hex()})
}

func (s *Signer) requestSignature(ctx context.Context, method string, params []any) (Signature, error) {
	raw, err := s.invoke(ctx, method, params)
	if err != nil {
		return Signature{}, err
	}
	var sigHex string
	if err := json.Unmarshal(raw, &sigHex); err != nil {
		return Signature{}, bridgeerr.Wrap(bridgeerr.CodeSerialization, err, "decode signature")
	}
	return ParseSignature(sigHex)
}

// SetChainID overrides the cached chain id locally. No host traffic happens
// and the value is not validated against the wallet's actual network.
func (s *Signer) SetChainID(id *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == nil {
		s.identity.ChainID = nil
		return
	}
	s.identity.ChainID = new(big.Int).Set(id)
}

// Address returns the active account. The zero address means no session has
// been established yet.
func (s *Signer) Address() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Address
}

// ChainID returns a copy of the cached chain id, or nil when unknown.
func (s *Signer) ChainID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity.ChainID == nil {
		return nil
	}
	return new(big.Int).Set(s.identity.ChainID)
}

// Identity returns a copy of the cached identity.
func (s *Signer) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity := Identity{Address: s.identity.Address}
	if s.identity.ChainID != nil {
		identity.ChainID = new(big.Int).Set(s.identity.ChainID)
	}
	return identity
}

func (s *Signer) activeAddress() (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return common.Address{}, bridgeerr.New(bridgeerr.CodeNoAccounts, "signer not connected")
	}
	return s.identity.Address, nil
}

// parseChainID decodes the hex chain id string wallets report. Any decode
// failure yields nil (chain unknown) instead of an error.
func parseChainID(raw string) *big.Int {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if trimmed == "" {
		return nil
	}
	id, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil
	}
	return id
}
