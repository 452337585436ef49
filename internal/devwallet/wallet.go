// Package devwallet is an in-process wallet provider. It stands in for the
// external wallet the host environment would normally inject: it owns a dev
// account key, answers the EIP-1193 account/signing methods locally, and
// forwards every other JSON-RPC method to an upstream node. The demo and the
// test suite inject it through host.Inject; production embeddings inject a
// real wallet instead and this package stays out of the build.
package devwallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"WalletBridge/internal/host"
	"WalletBridge/pkg/logger"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"
)

// userRejectedMessage matches the phrasing browser wallets use, so the
// bridge's rejection heuristic classifies a denied prompt the same way.
const userRejectedMessage = "User rejected the request."

// unsupportedCode is the EIP-1193 "unsupported method" error code.
const unsupportedCode = 4200

// Config describes how to construct a dev wallet.
type Config struct {
	Name    string
	ChainID uint64
	// RPCURL names the upstream node for passthrough and broadcasting.
	// Without it the wallet still answers account and signing methods.
	RPCURL string
	// Key is the dev account private key.
	Key *ecdsa.PrivateKey
	// AutoApprove grants account access and signs without prompting. When
	// false every prompt-gated method is denied like a user clicking reject.
	AutoApprove bool
	// AllowEthSign enables the legacy raw-digest eth_sign method, which is
	// refused by default the way modern wallets refuse it.
	AllowEthSign bool
}

// grant records one approved account-access handshake.
type grant struct {
	ID        string
	GrantedAt time.Time
}

// Wallet implements host.Provider backed by a local key and an optional
// upstream node.
type Wallet struct {
	name         string
	chainID      *big.Int
	key          *ecdsa.PrivateKey
	address      common.Address
	autoApprove  bool
	allowEthSign bool

	rpcClient *gethrpc.Client
	node      nodeBackend
	raw       rawCaller

	log   *slog.Logger
	audit *slog.Logger

	mu     sync.Mutex
	grants map[string]grant
}

// nodeBackend is the subset of ethclient the transaction path needs.
type nodeBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call gethcore.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// rawCaller is the subset of rpc.Client used for method passthrough.
type rawCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// New dials the upstream endpoint (when configured) and returns a wallet
// ready for host.Inject.
func New(ctx context.Context, cfg Config) (*Wallet, error) {
	if cfg.Key == nil {
		return nil, errors.New("devwallet: private key is required")
	}
	if cfg.ChainID == 0 {
		return nil, errors.New("devwallet: chain id is required")
	}

	w := &Wallet{
		name:         cfg.Name,
		chainID:      new(big.Int).SetUint64(cfg.ChainID),
		key:          cfg.Key,
		address:      crypto.PubkeyToAddress(cfg.Key.PublicKey),
		autoApprove:  cfg.AutoApprove,
		allowEthSign: cfg.AllowEthSign,
		log:          logger.Named("devwallet"),
		audit:        logger.Audit(),
		grants:       make(map[string]grant),
	}

	if rpcURL := strings.TrimSpace(cfg.RPCURL); rpcURL != "" {
		rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("devwallet: dial upstream node: %w", err)
		}
		w.rpcClient = rpcClient
		w.raw = rpcClient
		w.node = ethclient.NewClient(rpcClient)
	}
	return w, nil
}

// Address returns the dev account address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// Close releases the upstream connection.
func (w *Wallet) Close() {
	if w.rpcClient != nil {
		w.rpcClient.Close()
		w.rpcClient = nil
	}
}

// Request implements host.Provider.
func (w *Wallet) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	switch method {
	case "eth_requestAccounts":
		return w.requestAccounts()
	case "eth_accounts":
		return w.accounts()
	case "eth_chainId":
		return marshalResult(hexutil.EncodeBig(w.chainID))
	case "personal_sign":
		return w.personalSign(params)
	case "eth_sign":
		return w.ethSign(params)
	case "eth_sendTransaction":
		return w.sendTransaction(ctx, params)
	default:
		return w.passthrough(ctx, method, params)
	}
}

// requestAccounts is the prompt-gated handshake. Approval records a grant so
// later eth_accounts calls recover the session silently.
func (w *Wallet) requestAccounts() (json.RawMessage, error) {
	if !w.autoApprove {
		w.log.Info("account access denied", "wallet", w.name)
		return nil, errors.New(userRejectedMessage)
	}

	g := grant{ID: uuid.NewString(), GrantedAt: time.Now().UTC()}
	w.mu.Lock()
	w.grants[g.ID] = g
	w.mu.Unlock()

	w.audit.Info("account access granted",
		"wallet", w.name,
		"grant_id", g.ID,
		"address", w.address.Hex(),
	)
	return marshalResult([]string{w.address.Hex()})
}

// accounts answers the non-prompting query: the account list when a grant
// exists, an empty list otherwise.
func (w *Wallet) accounts() (json.RawMessage, error) {
	w.mu.Lock()
	granted := len(w.grants) > 0
	w.mu.Unlock()

	if !granted {
		return marshalResult([]string{})
	}
	return marshalResult([]string{w.address.Hex()})
}

// RevokeGrants drops every session grant, as if the user disconnected the
// site from the wallet.
func (w *Wallet) RevokeGrants() {
	w.mu.Lock()
	w.grants = make(map[string]grant)
	w.mu.Unlock()
}

// personalSign signs an EIP-191 prefixed message. Params are
// [messageHex, addressHex].
func (w *Wallet) personalSign(params any) (json.RawMessage, error) {
	if !w.autoApprove {
		return nil, errors.New(userRejectedMessage)
	}
	args, err := stringParams(params, 2)
	if err != nil {
		return nil, err
	}
	message, err := hexutil.Decode(args[0])
	if err != nil {
		return nil, fmt.Errorf("devwallet: decode message: %w", err)
	}
	if err := w.checkAddress(args[1]); err != nil {
		return nil, err
	}

	sig, err := w.signDigest(accounts.TextHash(message))
	if err != nil {
		return nil, err
	}
	w.audit.Info("message signed",
		"wallet", w.name,
		"address", w.address.Hex(),
		"message_bytes", len(message),
	)
	return marshalResult(hexutil.Encode(sig))
}

// ethSign signs a raw 32-byte digest without any prefix. Disabled by default:
// signing opaque digests lets a malicious payload double as a transaction.
func (w *Wallet) ethSign(params any) (json.RawMessage, error) {
	if !w.allowEthSign {
		return nil, &host.RPCError{Code: unsupportedCode, Message: "eth_sign is disabled"}
	}
	if !w.autoApprove {
		return nil, errors.New(userRejectedMessage)
	}
	args, err := stringParams(params, 2)
	if err != nil {
		return nil, err
	}
	if err := w.checkAddress(args[0]); err != nil {
		return nil, err
	}
	digest, err := hexutil.Decode(args[1])
	if err != nil {
		return nil, fmt.Errorf("devwallet: decode digest: %w", err)
	}
	if len(digest) != common.HashLength {
		return nil, fmt.Errorf("devwallet: digest is %d bytes, want %d", len(digest), common.HashLength)
	}

	sig, err := w.signDigest(digest)
	if err != nil {
		return nil, err
	}
	w.audit.Info("raw digest signed", "wallet", w.name, "address", w.address.Hex())
	return marshalResult(hexutil.Encode(sig))
}

// signDigest signs with the dev key and shifts V to the 27/28 convention
// wallets use on the wire.
func (w *Wallet) signDigest(digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, w.key)
	if err != nil {
		return nil, fmt.Errorf("devwallet: sign: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

func (w *Wallet) checkAddress(addrHex string) error {
	if !common.IsHexAddress(addrHex) {
		return fmt.Errorf("devwallet: invalid address %q", addrHex)
	}
	if common.HexToAddress(addrHex) != w.address {
		return fmt.Errorf("devwallet: account %s is not managed by this wallet", addrHex)
	}
	return nil
}

// passthrough forwards an unhandled method to the upstream node.
func (w *Wallet) passthrough(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if w.raw == nil {
		return nil, &host.RPCError{
			Code:    unsupportedCode,
			Message: fmt.Sprintf("method %s is not supported without an upstream node", method),
		}
	}

	var args []any
	switch v := params.(type) {
	case nil:
	case []any:
		args = v
	default:
		args = []any{v}
	}

	var result json.RawMessage
	if err := w.raw.CallContext(ctx, &result, method, args...); err != nil {
		var rpcErr gethrpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &host.RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		}
		return nil, err
	}
	return result, nil
}

// stringParams extracts exactly want leading string arguments.
func stringParams(params any, want int) ([]string, error) {
	arr, ok := params.([]any)
	if !ok || len(arr) < want {
		return nil, fmt.Errorf("devwallet: expected %d parameters", want)
	}
	out := make([]string, want)
	for i := 0; i < want; i++ {
		s, ok := arr[i].(string)
		if !ok {
			return nil, fmt.Errorf("devwallet: parameter %d is not a string", i)
		}
		out[i] = s
	}
	return out, nil
}

func marshalResult(value any) (json.RawMessage, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("devwallet: marshal result: %w", err)
	}
	return raw, nil
}
