package devwallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"WalletBridge/internal/host"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// txRequest is the decoded eth_sendTransaction parameter object. Optional
// fields left nil are filled from the upstream node before signing.
type txRequest struct {
	from      common.Address
	to        *common.Address
	value     *big.Int
	data      []byte
	gas       uint64
	gasFeeCap *big.Int
	gasTipCap *big.Int
	nonce     *uint64
}

// sendTransaction is the one state-changing operation: the wallet signs and
// broadcasts atomically, the bridge never sees the private key or the raw
// signed payload.
func (w *Wallet) sendTransaction(ctx context.Context, params any) (json.RawMessage, error) {
	if w.node == nil {
		return nil, &host.RPCError{
			Code:    unsupportedCode,
			Message: "eth_sendTransaction requires an upstream node",
		}
	}
	if !w.autoApprove {
		return nil, errors.New(userRejectedMessage)
	}

	arr, ok := params.([]any)
	if !ok || len(arr) == 0 {
		return nil, errors.New("devwallet: eth_sendTransaction expects a transaction object")
	}
	obj, ok := arr[0].(map[string]any)
	if !ok {
		return nil, errors.New("devwallet: transaction parameter is not an object")
	}

	req, err := parseTxRequest(obj)
	if err != nil {
		return nil, err
	}
	if req.from != (common.Address{}) && req.from != w.address {
		return nil, fmt.Errorf("devwallet: account %s is not managed by this wallet", req.from.Hex())
	}

	nonce := uint64(0)
	if req.nonce != nil {
		nonce = *req.nonce
	} else {
		nonce, err = w.node.PendingNonceAt(ctx, w.address)
		if err != nil {
			return nil, fmt.Errorf("devwallet: fetch nonce: %w", err)
		}
	}

	gasTipCap := req.gasTipCap
	if gasTipCap == nil {
		gasTipCap, err = w.node.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("devwallet: suggest gas tip: %w", err)
		}
	}
	gasFeeCap := req.gasFeeCap
	if gasFeeCap == nil {
		head, err := w.node.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("devwallet: fetch head: %w", err)
		}
		gasFeeCap = new(big.Int).Set(gasTipCap)
		if head.BaseFee != nil {
			gasFeeCap.Add(gasFeeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		}
	}

	gas := req.gas
	if gas == 0 {
		gas, err = w.node.EstimateGas(ctx, gethcore.CallMsg{
			From:      w.address,
			To:        req.to,
			Value:     req.value,
			Data:      req.data,
			GasFeeCap: gasFeeCap,
			GasTipCap: gasTipCap,
		})
		if err != nil {
			return nil, fmt.Errorf("devwallet: estimate gas: %w", err)
		}
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   w.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gas,
		To:        req.to,
		Value:     req.value,
		Data:      req.data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("devwallet: sign transaction: %w", err)
	}
	if err := w.node.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("devwallet: broadcast: %w", err)
	}

	w.audit.Info("transaction sent",
		"wallet", w.name,
		"hash", signed.Hash().Hex(),
		"nonce", nonce,
		"gas", gas,
	)
	return marshalResult(signed.Hash().Hex())
}

func parseTxRequest(obj map[string]any) (txRequest, error) {
	var req txRequest

	if raw, ok := obj["from"]; ok {
		addr, err := parseAddress(raw)
		if err != nil {
			return req, fmt.Errorf("devwallet: from: %w", err)
		}
		req.from = addr
	}
	if raw, ok := obj["to"]; ok && raw != nil {
		addr, err := parseAddress(raw)
		if err != nil {
			return req, fmt.Errorf("devwallet: to: %w", err)
		}
		req.to = &addr
	}
	if v, err := parseQuantity(obj, "value"); err != nil {
		return req, err
	} else if v != nil {
		req.value = v
	}
	if v, err := parseQuantity(obj, "maxFeePerGas"); err != nil {
		return req, err
	} else if v != nil {
		req.gasFeeCap = v
	}
	if v, err := parseQuantity(obj, "maxPriorityFeePerGas"); err != nil {
		return req, err
	} else if v != nil {
		req.gasTipCap = v
	}
	if v, err := parseQuantity(obj, "gas"); err != nil {
		return req, err
	} else if v != nil {
		req.gas = v.Uint64()
	}
	if v, err := parseQuantity(obj, "nonce"); err != nil {
		return req, err
	} else if v != nil {
		n := v.Uint64()
		req.nonce = &n
	}

	// Clients disagree on the calldata field name; accept both.
	for _, key := range []string{"data", "input"} {
		raw, ok := obj[key]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return req, fmt.Errorf("devwallet: %s is not a hex string", key)
		}
		data, err := hexutil.Decode(s)
		if err != nil {
			return req, fmt.Errorf("devwallet: decode %s: %w", key, err)
		}
		req.data = data
		break
	}
	return req, nil
}

func parseAddress(raw any) (common.Address, error) {
	s, ok := raw.(string)
	if !ok || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %v", raw)
	}
	return common.HexToAddress(s), nil
}

// parseQuantity reads a hex quantity field. Missing and null both mean "not
// provided". Leading zeros are tolerated; wallets see them in the wild.
func parseQuantity(obj map[string]any, key string) (*big.Int, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("devwallet: %s is not a hex quantity", key)
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return nil, fmt.Errorf("devwallet: %s is empty", key)
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("devwallet: %s is not a hex quantity", key)
	}
	return v, nil
}
