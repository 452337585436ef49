package host

import (
	"errors"
	"strings"

	"WalletBridge/internal/bridgeerr"
)

// RPCError is the JSON-RPC error object a provider returns when the wallet
// itself answered with an error response rather than failing outright.
// Providers should return it (or wrap it) from Request so callers keep the
// host's code and message.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}

// rejectionPhrases are the known wordings wallets use when the user declines
// a prompt. The host gives no stable machine-readable code for this case, so
// classification is a best-effort substring match. Kept deliberately as a
// documented heuristic; do not treat a miss as a guarantee the user approved.
var rejectionPhrases = []string{
	"User rejected",
	"User denied",
	"rejected",
}

// ClassifyRejection maps a provider failure onto the bridge taxonomy.
func ClassifyRejection(err error) error {
	if err == nil {
		return nil
	}
	var be *bridgeerr.Error
	if errors.As(err, &be) {
		return err
	}

	msg := err.Error()
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return bridgeerr.Wrap(bridgeerr.CodeUserRejected, err, "")
		}
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return bridgeerr.Wrap(bridgeerr.CodeHostRejected, err, rpcErr.Message)
	}
	return bridgeerr.Wrap(bridgeerr.CodeHostError, err, "")
}
