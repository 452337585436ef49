package signer

import (
	"WalletBridge/internal/bridgeerr"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SignatureLength is the byte length of a secp256k1 signature in the
// R || S || V layout wallets return.
const SignatureLength = 65

// Signature is a structured secp256k1 signature parsed from the hex string a
// wallet returns. V is kept exactly as the wallet produced it (wallets emit
// 27/28, some tooling emits 0/1).
type Signature struct {
	raw [SignatureLength]byte
}

// ParseSignature decodes a 0x-prefixed hex signature string.
func ParseSignature(sigHex string) (Signature, error) {
	data, err := hexutil.Decode(sigHex)
	if err != nil {
		return Signature{}, bridgeerr.Wrap(bridgeerr.CodeInvalidSignature, err, "decode signature hex")
	}
	if len(data) != SignatureLength {
		return Signature{}, bridgeerr.Newf(bridgeerr.CodeInvalidSignature,
			"signature is %d bytes, want %d", len(data), SignatureLength)
	}
	var sig Signature
	copy(sig.raw[:], data)
	return sig, nil
}

// Bytes returns the 65-byte R || S || V representation.
func (s Signature) Bytes() []byte {
	out := make([]byte, SignatureLength)
	copy(out, s.raw[:])
	return out
}

// Hex returns the 0x-prefixed hex encoding.
func (s Signature) Hex() string {
	return hexutil.Encode(s.raw[:])
}

// R returns the first 32 bytes.
func (s Signature) R() [32]byte {
	var r [32]byte
	copy(r[:], s.raw[:32])
	return r
}

// S returns the second 32 bytes.
func (s Signature) S() [32]byte {
	var v [32]byte
	copy(v[:], s.raw[32:64])
	return v
}

// V returns the recovery byte as the wallet produced it.
func (s Signature) V() byte {
	return s.raw[64]
}

// Recoverable returns the signature with V normalised to 0/1, the layout
// go-ethereum's crypto.Ecrecover and SigToPub expect.
func (s Signature) Recoverable() []byte {
	out := s.Bytes()
	if out[64] >= 27 {
		out[64] -= 27
	}
	return out
}
