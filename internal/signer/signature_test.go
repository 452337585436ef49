package signer

import (
	"bytes"
	"errors"
	"testing"

	"WalletBridge/internal/bridgeerr"
)

func TestParseSignatureRoundTrip(t *testing.T) {
	sig, err := ParseSignature(sigHex)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sig.Hex() != sigHex {
		t.Fatalf("hex round trip: %s != %s", sig.Hex(), sigHex)
	}
	if sig.V() != 27 {
		t.Fatalf("v = %d, want 27", sig.V())
	}
	r := sig.R()
	if r[0] != 0x01 {
		t.Fatalf("unexpected r prefix %x", r[0])
	}
}

func TestParseSignatureErrors(t *testing.T) {
	cases := []string{
		"not hex",
		"0x01",
		"0x" + repeatHex("01", 66),
		"",
	}
	for _, raw := range cases {
		if _, err := ParseSignature(raw); !errors.Is(err, bridgeerr.ErrInvalidSignature) {
			t.Errorf("ParseSignature(%q) = %v, want INVALID_SIGNATURE", raw, err)
		}
	}
}

func TestSignatureRecoverableNormalisesV(t *testing.T) {
	sig, err := ParseSignature(sigHex)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	recoverable := sig.Recoverable()
	if recoverable[64] != 0 {
		t.Fatalf("v = %d, want 0", recoverable[64])
	}
	// The original bytes stay untouched.
	if sig.V() != 27 {
		t.Fatalf("Recoverable must not mutate the signature, v = %d", sig.V())
	}
	if !bytes.Equal(recoverable[:64], sig.Bytes()[:64]) {
		t.Fatal("r and s must be unchanged")
	}
}
