package host

import (
	"bytes"
	"encoding/json"

	"WalletBridge/internal/bridgeerr"
)

// EncodeValue converts a decoded host value (the any-typed shape providers
// accept) back to raw JSON.
func EncodeValue(value any) (json.RawMessage, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.CodeSerialization, err, "encode host value")
	}
	return raw, nil
}

// DecodeValue converts raw JSON into the host value representation: nil,
// bool, json.Number, string, []any or map[string]any. Numbers stay as
// json.Number so integers survive the round trip without float drift.
func DecodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.CodeSerialization, err, "decode host value")
	}
	return value, nil
}
