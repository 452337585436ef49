package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Dial exposes the transport as a go-ethereum *rpc.Client so ethclient and
// the rest of the geth stack work unmodified on top of the injected wallet
// provider. The client speaks JSON-RPC over an in-memory pipe that a serve
// loop answers through Send/SendBatch. Cancelling ctx tears the pipe down
// and ends the connection.
func (t *Transport) Dial(ctx context.Context) (*gethrpc.Client, error) {
	clientReader, serverWriter := io.Pipe()
	serverReader, clientWriter := io.Pipe()

	go t.serve(ctx, serverReader, serverWriter)
	go func() {
		<-ctx.Done()
		serverReader.CloseWithError(ctx.Err())
		serverWriter.CloseWithError(ctx.Err())
	}()

	client, err := gethrpc.DialIO(ctx, clientReader, clientWriter)
	if err != nil {
		clientWriter.Close()
		serverWriter.Close()
		return nil, err
	}
	return client, nil
}

// serve answers one wire connection. Singles and batches are distinguished by
// the first non-space byte; responses go back in request order.
func (t *Transport) serve(ctx context.Context, r io.Reader, w *io.PipeWriter) {
	defer w.Close()

	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return
		}

		var payload any
		if isBatch(raw) {
			var reqs []*Request
			if err := json.Unmarshal(raw, &reqs); err != nil {
				payload = errorResponse(nil, err)
			} else {
				payload = t.SendBatch(ctx, reqs)
			}
		} else {
			var req Request
			if err := json.Unmarshal(raw, &req); err != nil {
				payload = errorResponse(nil, err)
			} else {
				resp, err := t.Send(ctx, &req)
				if err != nil {
					resp = errorResponse(req.ID, err)
				}
				payload = resp
			}
		}

		if err := enc.Encode(payload); err != nil {
			return
		}
	}
}

func isBatch(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
