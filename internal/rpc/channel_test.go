package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newBufReader(r io.Reader) *bufio.Reader {
	return bufio.NewReader(r)
}

func unmarshalStrict(body []byte, v any) error {
	return json.Unmarshal(body, v)
}

func writeRaw(t *testing.T, w io.Writer, msg any) {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body))
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
}

// pipePair wires a Channel to a minimal peer that understands the same
// Content-Length framing, standing in for a real LSP server's stdio.
type pipePair struct {
	toChannel   *io.PipeWriter
	fromChannel *io.PipeReader
	peerIn      *io.PipeReader
	peerOut     *io.PipeWriter
}

func newPeeredChannel(t *testing.T) (*Channel, *pipePair) {
	t.Helper()
	peerIn, toChannel := io.Pipe()
	fromChannel, peerOut := io.Pipe()
	ch := NewChannel(toChannel, fromChannel)
	return ch, &pipePair{peerIn: peerIn, peerOut: peerOut}
}

func (p *pipePair) readFrame(t *testing.T) []byte {
	t.Helper()
	body, err := readFrame(newBufReader(p.peerIn))
	require.NoError(t, err)
	return body
}

func TestChannelCallRoundTrip(t *testing.T) {
	ch, peer := newPeeredChannel(t)
	ch.Start()
	defer ch.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		body := peer.readFrame(t)
		var env envelope
		require.NoError(t, unmarshalStrict(body, &env))
		require.Equal(t, "initialize", env.Method)
		writeRaw(t, peer.peerOut, Response{JSONRPC: "2.0", ID: *env.ID, Result: []byte(`{"capabilities":{"hoverProvider":true}}`)})
	}()

	var result struct {
		Capabilities map[string]any `json:"capabilities"`
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := ch.Call(ctx, "initialize", map[string]any{"processId": 1}, &result)
	require.NoError(t, err)
	require.Equal(t, true, result.Capabilities["hoverProvider"])
	wg.Wait()
}

func TestChannelCallError(t *testing.T) {
	ch, peer := newPeeredChannel(t)
	ch.Start()
	defer ch.Close()

	go func() {
		body := peer.readFrame(t)
		var env envelope
		_ = unmarshalStrict(body, &env)
		writeRaw(t, peer.peerOut, Response{JSONRPC: "2.0", ID: *env.ID, Error: &Error{Code: -32601, Message: "method not found"}})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := ch.Call(ctx, "unknown/method", nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "method not found")
}

func TestChannelServerInitiatedRequest(t *testing.T) {
	ch, peer := newPeeredChannel(t)
	ch.OnRequest("workspace/configuration", func(json.RawMessage) (any, error) {
		return []any{map[string]any{"key": "value"}}, nil
	})
	ch.Start()
	defer ch.Close()

	writeRaw(t, peer.peerOut, Request{JSONRPC: "2.0", ID: 7, Method: "workspace/configuration"})
	body := peer.readFrame(t)
	var resp Response
	require.NoError(t, unmarshalStrict(body, &resp))
	require.Equal(t, int64(7), resp.ID)
	require.JSONEq(t, `[{"key":"value"}]`, string(resp.Result))
}

func TestChannelNotificationHandler(t *testing.T) {
	ch, peer := newPeeredChannel(t)
	received := make(chan string, 1)
	ch.OnNotification("window/logMessage", func(params json.RawMessage) {
		received <- string(params)
	})
	ch.Start()
	defer ch.Close()

	writeRaw(t, peer.peerOut, Request{JSONRPC: "2.0", Method: "window/logMessage", Params: map[string]any{"message": "hi"}})
	select {
	case got := <-received:
		require.JSONEq(t, `{"message":"hi"}`, got)
	case <-time.After(2 * time.Second):
		t.Fatal("notification handler was not invoked")
	}
}

func TestChannelOnClose(t *testing.T) {
	ch, peer := newPeeredChannel(t)
	closed := make(chan error, 1)
	ch.OnClose(func(err error) { closed <- err })
	ch.Start()

	peer.peerOut.Close()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose was not invoked after peer closed")
	}
}
