// Package rpc implements a length-prefixed JSON-RPC 2.0 channel over a pair
// of byte streams, the wire format the Language Server Protocol specifies
// for its stdio transport.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/axivo/mcp-lsp/internal/logging"
)

// RequestHandler answers a server-initiated request, returning the result
// to send back or an error to report as a JSON-RPC error object.
type RequestHandler func(params json.RawMessage) (any, error)

// NotificationHandler observes a server-initiated notification.
type NotificationHandler func(params json.RawMessage)

// Channel is a duplex JSON-RPC 2.0 connection: it writes requests and
// notifications to an io.Writer and reads responses, server-initiated
// requests, and notifications from an io.Reader, framed as
// "Content-Length: N\r\n\r\n<N bytes of UTF-8 JSON>".
type Channel struct {
	w      io.Writer
	wMu    sync.Mutex
	r      *bufio.Reader
	nextID int64

	pendingMu sync.Mutex
	pending   map[int64]chan *Response

	handlersMu    sync.RWMutex
	requestFuncs  map[string]RequestHandler
	notifyFuncs   map[string]NotificationHandler

	closeOnce sync.Once
	closed    chan struct{}
	onClose   func(error)
}

// NewChannel builds a Channel over w (writes) and r (reads). Call Start to
// begin the background read loop.
func NewChannel(w io.Writer, r io.Reader) *Channel {
	return &Channel{
		w:            w,
		r:            bufio.NewReader(r),
		pending:      make(map[int64]chan *Response),
		requestFuncs: make(map[string]RequestHandler),
		notifyFuncs:  make(map[string]NotificationHandler),
		closed:       make(chan struct{}),
	}
}

// OnRequest registers a handler for a server-initiated request method. Only
// one handler per method is kept; a later call replaces an earlier one.
func (c *Channel) OnRequest(method string, fn RequestHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.requestFuncs[method] = fn
}

// OnNotification registers a handler for a server-initiated notification.
func (c *Channel) OnNotification(method string, fn NotificationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.notifyFuncs[method] = fn
}

// OnClose registers a callback invoked exactly once when the read loop ends,
// which happens when reading from the peer fails (for example EOF after the
// peer exits). err is nil if Close was called before that, and the read
// error otherwise.
func (c *Channel) OnClose(fn func(error)) {
	c.handlersMu.Lock()
	c.onClose = fn
	c.handlersMu.Unlock()
}

// Start begins the background read loop. Must be called once.
func (c *Channel) Start() {
	go c.readLoop()
}

// Call sends a request and blocks until its response arrives, ctx is done,
// or the channel closes. If result is non-nil, the response's result is
// unmarshaled into it.
func (c *Channel) Call(ctx context.Context, method string, params any, result any) error {
	id := atomic.AddInt64(&c.nextID, 1)
	ch := make(chan *Response, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.write(req); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("rpc: write %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return fmt.Errorf("rpc: channel closed while awaiting %s", method)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			return json.Unmarshal(resp.Result, result)
		}
		return nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return ctx.Err()
	case <-c.closed:
		return fmt.Errorf("rpc: channel closed while awaiting %s", method)
	}
}

// Notify sends a notification; no response is expected.
func (c *Channel) Notify(method string, params any) error {
	req := Request{JSONRPC: "2.0", Method: method, Params: params}
	if err := c.write(req); err != nil {
		return fmt.Errorf("rpc: write %s: %w", method, err)
	}
	return nil
}

// Close stops the read loop from accepting further dispatch and releases any
// requests still awaiting a response. Closing the underlying writer, if
// needed, is the caller's responsibility (it is usually the child process's
// stdin).
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
	})
	return nil
}

func (c *Channel) write(msg Request) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))

	c.wMu.Lock()
	defer c.wMu.Unlock()
	if _, err := io.WriteString(c.w, header); err != nil {
		return err
	}
	_, err = c.w.Write(body)
	return err
}

func (c *Channel) readLoop() {
	var transportErr error
	for {
		body, err := readFrame(c.r)
		if err != nil {
			transportErr = err
			break
		}
		select {
		case <-c.closed:
			// Closed by the caller: frames are still read but not dispatched.
		default:
			c.dispatch(body)
		}
	}
	select {
	case <-c.closed:
		transportErr = nil
	default:
	}
	c.Close()
	c.handlersMu.RLock()
	onClose := c.onClose
	c.handlersMu.RUnlock()
	if onClose != nil {
		onClose(transportErr)
	}
}

// readFrame reads one "Content-Length: N\r\n\r\n<N bytes>" frame.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var contentLength int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("rpc: bad Content-Length header %q: %w", value, err)
			}
			contentLength = n
		}
	}
	if contentLength <= 0 {
		return nil, fmt.Errorf("rpc: missing or zero Content-Length header")
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Channel) dispatch(body []byte) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		logging.Warn().Err(err).Msg("rpc: malformed frame")
		return
	}

	switch {
	case env.ID != nil && env.Method == "":
		// Response to one of our own requests.
		c.pendingMu.Lock()
		ch, ok := c.pending[*env.ID]
		if ok {
			delete(c.pending, *env.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- &Response{JSONRPC: env.JSONRPC, ID: *env.ID, Result: env.Result, Error: env.Error}
			close(ch)
		}
	case env.ID != nil && env.Method != "":
		// Server-initiated request; answer via a registered handler if any.
		c.handlersMu.RLock()
		fn := c.requestFuncs[env.Method]
		c.handlersMu.RUnlock()
		if fn == nil {
			return
		}
		result, err := fn(env.Params)
		resp := Response{JSONRPC: "2.0", ID: *env.ID}
		if err != nil {
			resp.Error = &Error{Code: -32000, Message: err.Error()}
		} else {
			raw, merr := json.Marshal(result)
			if merr != nil {
				resp.Error = &Error{Code: -32603, Message: merr.Error()}
			} else {
				resp.Result = raw
			}
		}
		if err := c.writeResponse(resp); err != nil {
			logging.Warn().Err(err).Str("method", env.Method).Msg("rpc: failed to answer server-initiated request")
		}
	default:
		// Notification from the server.
		c.handlersMu.RLock()
		fn := c.notifyFuncs[env.Method]
		c.handlersMu.RUnlock()
		if fn != nil {
			fn(env.Params)
		}
	}
}

func (c *Channel) writeResponse(resp Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	c.wMu.Lock()
	defer c.wMu.Unlock()
	if _, err := io.WriteString(c.w, header); err != nil {
		return err
	}
	_, err = c.w.Write(body)
	return err
}
