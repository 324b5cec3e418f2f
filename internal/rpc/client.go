// Package rpc talks to the remote command host over a websocket.
//
// Every call is a JSON request carrying a unique id; the host answers with a
// response carrying the same id, in any order. One reader goroutine routes
// responses to the waiting callers.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"prview/internal/review"
)

// ErrClosed is returned for calls made on, or pending when, the connection closes.
var ErrClosed = errors.New("rpc: connection closed")

// RemoteError is a failure reported by the host for one command.
type RemoteError struct {
	Command string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// Request is the wire form of a call.
type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Args    any    `json:"args,omitempty"`
}

// Response is the wire form of an answer.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client is a connection to the command host. Safe for concurrent use.
type Client struct {
	conn   *websocket.Conn
	ids    review.IDGenerator
	logger review.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool
	err     error
	done    chan struct{}
}

// Dial connects to endpoint, a ws:// or wss:// URL.
func Dial(ctx context.Context, endpoint string, ids review.IDGenerator, logger review.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", endpoint, err)
	}
	logger.Debug("connected to command host", "endpoint", endpoint)
	return newClient(conn, ids, logger), nil
}

func newClient(conn *websocket.Conn, ids review.IDGenerator, logger review.Logger) *Client {
	c := &Client{
		conn:    conn,
		ids:     ids,
		logger:  logger,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.shutdown(err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if !ok {
			c.logger.Warn("dropping response to unknown request", "id", resp.ID)
			continue
		}
		ch <- resp
	}
}

func (c *Client) shutdown(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if websocket.IsCloseError(cause, websocket.CloseNormalClosure) || errors.Is(cause, ErrClosed) {
		c.err = ErrClosed
	} else {
		c.logger.Error("command host connection lost", "error", cause)
		c.err = fmt.Errorf("%w: %v", ErrClosed, cause)
	}
	c.pending = make(map[string]chan Response)
	close(c.done)
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Invoke sends command with args and decodes the answer into result, which
// may be nil when the command returns nothing.
func (c *Client) Invoke(ctx context.Context, command string, args any, result any) error {
	id := c.ids.New()
	ch := make(chan Response, 1)

	c.mu.Lock()
	if c.closed {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(ctx, Request{ID: id, Command: command, Args: args}); err != nil {
		c.forget(id)
		return fmt.Errorf("sending %s: %w", command, err)
	}

	var resp Response
	select {
	case resp = <-ch:
	case <-c.done:
		c.mu.Lock()
		err := c.err
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", command, err)
	case <-ctx.Done():
		c.forget(id)
		return fmt.Errorf("%s: %w", command, ctx.Err())
	}

	if resp.Error != "" {
		return &RemoteError{Command: command, Message: resp.Error}
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", command, err)
	}
	return nil
}

func (c *Client) write(ctx context.Context, req Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(req)
}

// Close ends the connection. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		c.logger.Debug("sending close frame failed", "error", err)
	}

	c.shutdown(ErrClosed)
	return c.conn.Close()
}
