package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Client is a controller-side connection to an engine.
type Client struct {
	conn net.Conn
	wire *Conn

	writeMu   sync.Mutex
	events    chan Event
	err       error
	done      chan struct{} // closed by Close
	closeOnce sync.Once
}

// Dial connects to the engine at addr and starts reading its events.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	c := &Client{
		conn:   conn,
		wire:   NewConn(conn),
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Send writes one command. Safe for concurrent use.
func (c *Client) Send(cmd Command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.wire.WriteCommand(cmd); err != nil {
		return fmt.Errorf("send %s: %w", TypeOf(cmd), err)
	}
	return nil
}

// Events yields events in arrival order. The channel is closed when the
// connection ends; Err then reports why.
func (c *Client) Events() <-chan Event { return c.events }

// Err returns the error that ended the event stream. Only meaningful after
// Events is closed.
func (c *Client) Err() error { return c.err }

// Close closes the connection and ends the event stream, even when
// nobody is reading Events.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		ev, err := c.wire.ReadEvent()
		if err != nil {
			if IsDecodeError(err) {
				slog.Debug("ignoring unknown event", "error", err)
				continue
			}
			c.err = err
			return
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}
