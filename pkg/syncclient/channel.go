// Package syncclient is the client half of the VideoParty sync protocol:
// a reconnecting message channel per (room, client) pair and a playback
// controller that keeps a local media player converged with the room.
package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/videoparty/videoparty/pkg/syncwire"
)

// ConnState is the channel's connection state machine.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateOpen
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "disconnected"
	}
}

const defaultReconnectDelay = 3 * time.Second

// ChannelConfig configures a Channel. URL is the ws:// or wss:// endpoint
// (e.g. "ws://host:8080/ws"); query parameters are added per connection.
type ChannelConfig struct {
	URL            string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
	Logger         *zap.Logger
}

// Channel is one logical bidirectional connection for a (roomId, clientId)
// pair. On unexpected close it schedules exactly one reconnect attempt
// after a fixed delay, repeating until Disconnect. Events are fire-and-
// forget: Send silently drops while the channel is not open, because a
// stale sync event delivered late is worse than one never delivered.
type Channel struct {
	cfg ChannelConfig

	// writeMu serializes socket writes; gorilla connections allow only one
	// concurrent writer and Send may be called from several goroutines.
	writeMu sync.Mutex

	mu       sync.Mutex
	state    ConnState
	conn     *websocket.Conn
	handler  func(syncwire.Event)
	retry    *time.Timer
	closed   bool
	roomID   string
	clientID string
	token    string
}

func NewChannel(cfg ChannelConfig) *Channel {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Channel{cfg: cfg}
}

// Connect dials the sync endpoint for the given room and client. It is
// callable again after a failure or after Disconnect.
func (c *Channel) Connect(ctx context.Context, roomID, clientID, token string) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("connect: channel is %s", c.state)
	}
	c.state = StateConnecting
	c.closed = false
	c.roomID, c.clientID, c.token = roomID, clientID, token
	c.mu.Unlock()

	err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
	}
	return err
}

func (c *Channel) dial(ctx context.Context) error {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("roomId", c.roomID)
	q.Set("clientId", c.clientID)
	if c.token != "" {
		q.Set("token", c.token)
	}
	u.RawQuery = q.Encode()

	conn, _, err := c.cfg.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("dial: channel disconnected")
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	c.cfg.Logger.Info("sync channel open",
		zap.String("room", c.roomID), zap.String("client", c.clientID))
	go c.readLoop(conn)
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.onConnLost(conn, err)
			return
		}
		ev, ok := syncwire.Decode(data)
		if !ok {
			continue
		}
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(ev)
		}
	}
}

// onConnLost transitions to Disconnected and, unless Disconnect was called,
// schedules the single delayed reconnect attempt.
func (c *Channel) onConnLost(conn *websocket.Conn, err error) {
	_ = conn.Close()

	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	shouldRetry := !c.closed
	if shouldRetry {
		c.state = StateConnecting
		c.retry = time.AfterFunc(c.cfg.ReconnectDelay, c.reconnect)
	}
	c.mu.Unlock()

	if shouldRetry {
		c.cfg.Logger.Warn("sync channel lost, reconnecting",
			zap.String("room", c.roomID),
			zap.Duration("delay", c.cfg.ReconnectDelay),
			zap.Error(err))
	}
}

// reconnect re-handshakes with the same roomId/clientId; the server treats
// it as a fresh session. Failure schedules the next attempt.
func (c *Channel) reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.dial(context.Background()); err != nil {
		c.mu.Lock()
		if !c.closed {
			c.retry = time.AfterFunc(c.cfg.ReconnectDelay, c.reconnect)
		} else {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
	}
}

// Send marshals and transmits an event. Events are dropped silently when
// the channel is not open; there is no buffering.
func (c *Channel) Send(ev syncwire.Event) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.cfg.Logger.Debug("send failed", zap.Error(err))
	}
}

// OnMessage registers the handler invoked for every inbound well-formed
// event. Re-subscribing replaces the previous handler; there is no handler
// list to grow across reconnects or room switches.
func (c *Channel) OnMessage(handler func(syncwire.Event)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// State reports the current connection state, for "disconnected" UI
// indicators.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Disconnect closes the transport and cancels any pending reconnect.
// Idempotent.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.state = StateDisconnected
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}
