// Package gateway maintains the WebSocket connection to the messaging
// transport: it pumps inbound signaling frames into the router, serializes
// outbound sends, and reconnects with backoff. The engine never talks to the
// socket directly; it sees only signaling.Sender and signaling.Connectivity.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"voicecall-engine/internal/signaling"

	"github.com/gorilla/websocket"
)

// Config tunes the transport client.
type Config struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// Token is sent as a bearer credential on dial.
	Token string

	PingInterval time.Duration
	WriteTimeout time.Duration

	// ReconnectMin/Max bound the exponential backoff between dial attempts.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.PingInterval <= 0 {
		out.PingInterval = 30 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 10 * time.Second
	}
	if out.ReconnectMin <= 0 {
		out.ReconnectMin = time.Second
	}
	if out.ReconnectMax <= 0 {
		out.ReconnectMax = 30 * time.Second
	}
	return out
}

// Client implements signaling.Sender and signaling.Connectivity over one
// WebSocket connection.
type Client struct {
	cfg    Config
	router *signaling.Router
	log    *slog.Logger

	connected atomic.Bool

	// connMu guards the conn pointer; writeMu serializes data writes, which
	// gorilla/websocket does not allow concurrently.
	connMu  sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func NewClient(cfg Config, router *signaling.Router, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg.withDefaults(), router: router, log: log}
}

// IsConnected implements signaling.Connectivity.
func (c *Client) IsConnected() bool { return c.connected.Load() }

// Send implements signaling.Sender. Fire-and-forget: a send without a
// connection is dropped and logged, matching the transport's own delivery
// guarantees (the remote replays signaling through the server queue).
func (c *Client) Send(msg signaling.Message, recipientID string) {
	msg.RecipientID = recipientID

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		c.log.Warn("signaling send dropped, gateway disconnected",
			"category", msg.Category, "message_id", msg.MessageID)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		c.log.Error("signaling send failed", "err", err,
			"category", msg.Category, "message_id", msg.MessageID)
	}
}

// Run dials and pumps until ctx is canceled, reconnecting with exponential
// backoff on any connection loss.
func (c *Client) Run(ctx context.Context) {
	backoff := c.cfg.ReconnectMin
	for ctx.Err() == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("gateway dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = minDuration(backoff*2, c.cfg.ReconnectMax)
			continue
		}
		backoff = c.cfg.ReconnectMin

		c.setConn(conn)
		c.log.Info("gateway connected")
		err = c.pump(ctx, conn)
		c.clearConn()
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("gateway disconnected", "err", err, "retry_in", backoff)
		if !sleep(ctx, backoff) {
			return
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// pump reads frames until the connection breaks. Pings keep the read deadline
// moving; a missed pong window surfaces as a read error and triggers reconnect.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn) error {
	readWait := 2 * c.cfg.PingInterval
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(c.cfg.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			case <-ctx.Done():
				// Unblocks the reader below.
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg signaling.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("unparsable gateway frame dropped", "err", err)
			continue
		}
		c.router.Dispatch(ctx, msg)
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.connected.Store(true)
}

func (c *Client) clearConn() {
	c.connected.Store(false)
	c.connMu.Lock()
	c.conn = nil
	c.connMu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
