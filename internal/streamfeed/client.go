package streamfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrClosed = errors.New("event feed closed")
	ErrStale  = errors.New("event feed stale")
)

// Default configuration values.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultSocketTimeout  = 5 * time.Second
	DefaultHeartbeat      = 30 * time.Second
	DefaultStaleAfter     = 90 * time.Second
	DefaultBufferSize     = 1000
)

// Config holds event feed connection settings.
type Config struct {
	// URL is the ws:// or wss:// feed URL.
	URL string

	// ConnectTimeout bounds the WebSocket handshake.
	ConnectTimeout time.Duration

	// SocketTimeout bounds individual control writes.
	SocketTimeout time.Duration

	// Heartbeat is how often the client pings the server.
	Heartbeat time.Duration

	// StaleAfter declares the connection dead when nothing has been
	// received for this long.
	StaleAfter time.Duration

	// BufferSize is the Messages channel capacity.
	BufferSize int
}

// DefaultConfig returns the default feed configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		SocketTimeout:  DefaultSocketTimeout,
		Heartbeat:      DefaultHeartbeat,
		StaleAfter:     DefaultStaleAfter,
		BufferSize:     DefaultBufferSize,
	}
}

// Message is a single raw frame with its local receive time.
type Message struct {
	Data       []byte
	ReceivedAt time.Time
}

// Client is a connected event feed.
type Client struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	messages chan Message
	errors   chan error
	done     chan struct{}

	// State
	mu       sync.RWMutex
	lastSeen time.Time
	closed   bool
}

// Dial connects to the feed and starts the read and heartbeat loops.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = DefaultSocketTimeout
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.ConnectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial event feed: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		logger:   logger,
		conn:     conn,
		messages: make(chan Message, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
		lastSeen: time.Now(),
	}

	// Server pings get a pong back and count as liveness.
	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(cfg.SocketTimeout),
		)
	})

	// Pongs answer our heartbeat pings.
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	go c.heartbeatLoop()

	logger.Debug("event feed connected", "url", cfg.URL)

	return c, nil
}

// Messages returns the channel of received frames. It is closed when the
// read loop exits.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Errors returns the channel of connection errors.
func (c *Client) Errors() <-chan error {
	return c.errors
}

// Ping sends a control ping. A write failure means the connection is
// unusable.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	deadline := time.Now().Add(c.cfg.SocketTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
		return fmt.Errorf("ping event feed: %w", err)
	}
	return nil
}

// Close sends a close frame and tears down the connection. Repeat calls
// are no-ops.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)

	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)

	return c.conn.Close()
}

// touch records that the server showed signs of life.
func (c *Client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// readLoop reads frames and delivers them to the messages channel.
func (c *Client) readLoop() {
	defer close(c.messages)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Errors after Close are just the teardown.
			select {
			case <-c.done:
			default:
				select {
				case c.errors <- err:
				default:
				}
			}
			return
		}

		c.touch()

		select {
		case c.messages <- Message{Data: data, ReceivedAt: receivedAt}:
		case <-c.done:
			return
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}

// heartbeatLoop pings the server and reports staleness.
func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.SocketTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			lastSeen := c.lastSeen
			c.mu.RUnlock()

			if time.Since(lastSeen) > c.cfg.StaleAfter {
				c.logger.Warn("no traffic from event feed, connection stale",
					"last_seen", lastSeen,
					"stale_after", c.cfg.StaleAfter)
				select {
				case c.errors <- ErrStale:
				default:
				}
				return
			}
		}
	}
}
