package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client maintains a single WebSocket connection to the backend's push
// endpoint and fans incoming messages out to topic handlers.
//
// The lifecycle is CLOSED → CONNECTING → OPEN. A dropped or failed
// connection schedules exactly one reconnect through the retry policy;
// at most one retry timer is ever pending. Disconnect cancels any
// pending retry and suppresses future ones until Connect is called
// again.
type Client struct {
	cfg    Config
	policy RetryPolicy
	logger *slog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	gen        int64 // bumped per dial and per Disconnect; stale read loops bail
	attempts   int   // consecutive failed dials, reset on open
	retryTimer *time.Timer
	stopped    bool

	subsMu  sync.RWMutex
	subs    map[string][]*Subscription
	nextSub int64

	writeMu sync.Mutex
}

// Subscription is the handle returned by Subscribe. Cancel removes the
// handler; cancelling twice is a no-op.
type Subscription struct {
	c       *Client
	topic   string
	id      int64
	handler Handler
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy replaces the default fixed-delay reconnect policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a push channel client. The connection is not dialed
// until Connect.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	c := &Client{
		cfg:    cfg,
		policy: FixedDelay{Delay: DefaultReconnectDelay},
		logger: slog.Default(),
		subs:   make(map[string][]*Subscription),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a handler for one topic. Handlers for the same
// topic run in registration order, on the read-loop goroutine. The
// returned handle cancels exactly this registration.
func (c *Client) Subscribe(topic string, h Handler) *Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	c.nextSub++
	sub := &Subscription{c: c, topic: topic, id: c.nextSub, handler: h}
	c.subs[topic] = append(c.subs[topic], sub)
	return sub
}

// Cancel removes the subscription from its topic.
func (s *Subscription) Cancel() {
	s.c.subsMu.Lock()
	defer s.c.subsMu.Unlock()

	list := s.c.subs[s.topic]
	for i, sub := range list {
		if sub.id == s.id {
			s.c.subs[s.topic] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Connect dials the push endpoint. Calling it while connecting or open
// is a no-op. A failed dial schedules a reconnect through the retry
// policy and returns the dial error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.stopped = false
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	return c.dial(ctx, gen)
}

// reconnect is the retry-timer entry point. A timer armed before a
// Disconnect (or before a newer explicit Connect) carries a stale
// generation and must not resurrect the connection, so the check
// happens in the same critical section that claims the dial.
func (c *Client) reconnect(armedGen int64) {
	c.mu.Lock()
	if c.stopped || c.gen != armedGen || c.state != StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.dial(context.Background(), gen)
}

// dial performs one connection attempt under the given generation.
func (c *Client) dial(ctx context.Context, gen int64) error {
	header := http.Header{}
	if c.cfg.AuthToken != "" {
		header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		c.mu.Lock()
		if c.gen != gen {
			// Disconnect or a newer Connect superseded this dial.
			c.mu.Unlock()
			return err
		}
		c.state = StateClosed
		c.attempts++
		c.mu.Unlock()

		c.logger.Warn("push channel dial failed", "url", c.cfg.URL, "error", err)
		c.scheduleRetry()
		return err
	}

	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(c.cfg.WriteTimeout),
		)
	})
	conn.SetPongHandler(func(string) error { return nil })

	c.mu.Lock()
	if c.gen != gen || c.stopped {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info("push channel connected", "url", c.cfg.URL)

	go c.readLoop(conn, gen)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(conn, gen)
	}
	return nil
}

// Disconnect closes the connection, cancels any pending reconnect, and
// suppresses future retries. Safe to call more than once.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.gen++
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteTimeout),
		)
		conn.Close()
		c.logger.Info("push channel disconnected")
	}
}

// Send writes raw bytes to the connection.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Ping sends an application-level ping envelope. The server's pong
// comes back as an ordinary envelope on the "pong" topic.
func (c *Client) Ping() error {
	return c.Send([]byte(`{"type":"ping"}`))
}

// readLoop reads messages until the connection drops, then hands off to
// the reconnect schedule. A loop whose generation has been superseded
// exits without touching client state.
func (c *Client) readLoop(conn *websocket.Conn, gen int64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.gen != gen || c.stopped {
				c.mu.Unlock()
				return
			}
			c.conn = nil
			c.state = StateClosed
			c.attempts++
			c.mu.Unlock()

			conn.Close()
			c.logger.Warn("push channel dropped", "error", err)
			c.scheduleRetry()
			return
		}

		c.dispatch(data)
	}
}

// dispatch decodes one envelope and runs the topic's handlers in
// registration order. Malformed messages and unknown topics are
// dropped.
func (c *Client) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		c.logger.Debug("dropping malformed push message", "error", err)
		return
	}

	c.subsMu.RLock()
	list := c.subs[env.Type]
	handlers := make([]*Subscription, len(list))
	copy(handlers, list)
	c.subsMu.RUnlock()

	if len(handlers) == 0 {
		c.logger.Debug("no handlers for topic", "topic", env.Type)
		return
	}

	for _, sub := range handlers {
		sub.handler(env.Data)
	}
}

// scheduleRetry arms the reconnect timer unless one is already pending
// or the client was disconnected.
func (c *Client) scheduleRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.retryTimer != nil {
		return
	}

	delay := c.policy.NextDelay(c.attempts)
	armedGen := c.gen
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.retryTimer = nil
		c.mu.Unlock()
		c.reconnect(armedGen)
	})

	c.logger.Info("push channel reconnect scheduled", "delay", delay, "attempt", c.attempts)
}

// pingLoop sends keepalive pings until the connection's generation is
// superseded.
func (c *Client) pingLoop(conn *websocket.Conn, gen int64) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		stale := c.gen != gen
		c.mu.Unlock()
		if stale {
			return
		}

		deadline := time.Now().Add(c.cfg.WriteTimeout)
		if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
			c.logger.Debug("failed to send ping", "error", err)
			return
		}
	}
}
