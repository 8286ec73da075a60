package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultReconnectDelay is the fixed wait between reconnect attempts.
const DefaultReconnectDelay = 1500 * time.Millisecond

// Client maintains one push-feed connection. Reconnects after an
// unrequested close are unbounded with a fixed delay; Close stops them.
type Client struct {
	url       string
	transport Transport
	handlers  Handlers
	logger    *slog.Logger
	header    http.Header

	reconnectDelay    time.Duration
	heartbeatInterval time.Duration // 0 disables the heartbeat

	mu      sync.Mutex
	state   State
	conn    Conn
	queue   [][]byte
	closed  bool
	started bool
	done    chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithTransport substitutes the dialer; tests use a fake.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithReconnectDelay overrides the fixed reconnect delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// WithHeartbeat enables a fixed-interval keepalive ping. There is no pong
// enforcement: a dead connection surfaces through the transport's own
// close, not here.
func WithHeartbeat(interval time.Duration) Option {
	return func(c *Client) { c.heartbeatInterval = interval }
}

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// NewClient creates a client for the given WebSocket URL. Connect starts
// it.
func NewClient(url string, handlers Handlers, opts ...Option) *Client {
	c := &Client{
		url:            url,
		transport:      NewGorillaTransport(),
		handlers:       handlers,
		logger:         slog.Default(),
		reconnectDelay: DefaultReconnectDelay,
		state:          StateIdle,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the connection loop. It returns immediately; the loop
// runs until Close or ctx cancellation.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.state = StateConnecting
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// Close stops the client: no further reconnects, queue dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateClosing
	c.queue = nil
	conn := c.conn
	c.conn = nil
	close(c.done)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	return nil
}

// Send marshals v and writes it, or queues it in order while the
// connection is not open. Queued messages flush on the next open.
func (c *Client) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state != StateOpen || c.conn == nil {
		c.queue = append(c.queue, payload)
		return nil
	}
	if err := c.conn.WriteMessage(payload); err != nil {
		// The read loop will notice the broken connection; keep the
		// message for the next open.
		c.logger.Warn("write failed, queueing message", "error", err)
		c.queue = append(c.queue, payload)
	}
	return nil
}

// SubscribeContext subscribes to the batched multi-symbol context feed.
func (c *Client) SubscribeContext() error {
	return c.subscribe("subscribe", Subscription{Type: TopicContext})
}

func (c *Client) UnsubscribeContext() error {
	return c.subscribe("unsubscribe", Subscription{Type: TopicContext})
}

// SubscribeTicker subscribes to single-symbol ticker pushes.
func (c *Client) SubscribeTicker(symbol string) error {
	return c.subscribe("subscribe", Subscription{Type: TopicTicker, Symbol: symbol})
}

func (c *Client) UnsubscribeTicker(symbol string) error {
	return c.subscribe("unsubscribe", Subscription{Type: TopicTicker, Symbol: symbol})
}

// SubscribeBookDelta subscribes to order-book delta pushes for a symbol.
func (c *Client) SubscribeBookDelta(symbol string) error {
	return c.subscribe("subscribe", Subscription{Type: TopicBookDelta, Symbol: symbol})
}

func (c *Client) UnsubscribeBookDelta(symbol string) error {
	return c.subscribe("unsubscribe", Subscription{Type: TopicBookDelta, Symbol: symbol})
}

// SubscribeBook subscribes to full order-book snapshots for a symbol.
func (c *Client) SubscribeBook(symbol string) error {
	return c.subscribe("subscribe", Subscription{Type: TopicBook, Symbol: symbol})
}

func (c *Client) UnsubscribeBook(symbol string) error {
	return c.subscribe("unsubscribe", Subscription{Type: TopicBook, Symbol: symbol})
}

// SubscribeMany issues one request covering several subscriptions.
func (c *Client) SubscribeMany(subs []Subscription) error {
	return c.Send(subscribeRequest{Method: "subscribe", Subscription: subs})
}

func (c *Client) subscribe(method string, sub Subscription) error {
	return c.Send(subscribeRequest{Method: method, Subscription: []Subscription{sub}})
}

// run is the connect/read/reconnect loop.
func (c *Client) run(ctx context.Context) {
	for {
		if c.isDone(ctx) {
			return
		}

		c.setState(StateConnecting)
		conn, err := c.transport.Dial(ctx, c.url, c.header)
		if err != nil {
			c.logger.Warn("dial failed", "url", c.url, "error", err)
			c.callOnError(err)
			if !c.waitReconnect(ctx) {
				return
			}
			continue
		}

		if !c.open(conn) {
			conn.Close()
			if !c.waitReconnect(ctx) {
				return
			}
			continue
		}

		if c.handlers.OnOpen != nil {
			c.handlers.OnOpen()
		}

		stopHeartbeat := c.startHeartbeat()
		c.readLoop(ctx, conn)
		stopHeartbeat()

		conn.Close()
		c.dropConn(conn)

		if c.handlers.OnClose != nil {
			c.handlers.OnClose()
		}

		if c.isDone(ctx) {
			return
		}
		c.logger.Info("connection lost, reconnecting", "delay", c.reconnectDelay)
		if !c.waitReconnect(ctx) {
			return
		}
	}
}

// open installs the connection and flushes the queue in order. The lock
// is held through the flush so concurrent Sends cannot jump the queue.
// Returns false if a flush write failed or the client closed meanwhile.
func (c *Client) open(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	for len(c.queue) > 0 {
		if err := conn.WriteMessage(c.queue[0]); err != nil {
			c.logger.Warn("queue flush failed", "error", err)
			return false
		}
		c.queue = c.queue[1:]
	}

	c.conn = conn
	c.state = StateOpen
	c.logger.Debug("stream open", "url", c.url)
	return true
}

// dropConn clears the connection if it is still the active one.
func (c *Client) dropConn(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	if !c.closed {
		c.state = StateConnecting
	}
}

func (c *Client) readLoop(ctx context.Context, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if !c.isDone(ctx) {
				c.callOnError(err)
			}
			return
		}
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(Classify(data))
		}
	}
}

// startHeartbeat launches the keepalive sender when enabled. The returned
// func stops it.
func (c *Client) startHeartbeat() func() {
	if c.heartbeatInterval <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(c.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-c.done:
				return
			case <-ticker.C:
				c.Send(heartbeatMsg{Op: "ping", TS: time.Now().UnixMilli()})
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

func (c *Client) waitReconnect(ctx context.Context) bool {
	select {
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	case <-time.After(c.reconnectDelay):
		return true
	}
}

func (c *Client) isDone(ctx context.Context) bool {
	select {
	case <-c.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if !c.closed {
		c.state = s
	}
	c.mu.Unlock()
}

func (c *Client) callOnError(err error) {
	if c.handlers.OnError != nil {
		c.handlers.OnError(err)
	}
}
