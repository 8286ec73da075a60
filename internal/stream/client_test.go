package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeConn is a scriptable connection: inbound frames come from a
// channel, writes are recorded.
type fakeConn struct {
	in chan []byte

	mu     sync.Mutex
	writes [][]byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return data, nil
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	c.mu.Lock()
	c.writes = append(c.writes, data)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

// dropServer simulates an unrequested close: reads and writes both fail
// from here on.
func (c *fakeConn) dropServer() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// fakeTransport hands out pre-built connections in order. Dial blocks
// until released when a gate is set.
type fakeTransport struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials atomic.Int64
	gate  chan struct{}
}

func newFakeTransport(conns ...*fakeConn) *fakeTransport {
	return &fakeTransport{conns: conns}
}

func (t *fakeTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	if t.gate != nil {
		select {
		case <-t.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	n := t.dials.Add(1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(n) > len(t.conns) {
		return nil, errors.New("no more connections scripted")
	}
	return t.conns[n-1], nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSend_QueuesWhileDisconnectedAndFlushesInOrder(t *testing.T) {
	conn := newFakeConn()
	transport := newFakeTransport(conn)
	transport.gate = make(chan struct{})

	c := NewClient("ws://test", Handlers{}, WithTransport(transport))
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Nothing is open yet, so these queue.
	c.SubscribeContext()
	c.SubscribeTicker("BTC-PERP")
	c.SubscribeBookDelta("BTC-PERP")

	close(transport.gate)
	waitFor(t, time.Second, func() bool { return len(conn.written()) == 3 })

	got := conn.written()
	if !strings.Contains(got[0], `"frontendContext"`) {
		t.Errorf("first flush = %s, want context subscription", got[0])
	}
	if !strings.Contains(got[1], `"ticker"`) || !strings.Contains(got[1], `"BTC-PERP"`) {
		t.Errorf("second flush = %s, want ticker subscription", got[1])
	}
	if !strings.Contains(got[2], `"l2Delta"`) {
		t.Errorf("third flush = %s, want book delta subscription", got[2])
	}
}

func TestSubscribe_WireShape(t *testing.T) {
	conn := newFakeConn()
	c := NewClient("ws://test", Handlers{}, WithTransport(newFakeTransport(conn)))
	defer c.Close()
	c.Connect(context.Background())
	waitFor(t, time.Second, func() bool { return c.State() == StateOpen })

	c.SubscribeTicker("ETH-PERP")
	waitFor(t, time.Second, func() bool { return len(conn.written()) == 1 })

	want := `{"method":"subscribe","subscription":[{"type":"ticker","symbol":"ETH-PERP"}]}`
	if got := conn.written()[0]; got != want {
		t.Errorf("wire message = %s, want %s", got, want)
	}

	c.UnsubscribeContext()
	waitFor(t, time.Second, func() bool { return len(conn.written()) == 2 })
	want = `{"method":"unsubscribe","subscription":[{"type":"frontendContext"}]}`
	if got := conn.written()[1]; got != want {
		t.Errorf("wire message = %s, want %s", got, want)
	}
}

func TestReconnect_AfterUnrequestedClose(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	transport := newFakeTransport(first, second)

	var opens atomic.Int64
	c := NewClient("ws://test", Handlers{
		OnOpen: func() { opens.Add(1) },
	}, WithTransport(transport), WithReconnectDelay(10*time.Millisecond))
	defer c.Close()

	c.Connect(context.Background())
	waitFor(t, time.Second, func() bool { return opens.Load() == 1 })

	// Subscriptions issued while the connection drops are queued and land
	// on the replacement connection.
	first.dropServer()
	c.SubscribeTicker("BTC-PERP")

	waitFor(t, time.Second, func() bool { return opens.Load() == 2 })
	waitFor(t, time.Second, func() bool { return len(second.written()) >= 1 })

	if got := transport.dials.Load(); got != 2 {
		t.Errorf("dials = %d, want 2", got)
	}
	if !strings.Contains(second.written()[0], `"BTC-PERP"`) {
		t.Errorf("replacement connection writes = %v, want the queued subscription", second.written())
	}
}

func TestClose_StopsReconnect(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	transport := newFakeTransport(first, second)

	c := NewClient("ws://test", Handlers{},
		WithTransport(transport), WithReconnectDelay(10*time.Millisecond))

	c.Connect(context.Background())
	waitFor(t, time.Second, func() bool { return c.State() == StateOpen })

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := transport.dials.Load(); got != 1 {
		t.Errorf("dials after Close = %d, want 1 (no reconnect)", got)
	}
	if c.State() != StateIdle {
		t.Errorf("State = %s, want idle", c.State())
	}
	if err := c.Send("x"); err != ErrClosed {
		t.Errorf("Send after Close err = %v, want ErrClosed", err)
	}
}

func TestHeartbeat_SendsPings(t *testing.T) {
	conn := newFakeConn()
	c := NewClient("ws://test", Handlers{},
		WithTransport(newFakeTransport(conn)),
		WithHeartbeat(10*time.Millisecond))
	defer c.Close()

	c.Connect(context.Background())
	waitFor(t, time.Second, func() bool {
		for _, w := range conn.written() {
			if strings.Contains(w, `"op":"ping"`) {
				return true
			}
		}
		return false
	})
}

func TestClient_DeliversClassifiedMessages(t *testing.T) {
	conn := newFakeConn()

	msgs := make(chan Message, 4)
	c := NewClient("ws://test", Handlers{
		OnMessage: func(m Message) { msgs <- m },
	}, WithTransport(newFakeTransport(conn)))
	defer c.Close()

	c.Connect(context.Background())
	waitFor(t, time.Second, func() bool { return c.State() == StateOpen })

	conn.in <- []byte(`{"type":"ticker","data":{"symbol":"BTC-PERP","last":"50000"}}`)
	conn.in <- []byte(`garbage`)

	m := <-msgs
	if m.Kind != KindTicker || m.Symbol != "BTC-PERP" {
		t.Errorf("first message = %s/%s, want ticker/BTC-PERP", m.Kind, m.Symbol)
	}
	m = <-msgs
	if m.Kind != KindRaw {
		t.Errorf("second message kind = %s, want raw", m.Kind)
	}
}

func TestGorillaTransport_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		// Echo one frame back inside a ticker envelope.
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if strings.Contains(string(data), `"subscribe"`) {
			ws.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"ticker","data":{"symbol":"BTC-PERP","last":"1"}}`))
		}
		// Hold the connection until the client goes away.
		ws.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	msgs := make(chan Message, 1)
	c := NewClient(url, Handlers{
		OnMessage: func(m Message) {
			if m.Kind == KindTicker {
				msgs <- m
			}
		},
	})
	defer c.Close()

	c.Connect(context.Background())
	c.SubscribeTicker("BTC-PERP")

	select {
	case m := <-msgs:
		if m.Symbol != "BTC-PERP" {
			t.Errorf("Symbol = %q, want BTC-PERP", m.Symbol)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no ticker message received")
	}
}
