package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a single established connection.
type Conn interface {
	// ReadMessage blocks until the next frame or a connection error.
	ReadMessage() ([]byte, error)

	// WriteMessage writes one text frame.
	WriteMessage(data []byte) error

	// Close closes the connection.
	Close() error
}

// Transport dials connections. The default is gorilla-backed; tests
// substitute a fake.
type Transport interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// gorillaTransport dials real WebSocket connections.
type gorillaTransport struct {
	dialer *websocket.Dialer
}

// NewGorillaTransport returns the production transport.
func NewGorillaTransport() Transport {
	return &gorillaTransport{
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (t *gorillaTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	ws, _, err := t.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return &gorillaConn{ws: ws}, nil
}

// gorillaConn adapts *websocket.Conn to Conn.
type gorillaConn struct {
	ws *websocket.Conn
}

func (c *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *gorillaConn) WriteMessage(data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *gorillaConn) Close() error {
	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.ws.Close()
}
