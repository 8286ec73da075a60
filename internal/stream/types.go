package stream

import "errors"

// Errors
var (
	ErrClosed = errors.New("client closed")
)

// Topic identifies a push-feed subscription channel.
type Topic string

const (
	TopicContext   Topic = "frontendContext"
	TopicTicker    Topic = "ticker"
	TopicBookDelta Topic = "l2Delta"
	TopicBook      Topic = "l2book"
)

// State is the connection lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosing    State = "closing"
)

// Subscription is one entry of a subscribe/unsubscribe request.
type Subscription struct {
	Type   Topic  `json:"type"`
	Symbol string `json:"symbol,omitempty"`
}

// subscribeRequest is the outbound subscription envelope.
type subscribeRequest struct {
	Method       string         `json:"method"`
	Subscription []Subscription `json:"subscription"`
}

// heartbeatMsg is the optional keepalive frame.
type heartbeatMsg struct {
	Op string `json:"op"`
	TS int64  `json:"ts"`
}

// Kind classifies an inbound message.
type Kind string

const (
	KindAck     Kind = "ack"
	KindContext Kind = "context"
	KindTicker  Kind = "ticker"
	KindBook    Kind = "book"
	KindError   Kind = "error"
	KindRaw     Kind = "raw"
)

// Message is a classified inbound frame. Data holds the extracted payload
// object for context/ticker/book kinds; Raw always holds the original
// bytes.
type Message struct {
	Kind   Kind
	Symbol string         // ticker/book messages
	Topics []string       // ack messages
	Code   string         // error messages
	Text   string         // error messages
	Data   map[string]any // payload object, nil for raw non-objects
	Raw    []byte
}

// Handlers are the client callbacks. All are optional and are invoked
// from the client's own goroutines.
type Handlers struct {
	OnMessage func(Message)
	OnOpen    func()
	OnClose   func()
	OnError   func(error)
}
