// Package connection maintains the table of live connections and
// routes bytes between sockets, framers and the event bus. All
// mutation of the table happens on the manager's worker; other
// components request changes through enqueued tasks.
package connection

import (
	"radarlink/pkg/active"
	"radarlink/pkg/events"
	"radarlink/pkg/transport"
)

// ID names a connection for handlers, logs and events. IDs are unique
// within the process and monotonically increasing.
type ID = uint32

// Frame is one framed message recovered from the stream: the
// protocol-level type tag plus the full message bytes including its
// header. The slice is owned by whichever queue it currently sits in.
type Frame struct {
	Type uint8
	Data []byte
}

// Framer is the per-connection, per-direction framing state machine.
// Push appends received bytes; Next pops the next complete message.
type Framer interface {
	Push(b []byte)
	Next() (Frame, bool)
}

// FramerFactory builds a fresh framer for each new connection.
type FramerFactory func() Framer

// Inbound couples a decoded frame with the connection it arrived on.
type Inbound struct {
	Conn  ID
	Frame Frame
}

// Bus carries the lifecycle and message events published by the
// connection manager. For any one connection, subscribers observe a
// prefix of (connected, message*, disconnected).
type Bus struct {
	Connected    *events.Topic[ID]
	Disconnected *events.Topic[ID]
	Message      *events.Topic[Inbound]
	SendFailed   *events.Topic[ID]
}

func NewBus() *Bus {
	return &Bus{
		Connected:    events.NewTopic[ID](),
		Disconnected: events.NewTopic[ID](),
		Message:      events.NewTopic[Inbound](),
		SendFailed:   events.NewTopic[ID](),
	}
}

type connState int

const (
	stateConnected connState = iota
	stateClosing
	stateClosed
)

// conn owns its socket, its framer and its send worker. The receive
// loop runs as a plain goroutine blocked on the socket; closing the
// socket unblocks it.
type conn struct {
	id       ID
	peer     transport.Endpoint
	sock     *transport.TCPConn
	framer   Framer
	sender   *active.Object
	state    connState
	recvDone chan struct{}
}

func newConn(id ID, sock *transport.TCPConn, framer Framer) *conn {
	c := &conn{
		id:       id,
		peer:     sock.RemoteEndpoint(),
		sock:     sock,
		framer:   framer,
		recvDone: make(chan struct{}),
	}
	c.sender = active.New("connection-send")
	return c
}
