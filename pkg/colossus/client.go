package colossus

import (
	"context"
	"fmt"
	"sync"

	"radarlink/pkg/connection"
	"radarlink/pkg/dispatch"
	"radarlink/pkg/events"
	"radarlink/pkg/logger"
	"radarlink/pkg/transport"
)

// Handler processes one decoded message on the client's dispatcher
// worker. The handler may retain the message; long work must be
// re-enqueued onto the user's own active component.
type Handler func(*Client, *Message)

// Client is the user-facing Colossus TCP façade. It owns the
// connection manager, framer, message dispatcher and the dial loop.
type Client struct {
	endpoint  transport.Endpoint
	log       *logger.Log
	reconnect bool
	dialOpts  []transport.DialOption

	bus        *connection.Bus
	manager    *connection.Manager
	dispatcher *dispatch.Dispatcher[*Message]

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	dialDone chan struct{}
	current  connection.ID
	lost     chan connection.ID

	subMessage      events.Handle
	subDisconnected events.Handle
	subConnected    events.Handle

	onConnect    func(*Client, connection.ID)
	onDisconnect func(*Client, connection.ID)
}

type ClientOption func(*Client)

func WithLogger(log *logger.Log) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithReconnect controls whether the client redials after losing the
// radar. Defaults to true.
func WithReconnect(on bool) ClientOption {
	return func(c *Client) { c.reconnect = on }
}

func WithDialOptions(opts ...transport.DialOption) ClientOption {
	return func(c *Client) { c.dialOpts = append(c.dialOpts, opts...) }
}

// OnConnect installs a callback fired on every established
// connection, before any message from it is dispatched.
func OnConnect(fn func(*Client, connection.ID)) ClientOption {
	return func(c *Client) { c.onConnect = fn }
}

// OnDisconnect installs a callback fired after a connection is gone.
func OnDisconnect(fn func(*Client, connection.ID)) ClientOption {
	return func(c *Client) { c.onDisconnect = fn }
}

func NewClient(endpoint transport.Endpoint, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:  endpoint,
		log:       logger.Default(),
		reconnect: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.bus = connection.NewBus()
	c.manager = connection.NewManager(
		func() connection.Framer { return NewStreamFramer(c.log) },
		c.bus,
		c.log,
	)
	c.dispatcher = dispatch.New[*Message]("colossus-client", c.log)
	return c
}

// SetHandler installs fn for a message type. Handlers installed
// before Start are in effect for the first received message.
func (c *Client) SetHandler(t Type, fn Handler) {
	c.dispatcher.SetHandler(uint8(t), func(m *Message) { fn(c, m) })
}

// RemoveHandler uninstalls the handler for a message type.
func (c *Client) RemoveHandler(t Type) {
	c.dispatcher.RemoveHandler(uint8(t))
}

// Ignore suppresses the "no handler" log for a message type. The
// radar sends keep-alives unsolicited; a client that does not care
// should Ignore(TypeKeepAlive).
func (c *Client) Ignore(t Type) {
	c.dispatcher.Ignore(uint8(t))
}

// Start connects to the radar, retrying until it succeeds or Stop is
// called. Start is idempotent.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	c.running = true
	c.lost = make(chan connection.ID, 1)

	c.subMessage = c.bus.Message.Subscribe(func(in connection.Inbound) {
		msg := FromFrame(in.Conn, in.Frame)
		c.dispatcher.Dispatch(in.Frame.Type, msg.Type().String(), in.Conn, msg)
	})
	c.subConnected = c.bus.Connected.Subscribe(func(id connection.ID) {
		c.mu.Lock()
		c.current = id
		c.mu.Unlock()
		if c.onConnect != nil {
			c.onConnect(c, id)
		}
	})
	c.subDisconnected = c.bus.Disconnected.Subscribe(func(id connection.ID) {
		c.mu.Lock()
		if c.current == id {
			c.current = 0
		}
		c.mu.Unlock()
		if c.onDisconnect != nil {
			c.onDisconnect(c, id)
		}
		select {
		case c.lost <- id:
		default:
		}
	})

	c.manager.Start()
	c.dispatcher.Start()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.dialDone = make(chan struct{})
	go c.dialLoop(ctx)

	c.log.Info(fmt.Sprintf("colossus client - connecting to %s", c.endpoint))
	return nil
}

// Stop disconnects and joins every owned worker. Stop is idempotent.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	dialDone := c.dialDone
	c.mu.Unlock()

	cancel()
	<-dialDone

	c.manager.Stop()
	c.dispatcher.Stop()

	c.bus.Message.Unsubscribe(c.subMessage)
	c.bus.Connected.Unsubscribe(c.subConnected)
	c.bus.Disconnected.Unsubscribe(c.subDisconnected)

	c.log.Info("colossus client - stopped")
}

// Send transmits a message on the live connection.
func (c *Client) Send(msg *Message) error {
	c.mu.Lock()
	id := c.current
	c.mu.Unlock()

	if id == 0 {
		return fmt.Errorf("colossus: not connected")
	}
	c.manager.Send(id, msg.Bytes())
	return nil
}

// SendType transmits a bare message carrying only a type tag, the
// usual way to issue start/stop requests.
func (c *Client) SendType(t Type) error {
	return c.Send(NewMessage(t, nil))
}

func (c *Client) dialLoop(ctx context.Context) {
	defer close(c.dialDone)

	dialer := transport.NewDialer(c.endpoint, c.dialOpts...)
	for {
		sock, err := dialer.Dial(ctx)
		if err != nil {
			return
		}
		id := c.manager.Adopt(sock)

		// Hold until this connection dies or the client stops.
		for {
			select {
			case <-ctx.Done():
				return
			case lostID := <-c.lost:
				if lostID != id {
					continue
				}
			}
			break
		}

		if !c.reconnect {
			return
		}
		c.log.Info(fmt.Sprintf("colossus client - lost connection %d, redialling", id))
	}
}
