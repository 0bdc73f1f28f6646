package cat240

import (
	"fmt"
	"net/netip"
	"sync"

	"radarlink/pkg/active"
	"radarlink/pkg/dispatch"
	"radarlink/pkg/logger"
	"radarlink/pkg/transport"
)

// Handler processes one decoded CAT-240 record on the client's
// dispatcher worker.
type Handler func(*Client, *Record)

// clientConnID is the synthetic connection id reported for datagram
// traffic; a bound UDP socket has no per-peer connection state.
const clientConnID = 1

// Client receives CAT-240 records over UDP and dispatches them by
// message type (summary or video).
type Client struct {
	local     transport.Endpoint
	multicast netip.Addr
	log       *logger.Log

	dispatcher *dispatch.Dispatcher[*Record]
	sock       *transport.UDPSocket
	worker     *active.Object

	mu      sync.Mutex
	running bool
}

type ClientOption func(*Client)

func WithLogger(log *logger.Log) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithMulticast joins the given group after binding.
func WithMulticast(group netip.Addr) ClientOption {
	return func(c *Client) { c.multicast = group }
}

func NewClient(local transport.Endpoint, opts ...ClientOption) *Client {
	c := &Client{
		local: local,
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dispatcher = dispatch.New[*Record]("cat240-client", c.log)
	c.worker = active.New("cat240-receive", active.WithTick(c.receive))
	return c
}

func (c *Client) SetHandler(t MessageType, fn Handler) {
	c.dispatcher.SetHandler(uint8(t), func(rec *Record) { fn(c, rec) })
}

func (c *Client) RemoveHandler(t MessageType) {
	c.dispatcher.RemoveHandler(uint8(t))
}

func (c *Client) Ignore(t MessageType) {
	c.dispatcher.Ignore(uint8(t))
}

// Start binds the socket and begins receiving. Idempotent.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var opts []transport.UDPOption
	if c.multicast.IsValid() {
		opts = append(opts, transport.WithMulticastGroup(c.multicast))
	}
	sock, err := transport.OpenUDP(c.local, opts...)
	if err != nil {
		return fmt.Errorf("cat240 client: %w", err)
	}
	c.sock = sock

	c.dispatcher.Start()
	c.worker.Start()
	c.running = true

	c.log.Info(fmt.Sprintf("cat240 client - receiving on %s", sock.LocalEndpoint()))
	return nil
}

// Stop closes the socket and joins the workers. Idempotent.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	_ = c.sock.Close()
	c.worker.Stop()
	c.worker.Join()
	c.dispatcher.Stop()

	c.log.Info("cat240 client - stopped")
}

func (c *Client) receive() active.TickStatus {
	data, _, err := c.sock.ReceiveDatagram()
	if err != nil {
		return active.Finished
	}
	rec, err := Decode(data)
	if err != nil {
		// Malformed datagrams are dropped, never surfaced.
		c.log.Debug(fmt.Sprintf("cat240 client: %v", err))
		return active.NotFinished
	}
	c.dispatcher.Dispatch(uint8(rec.MessageType), rec.MessageType.String(), clientConnID, rec)
	return active.NotFinished
}
