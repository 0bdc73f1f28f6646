package colossus

import (
	"fmt"
	"net/netip"
	"sync"

	"radarlink/pkg/active"
	"radarlink/pkg/dispatch"
	"radarlink/pkg/logger"
	"radarlink/pkg/transport"
)

// UDPHandler processes one decoded datagram message.
type UDPHandler func(*UDPClient, *UDPMessage)

// udpConnID is the synthetic connection id reported for datagram
// traffic; a bound UDP socket has no per-peer connection state.
const udpConnID = 1

// UDPClient receives Colossus UDP messages on a bound (optionally
// multicast) socket and dispatches them per type.
type UDPClient struct {
	local     transport.Endpoint
	multicast netip.Addr
	log       *logger.Log

	dispatcher *dispatch.Dispatcher[*UDPMessage]
	framer     *DatagramFramer
	sock       *transport.UDPSocket
	worker     *active.Object

	mu      sync.Mutex
	running bool
}

type UDPClientOption func(*UDPClient)

func WithUDPLogger(log *logger.Log) UDPClientOption {
	return func(c *UDPClient) { c.log = log }
}

// WithMulticast joins the given group after binding.
func WithMulticast(group netip.Addr) UDPClientOption {
	return func(c *UDPClient) { c.multicast = group }
}

func NewUDPClient(local transport.Endpoint, opts ...UDPClientOption) *UDPClient {
	c := &UDPClient{
		local: local,
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.framer = NewDatagramFramer(c.log)
	c.dispatcher = dispatch.New[*UDPMessage]("colossus-udp-client", c.log)
	c.worker = active.New("colossus-udp-receive", active.WithTick(c.receive))
	return c
}

func (c *UDPClient) SetHandler(t UDPType, fn UDPHandler) {
	c.dispatcher.SetHandler(uint8(t), func(m *UDPMessage) { fn(c, m) })
}

func (c *UDPClient) RemoveHandler(t UDPType) {
	c.dispatcher.RemoveHandler(uint8(t))
}

func (c *UDPClient) Ignore(t UDPType) {
	c.dispatcher.Ignore(uint8(t))
}

// Start binds the socket and begins receiving. Idempotent.
func (c *UDPClient) Start() error {
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
		return fmt.Errorf("colossus udp client: %w", err)
	}
	c.sock = sock

	c.dispatcher.Start()
	c.worker.Start()
	c.running = true

	c.log.Info(fmt.Sprintf("colossus udp client - receiving on %s", sock.LocalEndpoint()))
	return nil
}

// Stop closes the socket, unblocking the receive worker, and joins
// everything. Idempotent.
func (c *UDPClient) Stop() {
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

	c.log.Info("colossus udp client - stopped")
}

// Send transmits one message as a single datagram.
func (c *UDPClient) Send(msg *UDPMessage, to transport.Endpoint) error {
	c.mu.Lock()
	sock := c.sock
	running := c.running
	c.mu.Unlock()

	if !running {
		return fmt.Errorf("colossus udp client: not started")
	}
	return sock.SendDatagram(msg.Bytes(), to)
}

func (c *UDPClient) receive() active.TickStatus {
	data, _, err := c.sock.ReceiveDatagram()
	if err != nil {
		return active.Finished
	}
	c.framer.Push(data)
	for {
		frame, ok := c.framer.Next()
		if !ok {
			break
		}
		msg := UDPFromFrame(udpConnID, frame)
		c.dispatcher.Dispatch(frame.Type, msg.Type().String(), udpConnID, msg)
	}
	return active.NotFinished
}
