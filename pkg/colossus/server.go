package colossus

import (
	"fmt"
	"sync"

	"radarlink/pkg/connection"
	"radarlink/pkg/dispatch"
	"radarlink/pkg/events"
	"radarlink/pkg/logger"
	"radarlink/pkg/transport"
)

// ServerHandler processes one decoded message on the server's
// dispatcher worker.
type ServerHandler func(*Server, *Message)

// Server is the listening counterpart of Client: an acceptor feeding
// the connection manager, used by the mock radar and the tests.
type Server struct {
	listen transport.Endpoint
	log    *logger.Log

	bus        *connection.Bus
	manager    *connection.Manager
	acceptor   *transport.Acceptor
	dispatcher *dispatch.Dispatcher[*Message]

	mu      sync.Mutex
	running bool

	subMessage      events.Handle
	subConnected    events.Handle
	subDisconnected events.Handle

	onConnect    func(*Server, connection.ID)
	onDisconnect func(*Server, connection.ID)
}

type ServerOption func(*Server)

func WithServerLogger(log *logger.Log) ServerOption {
	return func(s *Server) { s.log = log }
}

// OnClientConnect installs a callback fired for each accepted
// connection. The radar-side convention is to send the configuration
// message from this callback.
func OnClientConnect(fn func(*Server, connection.ID)) ServerOption {
	return func(s *Server) { s.onConnect = fn }
}

// OnClientDisconnect installs a callback fired after a connection is
// removed.
func OnClientDisconnect(fn func(*Server, connection.ID)) ServerOption {
	return func(s *Server) { s.onDisconnect = fn }
}

func NewServer(listen transport.Endpoint, opts ...ServerOption) *Server {
	s := &Server{
		listen: listen,
		log:    logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bus = connection.NewBus()
	s.manager = connection.NewManager(
		func() connection.Framer { return NewStreamFramer(s.log) },
		s.bus,
		s.log,
	)
	s.dispatcher = dispatch.New[*Message]("colossus-server", s.log)
	s.acceptor = transport.NewAcceptor(listen, func(sock *transport.TCPConn) {
		s.manager.Adopt(sock)
	})
	return s
}

func (s *Server) SetHandler(t Type, fn ServerHandler) {
	s.dispatcher.SetHandler(uint8(t), func(m *Message) { fn(s, m) })
}

func (s *Server) RemoveHandler(t Type) {
	s.dispatcher.RemoveHandler(uint8(t))
}

func (s *Server) Ignore(t Type) {
	s.dispatcher.Ignore(uint8(t))
}

// Start binds the listener and begins accepting. Idempotent.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.subMessage = s.bus.Message.Subscribe(func(in connection.Inbound) {
		msg := FromFrame(in.Conn, in.Frame)
		s.dispatcher.Dispatch(in.Frame.Type, msg.Type().String(), in.Conn, msg)
	})
	s.subConnected = s.bus.Connected.Subscribe(func(id connection.ID) {
		if s.onConnect != nil {
			s.onConnect(s, id)
		}
	})
	s.subDisconnected = s.bus.Disconnected.Subscribe(func(id connection.ID) {
		if s.onDisconnect != nil {
			s.onDisconnect(s, id)
		}
	})

	s.manager.Start()
	s.dispatcher.Start()
	if err := s.acceptor.Start(); err != nil {
		s.manager.Stop()
		s.dispatcher.Stop()
		s.bus.Message.Unsubscribe(s.subMessage)
		s.bus.Connected.Unsubscribe(s.subConnected)
		s.bus.Disconnected.Unsubscribe(s.subDisconnected)
		return fmt.Errorf("colossus server: %w", err)
	}

	s.running = true
	s.log.Info(fmt.Sprintf("colossus server - listening on %s", s.acceptor.ListenEndpoint()))
	return nil
}

// Stop closes the listener and every connection, joining all owned
// workers. Idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.acceptor.Stop()
	s.manager.Stop()
	s.dispatcher.Stop()

	s.bus.Message.Unsubscribe(s.subMessage)
	s.bus.Connected.Unsubscribe(s.subConnected)
	s.bus.Disconnected.Unsubscribe(s.subDisconnected)

	s.log.Info("colossus server - stopped")
}

// ListenEndpoint reports the bound address, useful when port 0 was
// requested.
func (s *Server) ListenEndpoint() transport.Endpoint {
	return s.acceptor.ListenEndpoint()
}

// Send transmits a message to one client.
func (s *Server) Send(id connection.ID, msg *Message) {
	s.manager.Send(id, msg.Bytes())
}

// Broadcast transmits a message to every connected client.
func (s *Server) Broadcast(msg *Message) {
	s.manager.Broadcast(msg.Bytes())
}

// CloseClient drops one client connection.
func (s *Server) CloseClient(id connection.ID) {
	s.manager.Close(id)
}
