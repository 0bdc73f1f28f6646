package connection

import (
	"fmt"
	"sync"
	"sync/atomic"

	"radarlink/pkg/active"
	"radarlink/pkg/logger"
	"radarlink/pkg/transport"
)

const recvBufSize = 64 * 1024

// Manager owns every live connection, keyed by id, and publishes
// lifecycle events on its bus.
type Manager struct {
	log       *logger.Log
	bus       *Bus
	newFramer FramerFactory

	worker *active.Object
	conns  map[ID]*conn
	nextID atomic.Uint32

	// joinWG tracks per-connection goroutines so Stop can wait for
	// them after the worker drains.
	joinWG sync.WaitGroup
}

func NewManager(newFramer FramerFactory, bus *Bus, log *logger.Log) *Manager {
	m := &Manager{
		log:       log,
		bus:       bus,
		newFramer: newFramer,
		conns:     make(map[ID]*conn),
	}
	m.worker = active.New("connection-manager")
	return m
}

// Bus exposes the manager's event topics.
func (m *Manager) Bus() *Bus {
	return m.bus
}

func (m *Manager) Start() {
	m.worker.Start()
}

// Stop closes every connection and joins all workers.
func (m *Manager) Stop() {
	_ = m.worker.AsyncCall(func() {
		for id := range m.conns {
			m.closeLocked(id)
		}
	})
	m.worker.Stop()
	m.worker.Join()
	m.joinWG.Wait()
}

// Adopt takes ownership of a connected socket, assigns the next id,
// starts the send and receive workers and publishes connected(id).
func (m *Manager) Adopt(sock *transport.TCPConn) ID {
	id := m.nextID.Add(1)
	if err := m.worker.AsyncCall(func() { m.createLocked(id, sock) }); err != nil {
		_ = sock.Close()
	}
	return id
}

// Send enqueues bytes onto the connection's send worker.
func (m *Manager) Send(id ID, data []byte) {
	_ = m.worker.AsyncCall(func() {
		c, ok := m.conns[id]
		if !ok {
			m.log.Debug(fmt.Sprintf("send to unknown connection %d", id))
			return
		}
		m.enqueueSend(c, data)
	})
}

// Broadcast enqueues bytes onto every connection's send worker.
func (m *Manager) Broadcast(data []byte) {
	_ = m.worker.AsyncCall(func() {
		for _, c := range m.conns {
			m.enqueueSend(c, data)
		}
	})
}

// Close shuts one connection down and publishes disconnected(id).
func (m *Manager) Close(id ID) {
	_ = m.worker.AsyncCall(func() { m.closeLocked(id) })
}

// createLocked runs on the manager worker.
func (m *Manager) createLocked(id ID, sock *transport.TCPConn) {
	c := newConn(id, sock, m.newFramer())
	m.conns[id] = c
	c.sender.Start()

	m.bus.Connected.Publish(id)
	m.log.Debug(fmt.Sprintf("connection %d established, peer %s", id, c.peer))

	m.joinWG.Add(1)
	go m.receiveLoop(c)
}

// closeLocked runs on the manager worker.
func (m *Manager) closeLocked(id ID) {
	c, ok := m.conns[id]
	if !ok || c.state != stateConnected {
		return
	}
	c.state = stateClosing

	_ = c.sock.Close()
	c.sender.Stop()
	c.sender.Join()
	<-c.recvDone

	delete(m.conns, id)
	c.state = stateClosed
	m.bus.Disconnected.Publish(id)
	m.log.Debug(fmt.Sprintf("connection %d closed", id))
}

func (m *Manager) enqueueSend(c *conn, data []byte) {
	err := c.sender.AsyncCall(func() {
		if err := c.sock.Send(data); err != nil {
			m.log.Debug(fmt.Sprintf("connection %d send failed: %v", c.id, err))
			m.bus.SendFailed.Publish(c.id)
			m.Close(c.id)
		}
	})
	if err != nil {
		m.bus.SendFailed.Publish(c.id)
	}
}

// receiveLoop reads from the socket until it fails, feeding the
// framer and publishing each recovered message in wire order.
func (m *Manager) receiveLoop(c *conn) {
	defer m.joinWG.Done()
	defer close(c.recvDone)

	buf := make([]byte, recvBufSize)
	for {
		n, err := c.sock.ReadSome(buf)
		if n > 0 {
			c.framer.Push(buf[:n])
			for {
				frame, ok := c.framer.Next()
				if !ok {
					break
				}
				m.bus.Message.Publish(Inbound{Conn: c.id, Frame: frame})
			}
		}
		if err != nil {
			// All receive errors map to disconnection.
			m.Close(c.id)
			return
		}
	}
}
