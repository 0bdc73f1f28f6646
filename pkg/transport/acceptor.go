package transport

import (
	"fmt"
	"net"

	"radarlink/pkg/active"
)

// Acceptor listens for inbound TCP connections on its own worker and
// hands each accepted socket to a callback. A listener error (usually
// the listener being closed during Stop) ends the accept loop.
type Acceptor struct {
	listen   Endpoint
	onAccept func(*TCPConn)
	ln       net.Listener
	worker   *active.Object
}

func NewAcceptor(listen Endpoint, onAccept func(*TCPConn)) *Acceptor {
	a := &Acceptor{
		listen:   listen,
		onAccept: onAccept,
	}
	a.worker = active.New("acceptor", active.WithTick(a.accept))
	return a
}

// Start binds the listening socket and launches the accept loop.
func (a *Acceptor) Start() error {
	ln, err := net.Listen("tcp", a.listen.String())
	if err != nil {
		return fmt.Errorf("acceptor listen on %s: %w", a.listen, err)
	}
	a.ln = ln
	a.worker.Start()
	return nil
}

// Stop closes the listener, unblocking a pending accept, and joins
// the worker.
func (a *Acceptor) Stop() {
	if a.ln != nil {
		_ = a.ln.Close()
	}
	a.worker.Stop()
	a.worker.Join()
}

// ListenEndpoint reports the bound address, useful when the
// configured port was 0.
func (a *Acceptor) ListenEndpoint() Endpoint {
	if a.ln == nil {
		return a.listen
	}
	if addr, ok := a.ln.Addr().(*net.TCPAddr); ok {
		return Endpoint{IP: addr.AddrPort().Addr().Unmap(), Port: uint16(addr.Port)}
	}
	return a.listen
}

func (a *Acceptor) accept() active.TickStatus {
	conn, err := a.ln.Accept()
	if err != nil {
		return active.Finished
	}
	a.onAccept(newTCPConn(conn))
	return active.NotFinished
}
