package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// Dialer connects to a TCP endpoint, retrying with linear backoff
// until the context is cancelled.
type Dialer struct {
	endpoint     Endpoint
	dialTimeout  time.Duration
	retry        time.Duration
	retryMax     time.Duration
	errorHandler func(error)
}

type DialOption func(*Dialer)

func WithDialTimeout(d time.Duration) DialOption {
	return func(dl *Dialer) {
		if d > 0 {
			dl.dialTimeout = d
		}
	}
}

func WithRetryInterval(d time.Duration) DialOption {
	return func(dl *Dialer) {
		if d > 0 {
			dl.retry = d
		}
	}
}

func WithRetryMax(d time.Duration) DialOption {
	return func(dl *Dialer) {
		if d > 0 {
			dl.retryMax = d
		}
	}
}

func WithErrorHandler(fn func(error)) DialOption {
	return func(dl *Dialer) {
		if fn != nil {
			dl.errorHandler = fn
		}
	}
}

func NewDialer(endpoint Endpoint, opts ...DialOption) *Dialer {
	d := &Dialer{
		endpoint:    endpoint,
		dialTimeout: 5 * time.Second,
		retry:       1 * time.Second,
		retryMax:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial attempts the connection until it succeeds or ctx is done.
func (d *Dialer) Dial(ctx context.Context) (*TCPConn, error) {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, err := net.DialTimeout("tcp", d.endpoint.String(), d.dialTimeout)
		if err == nil {
			return newTCPConn(conn), nil
		}
		if d.errorHandler != nil {
			d.errorHandler(err)
		}

		attempt++
		wait := min(d.retry*time.Duration(attempt), d.retryMax)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// TCPConn wraps a stream socket with exact-length receive semantics.
type TCPConn struct {
	conn net.Conn
}

func newTCPConn(conn net.Conn) *TCPConn {
	return &TCPConn{conn: conn}
}

// WrapConn adopts an already-connected socket, typically one produced
// by an Acceptor.
func WrapConn(conn net.Conn) *TCPConn {
	return newTCPConn(conn)
}

// Send writes the whole buffer. net.Conn.Write already resumes
// partial writes internally.
func (c *TCPConn) Send(b []byte) error {
	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("tcp send: %w", err)
	}
	return nil
}

// Receive fills buf completely, blocking until the bytes arrive or
// the peer closes.
func (c *TCPConn) Receive(buf []byte) error {
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return fmt.Errorf("tcp receive: %w", err)
	}
	return nil
}

// ReadSome performs a single read, returning however many bytes the
// socket had ready.
func (c *TCPConn) ReadSome(buf []byte) (int, error) {
	n, err := c.conn.Read(buf)
	if err != nil {
		return n, fmt.Errorf("tcp read: %w", err)
	}
	return n, nil
}

// Close shuts the socket; a blocked Receive fails immediately.
func (c *TCPConn) Close() error {
	return c.conn.Close()
}

// RemoteEndpoint reports the peer's address, or a zero Endpoint when
// unavailable.
func (c *TCPConn) RemoteEndpoint() Endpoint {
	if addr, ok := c.conn.RemoteAddr().(*net.TCPAddr); ok {
		return Endpoint{IP: addr.AddrPort().Addr().Unmap(), Port: uint16(addr.Port)}
	}
	return Endpoint{}
}
