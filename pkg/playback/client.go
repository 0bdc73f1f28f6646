package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"radarlink/pkg/active"
	"radarlink/pkg/colossus"
	"radarlink/pkg/connection"
	"radarlink/pkg/dispatch"
	"radarlink/pkg/logger"
)

// Mode selects the replay pacing.
type Mode int

const (
	// RealTime sleeps between records to reproduce the original
	// inter-arrival spacing.
	RealTime Mode = iota
	// AsFastAsPossible replays with no sleeps.
	AsFastAsPossible
)

// SyntheticConn is the connection id reported by playback events; a
// recording has no live socket behind it.
const SyntheticConn connection.ID = 1

// Handler processes one replayed TCP-transport message.
type Handler func(*Client, *colossus.Message)

// UDPHandler processes one replayed UDP-transport message.
type UDPHandler func(*Client, *colossus.UDPMessage)

// Client replays a recording through the same dispatcher surface a
// live client offers. On end of file it reports a disconnection for
// the synthetic connection and finishes.
type Client struct {
	path string
	mode Mode
	log  *logger.Log

	tcpDispatch *dispatch.Dispatcher[*colossus.Message]
	udpDispatch *dispatch.Dispatcher[*colossus.UDPMessage]
	worker      *active.Object

	mu      sync.Mutex
	running bool
	reader  *Reader
	stopCh  chan struct{}
	started bool
	last    uint64

	onEnd func(connection.ID)
}

type Option func(*Client)

func WithMode(mode Mode) Option {
	return func(c *Client) { c.mode = mode }
}

func WithLogger(log *logger.Log) Option {
	return func(c *Client) { c.log = log }
}

// OnEnd installs a callback fired once, after the final record has
// been dispatched.
func OnEnd(fn func(connection.ID)) Option {
	return func(c *Client) { c.onEnd = fn }
}

func NewClient(path string, opts ...Option) *Client {
	c := &Client{
		path: path,
		mode: RealTime,
		log:  logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tcpDispatch = dispatch.New[*colossus.Message]("playback-client", c.log)
	c.udpDispatch = dispatch.New[*colossus.UDPMessage]("playback-client-udp", c.log)
	c.worker = active.New("playback", active.WithTick(c.replayOne))
	return c
}

// SetHandler installs a handler for a TCP-transport message type.
func (c *Client) SetHandler(t colossus.Type, fn Handler) {
	c.tcpDispatch.SetHandler(uint8(t), func(m *colossus.Message) { fn(c, m) })
}

func (c *Client) RemoveHandler(t colossus.Type) {
	c.tcpDispatch.RemoveHandler(uint8(t))
}

func (c *Client) Ignore(t colossus.Type) {
	c.tcpDispatch.Ignore(uint8(t))
}

// SetUDPHandler installs a handler for a UDP-transport message type.
func (c *Client) SetUDPHandler(t colossus.UDPType, fn UDPHandler) {
	c.udpDispatch.SetHandler(uint8(t), func(m *colossus.UDPMessage) { fn(c, m) })
}

func (c *Client) IgnoreUDP(t colossus.UDPType) {
	c.udpDispatch.Ignore(uint8(t))
}

// Metadata returns the recording header; valid after Start.
func (c *Client) Metadata() Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil {
		return Metadata{}
	}
	return c.reader.Metadata()
}

// Start opens the recording and begins replay. Idempotent.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	reader, err := OpenReader(c.path)
	if err != nil {
		return err
	}
	c.reader = reader
	c.stopCh = make(chan struct{})
	c.started = false
	c.last = 0

	c.tcpDispatch.Start()
	c.udpDispatch.Start()
	c.worker.Start()
	c.running = true

	c.log.Info(fmt.Sprintf("playback - replaying %s", c.path))
	return nil
}

// Stop halts replay, interrupting a pacing sleep, and joins the
// workers. Idempotent.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.worker.Stop()
	c.worker.Join()
	c.tcpDispatch.Stop()
	c.udpDispatch.Stop()
	_ = c.reader.Close()

	c.log.Info("playback - stopped")
}

// Join blocks until the replay worker has exited, either by Stop or
// by reaching the end of the recording.
func (c *Client) Join() {
	c.worker.Join()
}

// replayOne delivers the next record, pacing against the previous
// record's offset in real-time mode.
func (c *Client) replayOne() active.TickStatus {
	rec, err := c.reader.Next()
	if err != nil {
		if err != io.EOF {
			c.log.Debug(fmt.Sprintf("playback: %v", err))
		}
		c.finish()
		return active.Finished
	}

	if c.mode == RealTime && c.started && rec.OffsetMicros > c.last {
		delay := time.Duration(rec.OffsetMicros-c.last) * time.Microsecond
		timer := time.NewTimer(delay)
		select {
		case <-c.stopCh:
			timer.Stop()
			return active.Finished
		case <-timer.C:
		}
	}
	c.started = true
	c.last = rec.OffsetMicros

	frame := connection.Frame{Data: rec.Data}
	if len(rec.Data) > colossus.TypeByteOffset {
		frame.Type = rec.Data[colossus.TypeByteOffset]
	}
	switch rec.Transport {
	case TransportUDP:
		msg := colossus.UDPFromFrame(SyntheticConn, frame)
		c.udpDispatch.Dispatch(frame.Type, msg.Type().String(), SyntheticConn, msg)
	default:
		msg := colossus.FromFrame(SyntheticConn, frame)
		c.tcpDispatch.Dispatch(frame.Type, msg.Type().String(), SyntheticConn, msg)
	}
	return active.NotFinished
}

func (c *Client) finish() {
	if c.onEnd != nil {
		c.onEnd(SyntheticConn)
	}
}
