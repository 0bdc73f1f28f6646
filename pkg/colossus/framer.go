package colossus

import (
	"bytes"
	"fmt"

	"radarlink/pkg/connection"
	"radarlink/pkg/logger"
)

// MaxPayload bounds the declared payload length of a single message.
// A longer declared length means the stream is corrupt, and the
// framer resynchronises rather than buffer indefinitely.
const MaxPayload = 1 << 24

// StreamFramer recovers Colossus messages from a TCP byte stream. It
// alternates between reading a 22-byte header and reading the
// declared payload; a signature mismatch discards one byte and
// retries until the stream realigns.
type StreamFramer struct {
	buf []byte
	log *logger.Log
}

func NewStreamFramer(log *logger.Log) *StreamFramer {
	return &StreamFramer{log: log}
}

// Push appends received bytes to the framing buffer.
func (f *StreamFramer) Push(b []byte) {
	f.buf = append(f.buf, b...)
}

// Next pops the next complete message, if one is buffered.
func (f *StreamFramer) Next() (connection.Frame, bool) {
	for {
		if len(f.buf) < HeaderSize {
			return connection.Frame{}, false
		}
		if !bytes.Equal(f.buf[:len16], Signature) {
			// Resynchronise: discard a byte and retry.
			f.buf = f.buf[1:]
			continue
		}
		t, n, err := DecodeHeader(f.buf[:HeaderSize])
		if err != nil || n > MaxPayload {
			f.log.Debug(fmt.Sprintf("framer: implausible header (payload %d), resynchronising", n))
			f.buf = f.buf[1:]
			continue
		}
		total := HeaderSize + n
		if len(f.buf) < total {
			return connection.Frame{}, false
		}

		data := make([]byte, total)
		copy(data, f.buf[:total])
		f.buf = f.buf[total:]
		return connection.Frame{Type: uint8(t), Data: data}, true
	}
}

// DatagramFramer treats every pushed slice as exactly one message.
// Malformed datagrams are dropped with a logged error; there is no
// intra-datagram framing to recover.
type DatagramFramer struct {
	pending []connection.Frame
	log     *logger.Log
}

func NewDatagramFramer(log *logger.Log) *DatagramFramer {
	return &DatagramFramer{log: log}
}

// Push validates one datagram and queues it as a frame.
func (f *DatagramFramer) Push(b []byte) {
	t, n, err := DecodeHeader(b)
	if err != nil {
		f.log.Debug(fmt.Sprintf("datagram framer: %v, dropping datagram", err))
		return
	}
	if HeaderSize+n != len(b) {
		f.log.Debug(fmt.Sprintf("datagram framer: declared payload %d in %d-byte datagram, dropping", n, len(b)))
		return
	}
	data := make([]byte, len(b))
	copy(data, b)
	f.pending = append(f.pending, connection.Frame{Type: uint8(t), Data: data})
}

// Next pops the next validated datagram.
func (f *DatagramFramer) Next() (connection.Frame, bool) {
	if len(f.pending) == 0 {
		return connection.Frame{}, false
	}
	frame := f.pending[0]
	f.pending = f.pending[1:]
	return frame, true
}
