package colossus

import (
	"bytes"
	"fmt"

	"radarlink/pkg/connection"
	"radarlink/pkg/wire"
)

// Signature is the 16-byte magic prefixed to every Colossus message,
// verified on every frame.
var Signature = []byte{
	0x00, 0x01, 0x03, 0x03, 0x07, 0x07, 0x0F, 0x0F,
	0x1F, 0x1F, 0x3F, 0x3F, 0x7F, 0x7F, 0xFF, 0xFF,
}

const (
	// ProtocolVersion is the header version byte this codec speaks.
	ProtocolVersion = 1

	// HeaderSize is signature + version + type + payload length.
	HeaderSize = len16 + 1 + 1 + 4
	len16      = 16

	// TypeByteOffset locates the type tag within a message header.
	TypeByteOffset = len16 + 1

	// DefaultPort is the radar's Colossus port for TCP and UDP alike.
	DefaultPort = 6317
)

// ErrBadHeader reports a header that fails signature or length
// validation.
var ErrBadHeader = fmt.Errorf("colossus: bad message header")

// Message is one Colossus message: a type tag, the id of the
// connection it arrived on (zero for locally built messages), and the
// owned buffer holding header plus payload. Handlers that retain a
// message take over the buffer; the SDK never touches it again.
type Message struct {
	msgType Type
	conn    connection.ID
	data    []byte
}

// NewMessage builds an outgoing message of the given type around a
// payload, which may be nil for bare signalling messages.
func NewMessage(t Type, payload []byte) *Message {
	w := wire.NewWriter(HeaderSize + len(payload))
	w.Bytes(Signature)
	w.U8(ProtocolVersion)
	w.U8(uint8(t))
	w.U32(uint32(len(payload)))
	w.Bytes(payload)
	return &Message{msgType: t, data: w.Finish()}
}

// FromFrame adopts a framed message produced by the framer.
func FromFrame(conn connection.ID, frame connection.Frame) *Message {
	return &Message{
		msgType: Type(frame.Type),
		conn:    conn,
		data:    frame.Data,
	}
}

// Type returns the message's type tag.
func (m *Message) Type() Type {
	return m.msgType
}

// Conn identifies the connection the message arrived on.
func (m *Message) Conn() connection.ID {
	return m.conn
}

// Size is the total number of bytes, header included.
func (m *Message) Size() int {
	return len(m.data)
}

// Bytes returns the full wire image of the message.
func (m *Message) Bytes() []byte {
	return m.data
}

// Payload returns the bytes after the header. The slice aliases the
// message buffer.
func (m *Message) Payload() []byte {
	if len(m.data) < HeaderSize {
		return nil
	}
	return m.data[HeaderSize:]
}

// ValidHeader checks the signature, version and declared length
// against the buffer.
func (m *Message) ValidHeader() bool {
	if len(m.data) < HeaderSize {
		return false
	}
	if !bytes.Equal(m.data[:len16], Signature) {
		return false
	}
	r := wire.NewReader(m.data[len16:])
	r.U8() // version
	r.U8() // type
	return int(r.U32()) == len(m.data)-HeaderSize
}

// DecodeHeader parses a 22-byte header, returning the type tag and
// payload length.
func DecodeHeader(hdr []byte) (Type, int, error) {
	if len(hdr) < HeaderSize {
		return TypeInvalid, 0, fmt.Errorf("%w: %d bytes", ErrBadHeader, len(hdr))
	}
	if !bytes.Equal(hdr[:len16], Signature) {
		return TypeInvalid, 0, fmt.Errorf("%w: signature mismatch", ErrBadHeader)
	}
	r := wire.NewReader(hdr[len16:])
	r.U8() // version byte is tolerated, not enforced
	t := Type(r.U8())
	n := int(r.U32())
	return t, n, nil
}
