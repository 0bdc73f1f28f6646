package colossus

import (
	"bytes"
	"io"
	"testing"

	"radarlink/pkg/logger"
)

func testLog() *logger.Log {
	return logger.New(io.Discard, logger.LevelOff)
}

func TestFramerRecoversSingleMessage(t *testing.T) {
	log := testLog()
	defer log.Close()
	f := NewStreamFramer(log)

	msg := NewMessage(TypeFFTData, []byte{1, 2, 3})
	f.Push(msg.Bytes())

	frame, ok := f.Next()
	if !ok {
		t.Fatalf("no frame recovered")
	}
	if Type(frame.Type) != TypeFFTData {
		t.Fatalf("type %v", Type(frame.Type))
	}
	if !bytes.Equal(frame.Data, msg.Bytes()) {
		t.Fatalf("frame bytes differ")
	}
	if _, ok := f.Next(); ok {
		t.Fatalf("phantom second frame")
	}
}

func TestFramerHandlesArbitrarySplits(t *testing.T) {
	log := testLog()
	defer log.Close()

	msg := NewMessage(TypeConfiguration, bytes.Repeat([]byte{0xAA}, 26))
	raw := msg.Bytes()

	// Feed byte by byte: exactly one message must emerge, only once
	// the last byte arrives.
	f := NewStreamFramer(log)
	for i, b := range raw {
		f.Push([]byte{b})
		frame, ok := f.Next()
		if i < len(raw)-1 {
			if ok {
				t.Fatalf("frame emitted after %d of %d bytes", i+1, len(raw))
			}
			continue
		}
		if !ok {
			t.Fatalf("no frame after the final byte")
		}
		if !bytes.Equal(frame.Data, raw) {
			t.Fatalf("frame bytes differ")
		}
	}
}

func TestFramerEmitsMultipleMessagesInOnePush(t *testing.T) {
	log := testLog()
	defer log.Close()
	f := NewStreamFramer(log)

	a := NewMessage(TypeKeepAlive, nil)
	b := NewMessage(TypeFFTData, []byte{9})
	f.Push(append(append([]byte(nil), a.Bytes()...), b.Bytes()...))

	first, ok := f.Next()
	if !ok || Type(first.Type) != TypeKeepAlive {
		t.Fatalf("first frame: ok=%v type=%v", ok, Type(first.Type))
	}
	second, ok := f.Next()
	if !ok || Type(second.Type) != TypeFFTData {
		t.Fatalf("second frame: ok=%v type=%v", ok, Type(second.Type))
	}
}

func TestFramerResynchronisesAfterGarbage(t *testing.T) {
	log := testLog()
	defer log.Close()
	f := NewStreamFramer(log)

	msg := NewMessage(TypeHealth, []byte{7, 7})
	stream := append([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}, msg.Bytes()...)
	f.Push(stream)

	frame, ok := f.Next()
	if !ok {
		t.Fatalf("no frame after garbage prefix")
	}
	if Type(frame.Type) != TypeHealth || !bytes.Equal(frame.Data, msg.Bytes()) {
		t.Fatalf("recovered wrong frame")
	}
}

func TestFramerDiscardsImplausibleLength(t *testing.T) {
	log := testLog()
	defer log.Close()
	f := NewStreamFramer(log)

	// A valid signature with an absurd declared length, followed by a
	// good message.
	bad := NewMessage(TypeKeepAlive, nil).Bytes()
	bad = append([]byte(nil), bad...)
	bad[HeaderSize-4] = 0xFF // payload length = 0xFF000000
	bad[HeaderSize-3] = 0x00
	good := NewMessage(TypeKeepAlive, nil)

	f.Push(append(bad, good.Bytes()...))
	frame, ok := f.Next()
	if !ok {
		t.Fatalf("no frame recovered after corrupt header")
	}
	if !bytes.Equal(frame.Data, good.Bytes()) {
		t.Fatalf("recovered wrong frame")
	}
}

func TestDatagramFramerOneMessagePerDatagram(t *testing.T) {
	log := testLog()
	defer log.Close()
	f := NewDatagramFramer(log)

	msg := NewUDPMessage(UDPTypeIMU, make([]byte, 18))
	f.Push(msg.Bytes())

	frame, ok := f.Next()
	if !ok {
		t.Fatalf("no frame from datagram")
	}
	if UDPType(frame.Type) != UDPTypeIMU {
		t.Fatalf("type %v", UDPType(frame.Type))
	}
	if _, ok := f.Next(); ok {
		t.Fatalf("phantom second frame")
	}
}

func TestDatagramFramerDropsLengthMismatch(t *testing.T) {
	log := testLog()
	defer log.Close()
	f := NewDatagramFramer(log)

	// Truncated datagram: declared payload longer than the bytes.
	msg := NewUDPMessage(UDPTypeIMU, make([]byte, 18))
	f.Push(msg.Bytes()[:HeaderSize+4])

	if _, ok := f.Next(); ok {
		t.Fatalf("truncated datagram framed")
	}
}

func TestDatagramFramerDropsBadSignature(t *testing.T) {
	log := testLog()
	defer log.Close()
	f := NewDatagramFramer(log)

	raw := append([]byte(nil), NewUDPMessage(UDPTypeIMU, nil).Bytes()...)
	raw[3] ^= 0x40
	f.Push(raw)

	if _, ok := f.Next(); ok {
		t.Fatalf("bad-signature datagram framed")
	}
}
