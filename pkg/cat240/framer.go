package cat240

import (
	"encoding/binary"
	"fmt"

	"radarlink/pkg/connection"
	"radarlink/pkg/logger"
)

// minRecord is the category byte plus the two length bytes; the
// framer commits to a record only after reading those three.
const minRecord = 3

// StreamFramer recovers CAT-240 records from a byte stream. The
// record length is parsed from the first three bytes before the
// framer waits for the remainder; a wrong category or impossible
// length discards one byte and retries.
type StreamFramer struct {
	buf []byte
	log *logger.Log
}

func NewStreamFramer(log *logger.Log) *StreamFramer {
	return &StreamFramer{log: log}
}

func (f *StreamFramer) Push(b []byte) {
	f.buf = append(f.buf, b...)
}

func (f *StreamFramer) Next() (connection.Frame, bool) {
	for {
		if len(f.buf) < minRecord {
			return connection.Frame{}, false
		}
		if f.buf[0] != Category {
			f.buf = f.buf[1:]
			continue
		}
		length := int(binary.BigEndian.Uint16(f.buf[1:3]))
		if length < minRecord {
			f.log.Debug(fmt.Sprintf("cat240 framer: impossible record length %d, resynchronising", length))
			f.buf = f.buf[1:]
			continue
		}
		if len(f.buf) < length {
			return connection.Frame{}, false
		}

		data := make([]byte, length)
		copy(data, f.buf[:length])
		f.buf = f.buf[length:]
		return connection.Frame{Type: Category, Data: data}, true
	}
}
