// Package playback implements the offline recording file format and
// a replay client that drives the same handler surface as a live
// connection.
package playback

import (
	"bytes"
	"fmt"
	"io"
	"net/netip"

	"radarlink/pkg/colossus"
	"radarlink/pkg/wire"
)

// Magic opens every recording file.
var Magic = []byte("RADREC01")

// Transport tags each recorded message with the socket family it
// arrived on.
type Transport uint8

const (
	TransportTCP Transport = 1
	TransportUDP Transport = 2
)

const (
	metadataSize     = 8 + 8*4 + 4
	recordPrefixSize = 8 + 1
)

// Metadata is the header prefixed to every recording: wall-clock and
// monotonic bounds of the capture, plus the radar's address.
type Metadata struct {
	StartWallMicros  uint64
	EndWallMicros    uint64
	StartTicksMicros uint64
	EndTicksMicros   uint64
	RadarIP          netip.Addr
}

func (m Metadata) encode() []byte {
	w := wire.NewWriter(metadataSize)
	w.Bytes(Magic)
	w.U64(m.StartWallMicros)
	w.U64(m.EndWallMicros)
	w.U64(m.StartTicksMicros)
	w.U64(m.EndTicksMicros)
	ip := m.RadarIP.As4()
	w.Bytes(ip[:])
	return w.Finish()
}

func decodeMetadata(b []byte) (Metadata, error) {
	if len(b) < metadataSize {
		return Metadata{}, fmt.Errorf("playback: metadata header truncated at %d bytes", len(b))
	}
	if !bytes.Equal(b[:len(Magic)], Magic) {
		return Metadata{}, fmt.Errorf("playback: bad file magic")
	}
	r := wire.NewReader(b[len(Magic):])
	m := Metadata{
		StartWallMicros:  r.U64(),
		EndWallMicros:    r.U64(),
		StartTicksMicros: r.U64(),
		EndTicksMicros:   r.U64(),
	}
	var ip [4]byte
	copy(ip[:], r.Bytes(4))
	m.RadarIP = netip.AddrFrom4(ip)
	return m, nil
}

// Record is one captured message plus its offset from the start of
// the recording.
type Record struct {
	OffsetMicros uint64
	Transport    Transport
	Data         []byte // full Colossus message, header included
}

// readRecord reads the next record. io.EOF marks a clean end of
// file; a partially written trailing record also yields io.EOF, per
// the append-only tolerance rule.
func readRecord(r io.Reader) (Record, error) {
	prefix := make([]byte, recordPrefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return Record{}, io.EOF
	}
	pr := wire.NewReader(prefix)
	rec := Record{
		OffsetMicros: pr.U64(),
		Transport:    Transport(pr.U8()),
	}

	hdr := make([]byte, colossus.HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return Record{}, io.EOF
	}
	_, payloadLen, err := colossus.DecodeHeader(hdr)
	if err != nil {
		return Record{}, fmt.Errorf("playback: corrupt record header: %w", err)
	}

	data := make([]byte, colossus.HeaderSize+payloadLen)
	copy(data, hdr)
	if _, err := io.ReadFull(r, data[colossus.HeaderSize:]); err != nil {
		return Record{}, io.EOF
	}
	rec.Data = data
	return rec, nil
}

func writeRecord(w io.Writer, rec Record) error {
	pw := wire.NewWriter(recordPrefixSize + len(rec.Data))
	pw.U64(rec.OffsetMicros)
	pw.U8(uint8(rec.Transport))
	pw.Bytes(rec.Data)
	if _, err := w.Write(pw.Finish()); err != nil {
		return fmt.Errorf("playback: write record: %w", err)
	}
	return nil
}
