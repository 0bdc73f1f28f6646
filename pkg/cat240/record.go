// Package cat240 implements ASTERIX category 240, the EUROCONTROL
// standard for radar video transmission. Only category 240 records
// are handled; the video-summary and video-block message types are
// both supported.
package cat240

import (
	"fmt"

	"radarlink/pkg/wire"
)

// Category is the one ASTERIX category this codec speaks.
const Category = 240

// MessageType discriminates the two CAT-240 message kinds.
type MessageType uint8

const (
	MessageTypeInvalid MessageType = 0
	MessageTypeSummary MessageType = 1
	MessageTypeVideo   MessageType = 2
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeSummary:
		return "video_summary"
	case MessageTypeVideo:
		return "video_message"
	default:
		return fmt.Sprintf("message_type(%d)", uint8(t))
	}
}

// azimuthUnit converts the 16-bit wire angle to degrees.
const azimuthUnit = 360.0 / 65536.0

// Resolution codes for I240/048 cell bit depth.
const (
	ResMonobit uint8 = 1
	Res2Bit    uint8 = 2
	Res4Bit    uint8 = 3
	Res8Bit    uint8 = 4
	Res16Bit   uint8 = 5
	Res32Bit   uint8 = 6
)

// DataSource is the I240/010 SAC/SIC pair.
type DataSource struct {
	SAC uint8
	SIC uint8
}

// VideoHeader is the I240/040 (nano) or I240/041 (femto) extended
// information: start/end angles, first cell index and cell duration.
type VideoHeader struct {
	StartAzimuth uint16 // units of 360/65536 degrees
	EndAzimuth   uint16
	StartRange   uint32
	CellDuration uint32
}

// StartAngleDeg converts the start azimuth to degrees.
func (h VideoHeader) StartAngleDeg() float64 {
	return float64(h.StartAzimuth) * azimuthUnit
}

// EndAngleDeg converts the end azimuth to degrees.
func (h VideoHeader) EndAngleDeg() float64 {
	return float64(h.EndAzimuth) * azimuthUnit
}

// CellsResolution is I240/048: the compression flag and the bit depth
// of the video cells.
type CellsResolution struct {
	Compressed bool
	Res        uint8
}

// Counters is I240/049: valid octets and valid cells in the record.
type Counters struct {
	ValidOctets uint16
	ValidCells  uint32 // 24 bits on the wire
}

// Record is one CAT-240 record. Optional fields use presence flags
// matching the FSPEC bitmap.
type Record struct {
	DataSource   *DataSource
	MessageType  MessageType
	MessageIndex uint32 // I240/020, the per-stream sweep counter
	HasIndex     bool
	Summary      string
	HasSummary   bool
	HeaderNano   *VideoHeader
	HeaderFemto  *VideoHeader
	Resolution   *CellsResolution
	Counters     *Counters
	Cells        []byte  // concatenated video block octets
	TimeOfDay    *uint32 // 1/128 s since UTC midnight
}

// videoBlockSizes maps the three video block FRNs to their octet
// group sizes (low, medium, high data volume).
var videoBlockSizes = [...]int{4, 64, 256}

// Encode serialises the record, choosing the smallest video block
// field that fits the cell payload.
func (rec *Record) Encode() ([]byte, error) {
	body := wire.NewWriter(64 + len(rec.Cells))

	var frns []int
	if rec.DataSource != nil {
		frns = append(frns, 1)
		body.U8(rec.DataSource.SAC)
		body.U8(rec.DataSource.SIC)
	}
	if rec.MessageType != MessageTypeInvalid {
		frns = append(frns, 2)
		body.U8(uint8(rec.MessageType))
	}
	if rec.HasIndex {
		frns = append(frns, 3)
		body.U32(rec.MessageIndex)
	}
	if rec.HasSummary {
		if len(rec.Summary) > 255 {
			return nil, fmt.Errorf("cat240: summary longer than 255 bytes")
		}
		frns = append(frns, 4)
		body.U8(uint8(len(rec.Summary)))
		body.Bytes([]byte(rec.Summary))
	}
	if rec.HeaderNano != nil {
		frns = append(frns, 5)
		encodeVideoHeader(body, rec.HeaderNano)
	}
	if rec.HeaderFemto != nil {
		frns = append(frns, 6)
		encodeVideoHeader(body, rec.HeaderFemto)
	}
	if rec.Resolution != nil {
		frns = append(frns, 7)
		var flags uint8
		if rec.Resolution.Compressed {
			flags |= 0x80
		}
		body.U8(flags)
		body.U8(rec.Resolution.Res)
	}
	if rec.Counters != nil {
		frns = append(frns, 8)
		body.U16(rec.Counters.ValidOctets)
		body.U24(rec.Counters.ValidCells)
	}
	if len(rec.Cells) > 0 {
		frn, err := encodeVideoBlocks(body, rec.Cells)
		if err != nil {
			return nil, err
		}
		frns = append(frns, frn)
	}
	if rec.TimeOfDay != nil {
		frns = append(frns, 12)
		body.U24(*rec.TimeOfDay)
	}

	fspec := encodeFSPEC(frns)
	total := 3 + len(fspec) + body.Len()
	out := wire.NewWriter(total)
	out.U8(Category)
	out.U16(uint16(total))
	out.Bytes(fspec)
	out.Bytes(body.Finish())
	return out.Finish(), nil
}

func encodeVideoHeader(w *wire.Writer, h *VideoHeader) {
	w.U16(h.StartAzimuth)
	w.U16(h.EndAzimuth)
	w.U32(h.StartRange)
	w.U32(h.CellDuration)
}

// encodeVideoBlocks picks the smallest block size whose REP count
// stays within one byte, zero-padding the final block.
func encodeVideoBlocks(w *wire.Writer, cells []byte) (int, error) {
	for i, size := range videoBlockSizes {
		rep := (len(cells) + size - 1) / size
		if rep > 255 {
			continue
		}
		w.U8(uint8(rep))
		w.Bytes(cells)
		if pad := rep*size - len(cells); pad > 0 {
			w.Bytes(make([]byte, pad))
		}
		return 9 + i, nil
	}
	return 0, fmt.Errorf("cat240: %d cell octets exceed the largest video block field", len(cells))
}

// encodeFSPEC builds the FX-chained presence bitmap for the given
// 1-based field reference numbers.
func encodeFSPEC(frns []int) []byte {
	octets := 1
	for _, frn := range frns {
		if need := (frn-1)/7 + 1; need > octets {
			octets = need
		}
	}
	out := make([]byte, octets)
	for _, frn := range frns {
		oct := (frn - 1) / 7
		bit := uint((frn - 1) % 7)
		out[oct] |= 0x80 >> bit
	}
	for i := 0; i < octets-1; i++ {
		out[i] |= 0x01 // FX
	}
	return out
}

// Decode parses one record from b, which must contain the complete
// record as delimited by its length field.
func Decode(b []byte) (*Record, error) {
	if len(b) < 3 {
		return nil, fmt.Errorf("cat240: record shorter than 3 bytes")
	}
	if b[0] != Category {
		return nil, fmt.Errorf("cat240: category %d, want %d", b[0], Category)
	}
	r := wire.NewReader(b)
	r.U8()
	length := int(r.U16())
	if length != len(b) {
		return nil, fmt.Errorf("cat240: length field %d, record is %d bytes", length, len(b))
	}

	present, err := decodeFSPEC(r)
	if err != nil {
		return nil, err
	}

	rec := &Record{}
	if present(1) {
		rec.DataSource = &DataSource{SAC: r.U8(), SIC: r.U8()}
	}
	if present(2) {
		rec.MessageType = MessageType(r.U8())
	}
	if present(3) {
		rec.MessageIndex = r.U32()
		rec.HasIndex = true
	}
	if present(4) {
		rep := int(r.U8())
		rec.Summary = string(r.Bytes(rep))
		rec.HasSummary = true
	}
	if present(5) {
		rec.HeaderNano = decodeVideoHeader(r)
	}
	if present(6) {
		rec.HeaderFemto = decodeVideoHeader(r)
	}
	if present(7) {
		flags := r.U8()
		rec.Resolution = &CellsResolution{
			Compressed: flags&0x80 != 0,
			Res:        r.U8(),
		}
	}
	if present(8) {
		rec.Counters = &Counters{
			ValidOctets: r.U16(),
			ValidCells:  r.U24(),
		}
	}
	for i, size := range videoBlockSizes {
		if !present(9 + i) {
			continue
		}
		rep := int(r.U8())
		rec.Cells = append(rec.Cells, r.Bytes(rep*size)...)
	}
	if present(12) {
		tod := r.U24()
		rec.TimeOfDay = &tod
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("cat240: decode record: %w", err)
	}
	return rec, nil
}

func decodeVideoHeader(r *wire.Reader) *VideoHeader {
	return &VideoHeader{
		StartAzimuth: r.U16(),
		EndAzimuth:   r.U16(),
		StartRange:   r.U32(),
		CellDuration: r.U32(),
	}
}

// decodeFSPEC consumes the FX-chained bitmap and returns a lookup for
// 1-based field reference numbers.
func decodeFSPEC(r *wire.Reader) (func(int) bool, error) {
	var octets []byte
	for {
		o := r.U8()
		if r.Err() != nil {
			return nil, fmt.Errorf("cat240: truncated FSPEC")
		}
		octets = append(octets, o)
		if o&0x01 == 0 {
			break
		}
		if len(octets) > 4 {
			return nil, fmt.Errorf("cat240: FSPEC longer than 4 octets")
		}
	}
	return func(frn int) bool {
		oct := (frn - 1) / 7
		if oct >= len(octets) {
			return false
		}
		bit := uint((frn - 1) % 7)
		return octets[oct]&(0x80>>bit) != 0
	}, nil
}

// ValidCellBytes trims the concatenated blocks to the octet count
// declared in I240/049, when present.
func (rec *Record) ValidCellBytes() []byte {
	if rec.Counters == nil || int(rec.Counters.ValidOctets) > len(rec.Cells) {
		return rec.Cells
	}
	return rec.Cells[:rec.Counters.ValidOctets]
}

// DecompressedCells expands the run-length encoded (count, value)
// pairs when the compression flag is set; otherwise it returns the
// valid cell bytes unchanged.
func (rec *Record) DecompressedCells() ([]byte, error) {
	cells := rec.ValidCellBytes()
	if rec.Resolution == nil || !rec.Resolution.Compressed {
		return cells, nil
	}
	if len(cells)%2 != 0 {
		return nil, fmt.Errorf("cat240: odd run-length stream of %d bytes", len(cells))
	}
	var out []byte
	for i := 0; i < len(cells); i += 2 {
		count := int(cells[i])
		value := cells[i+1]
		for n := 0; n < count; n++ {
			out = append(out, value)
		}
	}
	return out, nil
}

// CompressCells run-length encodes a cell stream as (count, value)
// pairs.
func CompressCells(cells []byte) []byte {
	var out []byte
	for i := 0; i < len(cells); {
		value := cells[i]
		count := 1
		for i+count < len(cells) && cells[i+count] == value && count < 255 {
			count++
		}
		out = append(out, uint8(count), value)
		i += count
	}
	return out
}
