package wire

import (
	"errors"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(32)
	w.U8(0xAB)
	w.U16(0x1234)
	w.U24(0x56789A)
	w.U32(0xDEADBEEF)
	w.U64(0x0102030405060708)
	w.I16(-2)
	w.I32(-100000)
	w.Bytes([]byte{1, 2, 3})

	r := NewReader(w.Finish())
	if got := r.U8(); got != 0xAB {
		t.Fatalf("u8 = %#x", got)
	}
	if got := r.U16(); got != 0x1234 {
		t.Fatalf("u16 = %#x", got)
	}
	if got := r.U24(); got != 0x56789A {
		t.Fatalf("u24 = %#x", got)
	}
	if got := r.U32(); got != 0xDEADBEEF {
		t.Fatalf("u32 = %#x", got)
	}
	if got := r.U64(); got != 0x0102030405060708 {
		t.Fatalf("u64 = %#x", got)
	}
	if got := r.I16(); got != -2 {
		t.Fatalf("i16 = %d", got)
	}
	if got := r.I32(); got != -100000 {
		t.Fatalf("i32 = %d", got)
	}
	rest := r.Rest()
	if len(rest) != 3 || rest[0] != 1 || rest[2] != 3 {
		t.Fatalf("rest = %v", rest)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReaderBigEndianLayout(t *testing.T) {
	r := NewReader([]byte{0x12, 0x34})
	if got := r.U16(); got != 0x1234 {
		t.Fatalf("u16 read little-endian: %#x", got)
	}
}

func TestReaderShortBufferLatchesError(t *testing.T) {
	r := NewReader([]byte{0x01})
	if got := r.U32(); got != 0 {
		t.Fatalf("short read returned %#x", got)
	}
	if !errors.Is(r.Err(), ErrShortBuffer) {
		t.Fatalf("error = %v", r.Err())
	}
	// Subsequent reads stay zero once the error latched.
	if got := r.U8(); got != 0 {
		t.Fatalf("read after error returned %#x", got)
	}
}

func TestReaderRemaining(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	r.U16()
	if got := r.Remaining(); got != 2 {
		t.Fatalf("remaining = %d", got)
	}
	r.Skip(2)
	if got := r.Remaining(); got != 0 {
		t.Fatalf("remaining after skip = %d", got)
	}
}
