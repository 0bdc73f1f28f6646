package navigation

import (
	"math"
	"testing"

	"radarlink/pkg/units"
)

func TestBufferOffPassesThrough(t *testing.T) {
	b := NewFFTBuffer(BufferOff, 4)
	spoke := []units.DB{1, 2, 3}

	out, ready := b.Process(spoke)
	if !ready {
		t.Fatalf("off mode must always emit")
	}
	if len(out) != 3 || out[0] != 1 || out[2] != 3 {
		t.Fatalf("unexpected output %v", out)
	}
}

func TestBufferAverageWaitsForSamples(t *testing.T) {
	b := NewFFTBuffer(BufferAverage, 3)

	if _, ready := b.Process([]units.DB{10}); ready {
		t.Fatalf("emitted after 1 of 3 spokes")
	}
	if _, ready := b.Process([]units.DB{10}); ready {
		t.Fatalf("emitted after 2 of 3 spokes")
	}
	out, ready := b.Process([]units.DB{10})
	if !ready {
		t.Fatalf("no emission after 3 spokes")
	}
	// Identical spokes of v dB give 10·log10(10^(v/20)) = v/2.
	if math.Abs(out[0]-5) > 1e-9 {
		t.Fatalf("average of identical spokes = %f, want 5", out[0])
	}

	// The accumulator restarts after an emission.
	if _, ready := b.Process([]units.DB{10}); ready {
		t.Fatalf("emitted immediately after restart")
	}
}

func TestBufferAverageFormula(t *testing.T) {
	b := NewFFTBuffer(BufferAverage, 2)

	b.Process([]units.DB{20})
	out, ready := b.Process([]units.DB{40})
	if !ready {
		t.Fatalf("no emission after 2 spokes")
	}
	want := 10 * math.Log10((math.Pow(10, 1)+math.Pow(10, 2))/2)
	if math.Abs(out[0]-want) > 1e-9 {
		t.Fatalf("average = %f, want %f", out[0], want)
	}
}

func TestBufferMaxIdempotent(t *testing.T) {
	spoke := []units.DB{5, 40, 12}

	once := NewFFTBuffer(BufferMax, 1)
	single, ready := once.Process(spoke)
	if !ready {
		t.Fatalf("no emission with sample count 1")
	}

	many := NewFFTBuffer(BufferMax, 4)
	var repeated []units.DB
	for i := 0; i < 4; i++ {
		out, ready := many.Process(spoke)
		if i < 3 && ready {
			t.Fatalf("emitted early at spoke %d", i)
		}
		if i == 3 {
			if !ready {
				t.Fatalf("no emission after 4 spokes")
			}
			repeated = out
		}
	}

	for i := range single {
		if single[i] != repeated[i] {
			t.Fatalf("bin %d: once=%f repeated=%f", i, single[i], repeated[i])
		}
	}
}

func TestBufferMaxPicksPerBinMaximum(t *testing.T) {
	b := NewFFTBuffer(BufferMax, 2)
	b.Process([]units.DB{1, 50, 3})
	out, ready := b.Process([]units.DB{9, 2, 30})
	if !ready {
		t.Fatalf("no emission after 2 spokes")
	}
	want := []units.DB{9, 50, 30}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("bin %d: got %f want %f", i, out[i], want[i])
		}
	}
}

func TestBufferProcess8Conversion(t *testing.T) {
	b := NewFFTBuffer(BufferOff, 1)
	out, _ := b.Process8([]uint8{20, 90})
	if out[0] != 10 || out[1] != 45 {
		t.Fatalf("unexpected conversion %v", out)
	}
}
