package navigation

import (
	"math"

	"radarlink/pkg/units"
)

// BufferMode selects how the FFT buffer combines accumulated spokes.
type BufferMode int

const (
	// BufferOff passes every spoke straight through.
	BufferOff BufferMode = iota
	// BufferAverage emits, per bin, 10·log10 of the mean of
	// 10^(dB/20) over N spokes.
	BufferAverage
	// BufferMax emits the per-bin maximum of N spokes.
	BufferMax
)

// FFTBuffer accumulates spokes and emits a combined spoke once the
// configured sample count has arrived. The caller sees no output
// until then.
type FFTBuffer struct {
	mode     BufferMode
	samples  int
	buffered [][]units.DB
}

func NewFFTBuffer(mode BufferMode, samples int) *FFTBuffer {
	if samples < 1 {
		samples = 1
	}
	return &FFTBuffer{mode: mode, samples: samples}
}

// Process adds one dB-valued spoke. It returns the combined spoke and
// true once the sample count is reached; the accumulator then clears
// and restarts.
func (b *FFTBuffer) Process(spoke []units.DB) ([]units.DB, bool) {
	switch b.mode {
	case BufferOff:
		return spoke, true

	case BufferAverage:
		b.buffered = append(b.buffered, append([]units.DB(nil), spoke...))
		if len(b.buffered) < b.samples {
			return nil, false
		}

		out := make([]units.DB, len(spoke))
		for bin := range out {
			total := 0.0
			for _, s := range b.buffered {
				total += math.Pow(10, s[bin]/20)
			}
			out[bin] = 10 * math.Log10(total/float64(len(b.buffered)))
		}
		b.buffered = nil
		return out, true

	case BufferMax:
		b.buffered = append(b.buffered, append([]units.DB(nil), spoke...))
		if len(b.buffered) < b.samples {
			return nil, false
		}

		out := make([]units.DB, len(spoke))
		for bin := range out {
			max := b.buffered[0][bin]
			for _, s := range b.buffered[1:] {
				if s[bin] > max {
					max = s[bin]
				}
			}
			out[bin] = max
		}
		b.buffered = nil
		return out, true
	}
	return spoke, true
}

// Process8 converts a raw 8-bit spoke to dB and buffers it.
func (b *FFTBuffer) Process8(spoke []uint8) ([]units.DB, bool) {
	converted := make([]units.DB, len(spoke))
	for i, v := range spoke {
		converted[i] = units.FFT8ToDB(v)
	}
	return b.Process(converted)
}
