package colossus

import (
	"fmt"
	"time"

	"radarlink/pkg/units"
	"radarlink/pkg/wire"
)

const fixedPointScale = 1e6

// Configuration is the radar's operating geometry, sent once on every
// new connection. Range gain and offset travel as 1e-6 fixed point;
// no floating-point field crosses the wire.
type Configuration struct {
	AzimuthSamples uint16
	BinSize        uint32 // units of 0.1 mm
	RangeInBins    uint16
	EncoderSize    uint16
	RotationSpeed  uint16 // mHz
	PacketRate     uint16
	RangeGain      float64
	RangeOffset    float64 // metres
	Features       Features
}

const configurationPayloadSize = 26

// RangeResolution converts the bin size to metres per bin.
func (c Configuration) RangeResolution() units.Metre {
	return units.Metre(c.BinSize) / 10000.0
}

// StepsPerAzimuth is the encoder-count width of one azimuth sample,
// computed in floating point.
func (c Configuration) StepsPerAzimuth() float64 {
	if c.AzimuthSamples == 0 {
		return 0
	}
	return float64(c.EncoderSize) / float64(c.AzimuthSamples)
}

// Encode packs the configuration into a message.
func (c Configuration) Encode() *Message {
	w := wire.NewWriter(configurationPayloadSize)
	w.U16(c.AzimuthSamples)
	w.U32(c.BinSize)
	w.U16(c.RangeInBins)
	w.U16(c.EncoderSize)
	w.U16(c.RotationSpeed)
	w.U16(c.PacketRate)
	w.U32(uint32(c.RangeGain * fixedPointScale))
	w.I32(int32(c.RangeOffset * fixedPointScale))
	w.U32(c.Features.Word())
	return NewMessage(TypeConfiguration, w.Finish())
}

// DecodeConfiguration reads a configuration view from a message.
func DecodeConfiguration(m *Message) (Configuration, error) {
	if m.Type() != TypeConfiguration {
		return Configuration{}, fmt.Errorf("colossus: %s is not a configuration message", m.Type())
	}
	r := wire.NewReader(m.Payload())
	c := Configuration{
		AzimuthSamples: r.U16(),
		BinSize:        r.U32(),
		RangeInBins:    r.U16(),
		EncoderSize:    r.U16(),
		RotationSpeed:  r.U16(),
		PacketRate:     r.U16(),
	}
	c.RangeGain = float64(r.U32()) / fixedPointScale
	c.RangeOffset = float64(r.I32()) / fixedPointScale
	c.Features = FeaturesFromWord(r.U32())
	if err := r.Err(); err != nil {
		return Configuration{}, fmt.Errorf("colossus: decode configuration: %w", err)
	}
	return c, nil
}

// FFTData is one spoke of video data. Data holds the raw cells:
// one byte per bin for fft_data, two big-endian bytes per bin for
// high_precision_fft_data.
type FFTData struct {
	SweepCounter uint16
	Azimuth      uint16
	Seconds      uint32
	SplitSeconds uint32
	Data         []byte
}

const fftHeaderSize = 12

// Encode packs the spoke as 8-bit fft_data.
func (f FFTData) Encode() *Message {
	return f.encodeAs(TypeFFTData)
}

// EncodeHighPrecision packs the spoke as 16-bit video.
func (f FFTData) EncodeHighPrecision() *Message {
	return f.encodeAs(TypeHighPrecisionFFTData)
}

func (f FFTData) encodeAs(t Type) *Message {
	w := wire.NewWriter(fftHeaderSize + len(f.Data))
	w.U16(f.SweepCounter)
	w.U16(f.Azimuth)
	w.U32(f.Seconds)
	w.U32(f.SplitSeconds)
	w.Bytes(f.Data)
	return NewMessage(t, w.Finish())
}

// DecodeFFTData reads an FFT spoke view from a message of either
// precision.
func DecodeFFTData(m *Message) (FFTData, error) {
	if m.Type() != TypeFFTData && m.Type() != TypeHighPrecisionFFTData {
		return FFTData{}, fmt.Errorf("colossus: %s is not an fft message", m.Type())
	}
	r := wire.NewReader(m.Payload())
	f := FFTData{
		SweepCounter: r.U16(),
		Azimuth:      r.U16(),
		Seconds:      r.U32(),
		SplitSeconds: r.U32(),
	}
	f.Data = r.Rest()
	if err := r.Err(); err != nil {
		return FFTData{}, fmt.Errorf("colossus: decode fft: %w", err)
	}
	return f, nil
}

// Timestamp converts the NTP second/fraction pair to wall time.
func (f FFTData) Timestamp() time.Time {
	nanos := uint64(f.SplitSeconds) * uint64(time.Second) >> 32
	return time.Unix(int64(f.Seconds), int64(nanos)).UTC()
}

// Cells8 returns the spoke as 8-bit raw counts.
func (f FFTData) Cells8() []uint8 {
	return f.Data
}

// Cells16 decodes the spoke as big-endian 16-bit raw counts.
func (f FFTData) Cells16() []uint16 {
	out := make([]uint16, len(f.Data)/2)
	for i := range out {
		out[i] = uint16(f.Data[2*i])<<8 | uint16(f.Data[2*i+1])
	}
	return out
}

// ToDB converts the raw cells to decibels using the quantum implied
// by the message precision.
func (f FFTData) ToDB(highPrecision bool) []units.DB {
	if highPrecision {
		cells := f.Cells16()
		out := make([]units.DB, len(cells))
		for i, c := range cells {
			out[i] = units.FFT16ToDB(c)
		}
		return out
	}
	out := make([]units.DB, len(f.Data))
	for i, c := range f.Data {
		out[i] = units.FFT8ToDB(c)
	}
	return out
}

// NavPoint is one on-radar detection within a navigation spoke.
type NavPoint struct {
	Range units.Metre
	Power units.DB
}

// NavigationData is one spoke of on-radar point extraction. Ranges
// travel as 0.1 mm counts, powers as centi-dB.
type NavigationData struct {
	Azimuth      uint16
	Seconds      uint32
	SplitSeconds uint32
	Points       []NavPoint
}

// Encode packs the spoke as navigation_data.
func (n NavigationData) Encode() *Message {
	w := wire.NewWriter(10 + 6*len(n.Points))
	w.U16(n.Azimuth)
	w.U32(n.Seconds)
	w.U32(n.SplitSeconds)
	for _, p := range n.Points {
		w.U32(uint32(p.Range * 10000.0))
		w.U16(uint16(p.Power * 100.0))
	}
	return NewMessage(TypeNavigationData, w.Finish())
}

// DecodeNavigationData reads a navigation spoke view from a message.
func DecodeNavigationData(m *Message) (NavigationData, error) {
	if m.Type() != TypeNavigationData {
		return NavigationData{}, fmt.Errorf("colossus: %s is not a navigation message", m.Type())
	}
	r := wire.NewReader(m.Payload())
	n := NavigationData{
		Azimuth:      r.U16(),
		Seconds:      r.U32(),
		SplitSeconds: r.U32(),
	}
	for r.Remaining() >= 6 {
		rng := r.U32()
		pwr := r.U16()
		n.Points = append(n.Points, NavPoint{
			Range: units.Metre(rng) / 10000.0,
			Power: units.DB(pwr) / 100.0,
		})
	}
	if err := r.Err(); err != nil {
		return NavigationData{}, fmt.Errorf("colossus: decode navigation data: %w", err)
	}
	return n, nil
}

// NavigationConfig carries the radar-suggested CFAR parameters.
// Threshold travels as centi-dB.
type NavigationConfig struct {
	BinsToOperateOn uint16
	MinBin          uint16
	Threshold       units.DB
	MaxPeaks        uint16
}

const navigationConfigPayloadSize = 8

// Encode packs the navigation configuration.
func (n NavigationConfig) Encode() *Message {
	w := wire.NewWriter(navigationConfigPayloadSize)
	w.U16(n.BinsToOperateOn)
	w.U16(n.MinBin)
	w.U16(uint16(n.Threshold * 100.0))
	w.U16(n.MaxPeaks)
	return NewMessage(TypeNavigationConfig, w.Finish())
}

// DecodeNavigationConfig reads the navigation configuration view.
func DecodeNavigationConfig(m *Message) (NavigationConfig, error) {
	if m.Type() != TypeNavigationConfig {
		return NavigationConfig{}, fmt.Errorf("colossus: %s is not a navigation configuration", m.Type())
	}
	r := wire.NewReader(m.Payload())
	n := NavigationConfig{
		BinsToOperateOn: r.U16(),
		MinBin:          r.U16(),
	}
	n.Threshold = units.DB(r.U16()) / 100.0
	n.MaxPeaks = r.U16()
	if err := r.Err(); err != nil {
		return NavigationConfig{}, fmt.Errorf("colossus: decode navigation configuration: %w", err)
	}
	return n, nil
}
