// Package units defines the measurement types shared by the protocol
// codecs and the navigation core: range bins, azimuth indices, dB
// power levels and the fixed-point FFT quanta used on the wire.
package units

// Bin is an index along the range axis of one spoke.
type Bin = int

// Azimuth is an angular spoke index in [0, azimuth_samples).
type Azimuth = int

// DB is a power level in decibels.
type DB = float64

// Metre is a range in metres.
type Metre = float64

const (
	// DBPerCount8 is the quantum of an 8-bit FFT cell.
	DBPerCount8 = 0.5

	// 16-bit FFT data shares the 8-bit dynamic range (96.5 dB) but a
	// full-scale raw value of 141.5, so raw counts are rescaled.
	fullScale16 = 141.5
	maxDB16     = 96.5

	// DBPerCount16 is the quantum of a 16-bit FFT cell.
	DBPerCount16 = maxDB16 / fullScale16
)

// FFT8ToDB converts one 8-bit FFT cell to decibels.
func FFT8ToDB(raw uint8) DB {
	return DB(raw) * DBPerCount8
}

// FFT8FromDB converts decibels to an 8-bit raw count, truncating
// toward zero.
func FFT8FromDB(power DB) uint8 {
	return uint8(power / DBPerCount8)
}

// FFT16ToDB converts one 16-bit FFT cell to decibels.
func FFT16ToDB(raw uint16) DB {
	return DB(raw) * DBPerCount16
}

// FFT16FromDB converts decibels to a 16-bit raw count, truncating
// toward zero.
func FFT16FromDB(power DB) uint16 {
	return uint16(power / DBPerCount16)
}

// DefaultBinSize is the bin-to-metre factor used when no radar
// configuration is available.
const DefaultBinSize Metre = 0.175238
