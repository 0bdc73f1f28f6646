// Package navigation converts raw FFT spokes into detected targets:
// cell-averaging CFAR detection, multi-scan FFT buffering, and
// sub-bin peak resolution.
package navigation

import (
	"fmt"

	"radarlink/pkg/units"
)

// Cell is any sample type CFAR can slide over: raw 8-bit counts, raw
// 16-bit counts, or dB-valued floats.
type Cell interface {
	~uint8 | ~uint16 | ~float64
}

// Window defines one CFAR sliding window.
//
//	T T T T T T T T x x | x x T T T T T T T T
//	^               ^   ^                   ^
//	|               |   cell-under-test     |
//	|               guard cells             |
//	|<----        total window size     --->|
type Window struct {
	Size           units.Bin // total window size, always odd
	GuardCells     units.Bin // guard cells on each side of the CUT
	ThresholdDelta units.DB  // signal level above the local average
}

// NewWindow normalises the window: an even size is bumped to the next
// odd value, and the size never drops below one training cell per
// side.
func NewWindow(size, guardCells units.Bin, delta units.DB) Window {
	w := Window{Size: size, GuardCells: guardCells, ThresholdDelta: delta}
	return w.normalised()
}

func (w Window) normalised() Window {
	const minTrainingCells = 1

	if w.Size%2 == 0 {
		w.Size++
	}
	minSize := 2*w.GuardCells + 2*minTrainingCells + 1
	if w.Size < minSize {
		w.Size = minSize
	}
	return w
}

// Validate reports a configuration error when the window cannot fit
// the processing range.
func (w Window) Validate(rangeSize int) error {
	if w.GuardCells < 0 || w.Size <= 0 {
		return fmt.Errorf("navigation: invalid cfar window %d/%d", w.Size, w.GuardCells)
	}
	if w.Size > rangeSize {
		return fmt.Errorf("navigation: cfar window of %d bins exceeds processing range of %d", w.Size, rangeSize)
	}
	return nil
}

// Range is the half-open bin interval [Start, End) to process.
type Range struct {
	Start units.Bin
	End   units.Bin
}

// NewRange orders the bounds so Start <= End.
func NewRange(first, last units.Bin) Range {
	if first > last {
		first, last = last, first
	}
	return Range{Start: first, End: last}
}

// FullRange covers an entire spoke.
func FullRange(n int) Range {
	return Range{End: n}
}

func (r Range) Size() int {
	return r.End - r.Start
}

// Point is one CFAR detection after bin-to-metre conversion.
type Point struct {
	Range units.Metre
	Power units.DB
}

// RangeFn converts a bin index to metres.
type RangeFn func(units.Bin) units.Metre

// DefaultRangeFn applies the nominal bin size with no gain or
// offset.
func DefaultRangeFn(b units.Bin) units.Metre {
	return units.Metre(b) * units.DefaultBinSize
}

// cellTraits resolves the quantisation of a cell type: raw counts to
// dB, and a dB threshold back to raw counts.
func cellTraits[T Cell]() (toDB func(T) units.DB, fromDB func(units.DB) T) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return func(v T) units.DB { return units.DB(v) * units.DBPerCount8 },
			func(d units.DB) T { return T(d / units.DBPerCount8) }
	case uint16:
		return func(v T) units.DB { return units.DB(v) * units.DBPerCount16 },
			func(d units.DB) T { return T(d / units.DBPerCount16) }
	default:
		return func(v T) units.DB { return units.DB(v) },
			func(d units.DB) T { return T(d) }
	}
}

// bounds slews the window at the edges of the processing range
// so every cell gets a full-width window: a truncated lower training
// half extends the upper half, and vice versa. If both adjustments
// collide the window is clamped to the available range.
func (w Window) bounds(i, start, end units.Bin) (lowerBegin, lowerEnd, upperBegin, upperEnd units.Bin) {
	lowerBegin = i - w.Size/2
	lowerEnd = i - w.GuardCells
	upperBegin = i + w.GuardCells + 1
	upperEnd = i + w.Size/2 + 1

	if lowerBegin < start {
		lowerBegin = start
		upperEnd = lowerBegin + w.Size
	}
	if upperEnd > end {
		upperEnd = end
		lowerBegin = upperEnd - w.Size
	}
	if lowerBegin < start {
		lowerBegin = start
	}
	if lowerEnd < start {
		lowerEnd = start
	}
	if lowerBegin > lowerEnd {
		lowerBegin = lowerEnd
	}
	if upperBegin > upperEnd {
		upperBegin = upperEnd
	}
	return
}

// processCell runs one cell-under-test. The training average is
// accumulated in the cell's raw scale; the cell itself is compared in
// dB, exactly as the reference detector behaves for every cell type.
func processCell[T Cell](data []T, i, start, end units.Bin, w Window, toDB func(T) units.DB) units.DB {
	lowerBegin, lowerEnd, upperBegin, upperEnd := w.bounds(i, start, end)

	var sum float64
	for _, v := range data[lowerBegin:lowerEnd] {
		sum += float64(v)
	}
	for _, v := range data[upperBegin:upperEnd] {
		sum += float64(v)
	}
	elems := (lowerEnd - lowerBegin) + (upperEnd - upperBegin)
	if elems == 0 {
		return 0
	}

	average := sum / float64(elems)
	cellValue := toDB(data[i])
	if cellValue > average+w.ThresholdDelta {
		return cellValue
	}
	return 0
}

// processCellRaw is processCell without the dB conversion: input,
// average and threshold all stay in the cell's raw quantum.
func processCellRaw[T Cell](data []T, i, start, end units.Bin, w Window, threshold T) T {
	lowerBegin, lowerEnd, upperBegin, upperEnd := w.bounds(i, start, end)

	var sum float64
	for _, v := range data[lowerBegin:lowerEnd] {
		sum += float64(v)
	}
	for _, v := range data[upperBegin:upperEnd] {
		sum += float64(v)
	}
	elems := (lowerEnd - lowerBegin) + (upperEnd - upperBegin)
	if elems == 0 {
		return 0
	}

	average := T(sum / float64(elems))
	if data[i] > average+threshold {
		return data[i]
	}
	return 0
}

// Process runs CA-CFAR over the whole spoke and returns a dB-valued
// spoke of the same length: the cell value where the threshold is
// exceeded, zero elsewhere.
func Process[T Cell](data []T, w Window) []units.DB {
	w = w.normalised()
	toDB, _ := cellTraits[T]()

	out := make([]units.DB, len(data))
	for i := range data {
		out[i] = processCell(data, i, 0, len(data), w, toDB)
	}
	return out
}

// ProcessRaw runs CA-CFAR without converting the output: passing
// cells keep the input quantum.
func ProcessRaw[T Cell](data []T, w Window) []T {
	w = w.normalised()
	_, fromDB := cellTraits[T]()
	threshold := fromDB(w.ThresholdDelta)

	out := make([]T, len(data))
	for i := range data {
		out[i] = processCellRaw(data, i, 0, len(data), w, threshold)
	}
	return out
}

// Points returns every detection in the range, converted to metres.
// A nil toMetre uses DefaultRangeFn.
func Points[T Cell](data []T, r Range, w Window, toMetre RangeFn) []Point {
	return FirstNPoints(data, r, w, r.Size(), toMetre)
}

// FirstNPoints returns detections in range order, stopping after
// maxPoints threshold crossings.
func FirstNPoints[T Cell](data []T, r Range, w Window, maxPoints int, toMetre RangeFn) []Point {
	w = w.normalised()
	if toMetre == nil {
		toMetre = DefaultRangeFn
	}
	toDB, _ := cellTraits[T]()

	if r.End > len(data) {
		r.End = len(data)
	}
	if r.Start < 0 {
		r.Start = 0
	}

	var out []Point
	count := 0
	for bin := r.Start; bin < r.End; bin++ {
		power := processCell(data, bin, r.Start, r.End, w, toDB)
		if power > 0 {
			out = append(out, Point{Range: toMetre(bin), Power: power})
			count++
		}
		if count == maxPoints {
			break
		}
	}
	return out
}
