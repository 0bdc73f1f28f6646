package navigation

import (
	"fmt"
	"math"

	"radarlink/pkg/active"
	"radarlink/pkg/colossus"
	"radarlink/pkg/units"
)

// SubresolutionMode selects how a peak's position is interpolated
// between bins.
type SubresolutionMode int

const (
	CurveFit SubresolutionMode = iota
	CentreOfMass
	CentreOfMass2D
)

// PeakMode selects which cell of a processed spoke counts as the
// peak.
type PeakMode int

const (
	// PeakMax picks the maximum value in the processing range.
	PeakMax PeakMode = iota
	// PeakFirst picks the first local peak scanning out from the
	// minimum bin.
	PeakFirst
)

// Target is one detected object, in polar radar coordinates.
type Target struct {
	Bearing float64     // degrees in [0, 360)
	Range   units.Metre // metres
	Power   units.DB
}

// maxFitBins bounds the curve-fit window.
const maxFitBins = 15

// PeakFinder resolves CFAR-processed spokes into targets on its own
// worker. Configure must succeed before FindPeaks delivers anything.
type PeakFinder struct {
	worker *active.Object

	rangeGain       float64
	rangeOffset     units.Metre
	rangeResolution units.Metre
	minRange        units.Metre
	maxRange        units.Metre

	azimuthSamples  int
	rangeInBins     int
	stepsPerAzimuth float64
	minBin          units.Bin
	maxPeaks        int

	mode     SubresolutionMode
	peakMode PeakMode

	targetCallback func(Target)

	// Two-rotation accumulator for the 2-D centre-of-mass mode.
	rotationData [][]units.DB
	lastAzimuth  int
	rotations    int

	configured bool
}

func NewPeakFinder() *PeakFinder {
	p := &PeakFinder{}
	p.worker = active.New("cfar-peak-finder")
	return p
}

// Configure installs the radar geometry and the peak policy. It
// returns a configuration error when the options contradict the
// radar's geometry; no processing happens until a Configure succeeds.
func (p *PeakFinder) Configure(
	cfg colossus.Configuration,
	minBin units.Bin,
	maxPeaks int,
	mode SubresolutionMode,
	peakMode PeakMode,
) error {
	if cfg.AzimuthSamples == 0 || cfg.RangeInBins == 0 {
		return fmt.Errorf("navigation: peak finder needs a radar configuration")
	}
	if minBin < 0 || minBin >= int(cfg.RangeInBins) {
		return fmt.Errorf("navigation: minimum bin %d outside [0, %d)", minBin, cfg.RangeInBins)
	}
	if maxPeaks < 1 {
		return fmt.Errorf("navigation: max peaks %d must be at least 1", maxPeaks)
	}

	p.rangeInBins = int(cfg.RangeInBins)
	p.rangeGain = cfg.RangeGain
	p.rangeOffset = cfg.RangeOffset
	p.rangeResolution = cfg.RangeResolution()

	p.minBin = minBin
	p.maxPeaks = maxPeaks
	p.minRange = float64(minBin) * p.rangeResolution
	p.maxRange = float64(p.rangeInBins) * p.rangeResolution
	p.azimuthSamples = int(cfg.AzimuthSamples)
	p.stepsPerAzimuth = cfg.StepsPerAzimuth()

	p.mode = mode
	p.peakMode = peakMode

	if mode == CentreOfMass2D {
		p.rotationData = make([][]units.DB, p.azimuthSamples)
	}
	p.lastAzimuth = 0
	p.rotations = 0
	p.configured = true
	return nil
}

// SetTargetCallback installs the sink for resolved targets.
func (p *PeakFinder) SetTargetCallback(fn func(Target)) {
	p.targetCallback = fn
}

func (p *PeakFinder) Start() {
	p.worker.Start()
}

func (p *PeakFinder) Stop() {
	p.worker.Stop()
	p.worker.Join()
}

// FindPeaks enqueues one CFAR-processed spoke for resolution. The
// slice is owned by the peak finder from this point.
func (p *PeakFinder) FindPeaks(azimuth units.Azimuth, cfarData []units.DB) {
	_ = p.worker.AsyncCall(func() {
		p.processData(azimuth, cfarData)
	})
}

func (p *PeakFinder) processData(aziIdx units.Azimuth, cfarData []units.DB) {
	if !p.configured {
		return
	}

	// Contoured data may arrive short; pad to the radar's range.
	resized := cfarData
	if len(resized) < p.rangeInBins {
		resized = append(append([]units.DB(nil), cfarData...), make([]units.DB, p.rangeInBins-len(cfarData))...)
	} else if len(resized) > p.rangeInBins {
		resized = resized[:p.rangeInBins]
	}

	peakBin := p.selectPeak(resized, p.minBin)
	if resized[peakBin] == 0 && p.mode != CentreOfMass2D {
		return
	}

	// Walk outward from the peak until the value falls to zero on
	// each side; that span is the sub-resolution window.
	forward := peakBin
	for forward < len(resized)-1 && resized[forward+1] > 0 {
		forward++
	}
	reverse := peakBin
	for reverse >= p.minBin+1 && resized[reverse-1] > 0 {
		reverse--
	}
	windowSize := forward - reverse

	switch p.mode {
	case CurveFit:
		resolved := quadraticFit(resized, peakBin, windowSize)
		p.sendTarget(resolved, float64(aziIdx), resized[peakBin])

	case CentreOfMass:
		window := resized[reverse : reverse+windowSize]
		resolved := float64(reverse) + centreOfMass(window)
		p.sendTarget(resolved, float64(aziIdx), resized[peakBin])

	case CentreOfMass2D:
		p.accumulateRotation(aziIdx, resized)
	}
}

// accumulateRotation collects per-azimuth reduced spokes, and runs
// the shape finder once two full rotations have been seen. The very
// first rotation is discarded by construction.
func (p *PeakFinder) accumulateRotation(aziIdx units.Azimuth, resized []units.DB) {
	if aziIdx < 0 || aziIdx >= len(p.rotationData) {
		return
	}
	if aziIdx < p.lastAzimuth {
		p.rotations++
		if p.rotations >= 2 {
			p.findShapes()
		}
	}

	if p.rotations >= 1 {
		reduced := make([]units.DB, len(resized))
		peaks := 0
		for i := p.minBin; i < len(resized); i++ {
			if resized[i] == 0 {
				continue
			}
			reduced[i] = resized[i]
			peaks++
			if peaks >= p.maxPeaks {
				break
			}
		}
		p.rotationData[aziIdx] = reduced
	}

	p.lastAzimuth = aziIdx
}

func (p *PeakFinder) findShapes() {
	centres := findShapeCentres(p.rotationData, p.minBin)
	for _, c := range centres {
		p.sendTarget(c.Bin, c.Azimuth, c.Power)
	}
}

// selectPeak picks the peak bin in [minBin, len) per the peak mode.
func (p *PeakFinder) selectPeak(data []units.DB, minBin units.Bin) units.Bin {
	switch p.peakMode {
	case PeakFirst:
		first := -1
		for i := minBin; i < len(data); i++ {
			if data[i] > 0 {
				first = i
				break
			}
		}
		if first < 0 {
			return len(data) - 1
		}
		// Climb while still rising; the first non-increasing
		// neighbour marks the local peak.
		for i := first; i < len(data)-1; i++ {
			if data[i+1] > data[i] {
				continue
			}
			return i
		}
		return len(data) - 1

	default: // PeakMax
		max := minBin
		for i := minBin; i < len(data); i++ {
			if data[i] > data[max] {
				max = i
			}
		}
		return max
	}
}

// sendTarget converts a resolved (bin, azimuth) pair to polar
// coordinates and delivers it, silently dropping targets outside the
// configured range window.
func (p *PeakFinder) sendTarget(resolvedBin, resolvedAzimuth float64, power units.DB) {
	rng := resolvedBin*p.rangeGain*p.rangeResolution + p.rangeOffset
	bearing := math.Mod(resolvedAzimuth*360.0/float64(p.azimuthSamples)+360.0, 360.0)

	if math.IsInf(rng, 0) || math.IsNaN(rng) || rng < p.minRange || rng > p.maxRange {
		return
	}
	if p.targetCallback != nil {
		p.targetCallback(Target{Bearing: bearing, Range: rng, Power: power})
	}
}

// centreOfMass returns the first moment of the window, relative to
// its start.
func centreOfMass(window []units.DB) float64 {
	var total, weighted float64
	for i, v := range window {
		total += v
		weighted += float64(i) * v
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// quadraticFit fits y = a + b·x + c·x² to the window around the peak
// and returns the vertex abscissa in bin coordinates. The window is
// forced odd and at least 5 bins, capped at maxFitBins.
func quadraticFit(data []units.DB, peakBin units.Bin, windowSize int) float64 {
	if windowSize == 0 {
		return float64(peakBin)
	}
	if windowSize < 5 {
		windowSize = 5
	}
	if windowSize%2 == 0 {
		windowSize++
	}
	if windowSize > maxFitBins {
		windowSize = maxFitBins
	}

	offset := (windowSize - 1) / 2
	startBin := peakBin - offset
	if startBin < 0 {
		startBin = 0
	}
	if startBin+windowSize > len(data) {
		startBin = len(data) - windowSize
		if startBin < 0 {
			return float64(peakBin)
		}
	}

	// Least-squares normal equations over x = -offset..offset
	// shifted to the window's position.
	var sx, sx2, sx3, sx4 float64
	var sy, sxy, sx2y float64
	for i := 0; i < windowSize; i++ {
		x := float64(i - (peakBin - startBin))
		y := data[startBin+i]
		x2 := x * x
		sx += x
		sx2 += x2
		sx3 += x2 * x
		sx4 += x2 * x2
		sy += y
		sxy += x * y
		sx2y += x2 * y
	}

	// Solve the 3x3 system for b and c by elimination.
	a := [3][4]float64{
		{float64(windowSize), sx, sx2, sy},
		{sx, sx2, sx3, sxy},
		{sx2, sx3, sx4, sx2y},
	}
	for col := 0; col < 2; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		a[col], a[pivot] = a[pivot], a[col]
		if a[col][col] == 0 {
			return float64(peakBin)
		}
		for row := col + 1; row < 3; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < 4; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}
	if a[2][2] == 0 {
		return float64(peakBin)
	}
	c := a[2][3] / a[2][2]
	if c == 0 {
		return float64(peakBin)
	}
	b := (a[1][3] - a[1][2]*c) / a[1][1]

	return -b/(2*c) + float64(peakBin)
}
