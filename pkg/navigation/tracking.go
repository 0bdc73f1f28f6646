package navigation

import "radarlink/pkg/units"

// RotationCounter detects completed rotations from the azimuth
// sequence of incoming spokes. A rotation completes when the azimuth
// wraps back below its predecessor.
type RotationCounter struct {
	prev      units.Azimuth
	seenFirst bool
	count     int
}

// Update feeds one azimuth and reports whether this spoke completed a
// rotation.
func (r *RotationCounter) Update(azimuth units.Azimuth) bool {
	if !r.seenFirst {
		r.seenFirst = true
		r.prev = azimuth
		return false
	}

	completed := azimuth < r.prev
	r.prev = azimuth
	if completed {
		r.count++
	}
	return completed
}

// Rotations reports how many completed rotations have been seen.
func (r *RotationCounter) Rotations() int {
	return r.count
}

// SweepTracker detects lost packets from the sweep counter carried on
// every FFT spoke. The counter increments by one per spoke and wraps
// at 2^16.
type SweepTracker struct {
	prev      uint16
	seenFirst bool
}

// Update feeds one sweep counter. It reports lost=true when the
// counter did not follow its predecessor, along with that
// predecessor for logging.
func (s *SweepTracker) Update(counter uint16) (lost bool, prev uint16) {
	if !s.seenFirst {
		s.seenFirst = true
		s.prev = counter
		return false, counter
	}

	prev = s.prev
	lost = counter != s.prev+1
	s.prev = counter
	return lost, prev
}
