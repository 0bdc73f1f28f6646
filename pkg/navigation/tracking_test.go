package navigation

import "testing"

func TestRotationCounterSignalsOncePerWrap(t *testing.T) {
	var r RotationCounter

	// A full rotation followed by the wrap back to zero emits exactly
	// one completed-rotation signal.
	signals := 0
	for azi := 0; azi < 5600; azi++ {
		if r.Update(azi) {
			signals++
		}
	}
	if signals != 0 {
		t.Fatalf("signalled %d times before any wrap", signals)
	}
	if !r.Update(0) {
		t.Fatalf("no signal on wrap")
	}
	if r.Rotations() != 1 {
		t.Fatalf("rotation count %d, want 1", r.Rotations())
	}

	// Continuing into the second rotation stays quiet until the next
	// wrap.
	for azi := 1; azi < 5600; azi++ {
		if r.Update(azi) {
			t.Fatalf("spurious signal at azimuth %d", azi)
		}
	}
	if !r.Update(0) {
		t.Fatalf("no signal on second wrap")
	}
	if r.Rotations() != 2 {
		t.Fatalf("rotation count %d, want 2", r.Rotations())
	}
}

func TestSweepTrackerDetectsLoss(t *testing.T) {
	var s SweepTracker

	if lost, _ := s.Update(100); lost {
		t.Fatalf("first update reported loss")
	}
	if lost, _ := s.Update(101); lost {
		t.Fatalf("consecutive counter reported loss")
	}
	lost, prev := s.Update(103)
	if !lost {
		t.Fatalf("missing counter 102 not detected")
	}
	if prev != 101 {
		t.Fatalf("prev = %d, want 101", prev)
	}
}

func TestSweepTrackerWrapsAt16Bits(t *testing.T) {
	var s SweepTracker

	s.Update(65535)
	if lost, _ := s.Update(0); lost {
		t.Fatalf("16-bit wrap reported as loss")
	}
}
