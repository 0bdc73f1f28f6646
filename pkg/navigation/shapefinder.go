package navigation

import "radarlink/pkg/units"

// ShapeCentre is the 2-D centroid of one connected cluster of
// non-zero cells across a rotation of spokes.
type ShapeCentre struct {
	Bin     float64
	Azimuth float64
	Power   units.DB
}

// findShapeCentres clusters non-zero cells across azimuths and
// returns one centre per connected shape at its power-weighted
// centroid. Connectivity is 4-way in (azimuth, bin) space, with the
// azimuth axis wrapping at the end of the rotation.
func findShapeCentres(rotation [][]units.DB, minBin units.Bin) []ShapeCentre {
	azimuths := len(rotation)
	if azimuths == 0 {
		return nil
	}

	visited := make([]map[int]bool, azimuths)
	for i := range visited {
		visited[i] = make(map[int]bool)
	}

	cellAt := func(azi, bin int) units.DB {
		spoke := rotation[azi]
		if bin < minBin || bin >= len(spoke) {
			return 0
		}
		return spoke[bin]
	}

	var centres []ShapeCentre
	for azi := 0; azi < azimuths; azi++ {
		for bin := minBin; bin < len(rotation[azi]); bin++ {
			if cellAt(azi, bin) == 0 || visited[azi][bin] {
				continue
			}

			// Flood-fill one shape. Azimuths are tracked unwrapped
			// relative to the seed so a shape spanning the rotation
			// boundary still gets a sensible centroid.
			type cell struct{ azi, unwrapped, bin int }
			stack := []cell{{azi, azi, bin}}
			visited[azi][bin] = true

			var totalPower, binMoment, aziMoment float64
			var maxPower units.DB

			for len(stack) > 0 {
				c := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				v := cellAt(c.azi, c.bin)
				totalPower += v
				binMoment += float64(c.bin) * v
				aziMoment += float64(c.unwrapped) * v
				if v > maxPower {
					maxPower = v
				}

				neighbours := []cell{
					{(c.azi + 1) % azimuths, c.unwrapped + 1, c.bin},
					{(c.azi - 1 + azimuths) % azimuths, c.unwrapped - 1, c.bin},
					{c.azi, c.unwrapped, c.bin + 1},
					{c.azi, c.unwrapped, c.bin - 1},
				}
				for _, n := range neighbours {
					if cellAt(n.azi, n.bin) == 0 || visited[n.azi][n.bin] {
						continue
					}
					visited[n.azi][n.bin] = true
					stack = append(stack, n)
				}
			}

			if totalPower == 0 {
				continue
			}
			aziCentre := aziMoment / totalPower
			for aziCentre < 0 {
				aziCentre += float64(azimuths)
			}
			for aziCentre >= float64(azimuths) {
				aziCentre -= float64(azimuths)
			}
			centres = append(centres, ShapeCentre{
				Bin:     binMoment / totalPower,
				Azimuth: aziCentre,
				Power:   maxPower,
			})
		}
	}
	return centres
}
