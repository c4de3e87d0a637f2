package placement

import (
	"math"

	"github.com/hyperspacefleet/commission-core/internal/geometry"
)

// greedyPlace implements the internal fallback placement algorithm (spec
// §4.8 step 2): sample a candidate grid inside the ROI, estimate how many
// sensors are needed for kRequired-coverage, and select that many
// candidates by even-stride indexing. If the ROI admits zero grid cells
// (e.g. it is smaller than one spacing cell), one sensor is placed at the
// polygon centroid instead.
func greedyPlace(roi geometry.Polygon, effectiveRadius float64, settings Settings) ([]Placement, []string) {
	var warnings []string

	candidates := geometry.CandidateGrid(roi, settings.CandidateSpacing)
	if len(candidates) == 0 {
		warnings = append(warnings, "ROI admits zero grid cells at the configured spacing; placing one sensor at the centroid")
		c := roi.Centroid()
		return []Placement{{X: c.X, Z: c.Y, YawDeg: 0}}, warnings
	}

	roiArea := roi.Area()
	target := math.Ceil(roiArea * float64(settings.KRequired) / (math.Pi * effectiveRadius * effectiveRadius))

	maxSensors := settings.MaxSensors
	if maxSensors <= 0 {
		maxSensors = len(candidates)
	}
	targetCount := clampInt(int(target), 1, minInt(maxSensors, len(candidates)))

	selected := geometry.EvenStrideSelect(candidates, targetCount)
	placements := make([]Placement, 0, len(selected))
	for _, c := range selected {
		placements = append(placements, Placement{X: c.X, Z: c.Y, YawDeg: 0})
	}
	return placements, warnings
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
