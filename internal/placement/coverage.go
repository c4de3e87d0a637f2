package placement

import (
	"math"

	"github.com/hyperspacefleet/commission-core/internal/geometry"
	"gonum.org/v1/gonum/spatial/r2"
)

// SensorPose is one placed sensor's position, yaw, and model parameters, as
// used by the coverage simulation (a separate operation from AutoPlace,
// run against an already-placed layout per spec §4.8).
type SensorPose struct {
	Position        r2.Vec
	YawDeg          float64
	HFOVDeg         float64
	EffectiveRadius float64
}

// CoverageResult is the outcome of simulating coverage over a sampled grid
// of cells inside the ROI.
type CoverageResult struct {
	CoveragePct  float64
	KCoveragePct float64
}

// Simulate samples cells on a grid inside roi at sampleSpacing and reports
// the fraction covered by at least one sensor (CoveragePct) and by at least
// kRequired sensors (KCoveragePct), per spec §4.8's coverage invariant:
// a cell marked by an obstacle is never covered; a cell is covered by
// sensor s iff it is within range, within the sensor's horizontal field of
// view (or the sensor is omnidirectional), and — when losEnabled — has an
// unobstructed line of sight to s.
func Simulate(roi geometry.Polygon, obstacles []geometry.Polygon, sensors []SensorPose, sampleSpacing float64, kRequired int, losEnabled bool, losCellSize float64) CoverageResult {
	cells := geometry.CandidateGrid(roi, sampleSpacing)
	if len(cells) == 0 {
		return CoverageResult{}
	}

	var grid *geometry.ObstacleGrid
	if losEnabled {
		grid = buildObstacleGrid(roi, obstacles, losCellSize)
	}

	covered, kCovered := 0, 0
	for _, cell := range cells {
		if cellBlocked(cell, obstacles) {
			continue
		}
		count := 0
		for _, s := range sensors {
			if coversCell(cell, s, grid) {
				count++
			}
		}
		if count >= 1 {
			covered++
		}
		if count >= kRequired {
			kCovered++
		}
	}

	total := float64(len(cells))
	return CoverageResult{
		CoveragePct:  100 * float64(covered) / total,
		KCoveragePct: 100 * float64(kCovered) / total,
	}
}

func cellBlocked(cell r2.Vec, obstacles []geometry.Polygon) bool {
	for _, obs := range obstacles {
		if obs.Contains(cell) {
			return true
		}
	}
	return false
}

func coversCell(cell r2.Vec, s SensorPose, grid *geometry.ObstacleGrid) bool {
	if geometry.Distance(cell, s.Position) > s.EffectiveRadius {
		return false
	}
	if s.HFOVDeg < 360 {
		if geometry.AngularDifferenceDeg(s.Position, cell, s.YawDeg) > s.HFOVDeg/2 {
			return false
		}
	}
	if grid != nil && !grid.LineOfSight(s.Position, cell) {
		return false
	}
	return true
}

// buildObstacleGrid rasterizes the ROI's bounding box at cellSize
// resolution for the line-of-sight test.
func buildObstacleGrid(roi geometry.Polygon, obstacles []geometry.Polygon, cellSize float64) *geometry.ObstacleGrid {
	box := roi.BoundingBox()
	cols := int(math.Ceil(box.Width()/cellSize)) + 1
	rows := int(math.Ceil(box.Depth()/cellSize)) + 1
	return geometry.NewObstacleGrid(box.Min, cellSize, cols, rows, obstacles)
}
