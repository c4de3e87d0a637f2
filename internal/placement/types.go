// Package placement implements the C8 Placement Solver Facade: it
// normalizes an auto-placement request, dispatches to an external solver
// with an internal greedy fallback, and exposes a separate coverage
// simulation over an already-placed layout (spec §4.8).
package placement

import (
	"github.com/hyperspacefleet/commission-core/internal/geometry"
	"gonum.org/v1/gonum/spatial/r2"
)

// OverlapMode selects how the solver balances single vs. redundant
// coverage across the ROI (spec §4.8).
type OverlapMode string

const (
	OverlapEverywhere  OverlapMode = "everywhere"
	OverlapCriticalOnly OverlapMode = "criticalOnly"
	OverlapPercentTarget OverlapMode = "percentTarget"
)

// Settings carries the tunable parameters of one solve or simulation (spec
// §4.8). Zero values for CandidateSpacing and KRequired mean "use the
// derived default", applied in Settings.normalize.
type Settings struct {
	MountHeightM     float64     `json:"mountHeight"`
	SampleSpacing    float64     `json:"sampleSpacing"`
	CandidateSpacing float64     `json:"candidateSpacing"`
	Keepout          float64     `json:"keepout"`
	OverlapMode      OverlapMode `json:"overlapMode"`
	KRequired        int         `json:"kRequired"`
	OverlapTargetPct float64     `json:"overlapTargetPct"`
	LOSEnabled       bool        `json:"losEnabled"`
	LOSCellSize      float64     `json:"losCellSize"`
	YawStepDeg       float64     `json:"yawStepDeg"`
	MaxSensors       int         `json:"maxSensors"`
	TimeLimitSec     float64     `json:"timeLimit"`
	Seed             int64       `json:"seed"`
}

// normalize applies the request-normalization defaults spec §4.8 names:
// candidateSpacing defaults to 1.4x the sensor's effective radius, and
// kRequired defaults to 1 (single coverage).
func (s Settings) normalize(effectiveRadius float64) Settings {
	out := s
	if out.CandidateSpacing <= 0 {
		out.CandidateSpacing = 1.4 * effectiveRadius
	}
	if out.KRequired < 1 {
		out.KRequired = 1
	}
	if out.LOSCellSize <= 0 {
		out.LOSCellSize = 0.5
	}
	return out
}

// Fixture is a layout obstacle source: either an explicit footprint or a
// 2-D pose plus rectangular dimensions (spec §4.8 obstacle-extraction
// contract).
type Fixture struct {
	Footprint   []r2.Vec
	Center      r2.Vec
	Width       float64
	Depth       float64
	RotationRad float64
}

// IsObstacle reports whether this fixture contributes an obstacle polygon
// at all: an explicit footprint of at least 3 vertices, or a non-degenerate
// rectangular footprint derived from center/dims/rotation.
func (f Fixture) IsObstacle() bool {
	return len(f.Footprint) >= 3 || (f.Width > 0 && f.Depth > 0)
}

// Polygon derives the obstacle polygon for this fixture. Callers must check
// IsObstacle first.
func (f Fixture) Polygon() geometry.Polygon {
	if len(f.Footprint) >= 3 {
		return geometry.Polygon(f.Footprint)
	}
	return geometry.RotatedRectCorners(f.Center, f.Width, f.Depth, f.RotationRad)
}

// obstaclePolygons extracts the obstacle polygon from every fixture that
// qualifies as one (spec §4.8 obstacle-extraction contract).
func obstaclePolygons(fixtures []Fixture) []geometry.Polygon {
	var out []geometry.Polygon
	for _, f := range fixtures {
		if f.IsObstacle() {
			out = append(out, f.Polygon())
		}
	}
	return out
}

// Placement is one sensor's proposed position and yaw, in planner-space
// meters, before frame transformation.
type Placement struct {
	X, Z   float64
	YawDeg float64
}
