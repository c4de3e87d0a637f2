package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ObstacleGrid marks which cells of a rasterized ROI are blocked by an
// obstacle, for the coverage simulation's line-of-sight test (spec §4.8:
// "no obstacle cell lies on the ray from s to cell"). CellSize is the edge
// length of one grid cell in meters; Origin is the grid's south-west
// corner in the same frame as the points passed to Blocked/LineOfSight.
type ObstacleGrid struct {
	Origin   r2.Vec
	CellSize float64
	Cols     int
	Rows     int
	blocked  []bool
}

// NewObstacleGrid rasterizes the given obstacle polygons into a grid
// covering [origin, origin+(cols,rows)*cellSize).
func NewObstacleGrid(origin r2.Vec, cellSize float64, cols, rows int, obstacles []Polygon) *ObstacleGrid {
	g := &ObstacleGrid{Origin: origin, CellSize: cellSize, Cols: cols, Rows: rows, blocked: make([]bool, cols*rows)}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			center := r2.Vec{
				X: origin.X + (float64(col)+0.5)*cellSize,
				Y: origin.Y + (float64(row)+0.5)*cellSize,
			}
			for _, obstacle := range obstacles {
				if obstacle.Contains(center) {
					g.blocked[row*cols+col] = true
					break
				}
			}
		}
	}
	return g
}

func (g *ObstacleGrid) cellIndex(pt r2.Vec) (int, int, bool) {
	col := int((pt.X - g.Origin.X) / g.CellSize)
	row := int((pt.Y - g.Origin.Y) / g.CellSize)
	if col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
		return 0, 0, false
	}
	return col, row, true
}

// Blocked reports whether the cell containing pt is marked obstructed.
func (g *ObstacleGrid) Blocked(pt r2.Vec) bool {
	col, row, ok := g.cellIndex(pt)
	if !ok {
		return false
	}
	return g.blocked[row*g.Cols+col]
}

// LineOfSight walks a Bresenham-style ray from `from` to `to` in cell-space
// and reports whether every intermediate cell is unobstructed. Endpoints
// themselves are not tested, only the cells strictly between them, matching
// "no obstacle cell lies on the ray from s to cell" (the sensor's own cell
// and the target cell are excluded from the obstruction test).
func (g *ObstacleGrid) LineOfSight(from, to r2.Vec) bool {
	fc, fr, fok := g.cellIndex(from)
	tc, tr, tok := g.cellIndex(to)
	if !fok || !tok {
		return true
	}
	if fc == tc && fr == tr {
		return true
	}

	dx := tc - fc
	dy := tr - fr
	steps := int(math.Max(math.Abs(float64(dx)), math.Abs(float64(dy))))
	if steps == 0 {
		return true
	}
	for i := 1; i < steps; i++ {
		t := float64(i) / float64(steps)
		col := fc + int(math.Round(float64(dx)*t))
		row := fr + int(math.Round(float64(dy)*t))
		if col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
			continue
		}
		if g.blocked[row*g.Cols+col] {
			return false
		}
	}
	return true
}
