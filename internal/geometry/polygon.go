// Package geometry implements the 2-D polygon and grid math shared by the
// frame transformer (C6) and the placement solver facade (C8): point-in-
// polygon containment, bounding boxes, rotated-rectangle corner derivation,
// and candidate grid generation. Coordinates are carried as r2.Vec, the
// same 2-D vector type the domain's other geometry-heavy code (gonum) uses,
// rather than a bespoke struct.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Polygon is an ordered, non-self-intersecting list of vertices.
type Polygon []r2.Vec

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max r2.Vec
}

// Width returns the box's extent along X.
func (b Box) Width() float64 { return b.Max.X - b.Min.X }

// Depth returns the box's extent along Y (planner Z / venue depth axis).
func (b Box) Depth() float64 { return b.Max.Y - b.Min.Y }

// BoundingBox computes the axis-aligned bounding box of a polygon. Callers
// must ensure len(p) > 0.
func (p Polygon) BoundingBox() Box {
	box := Box{Min: p[0], Max: p[0]}
	for _, v := range p[1:] {
		box.Min.X = math.Min(box.Min.X, v.X)
		box.Min.Y = math.Min(box.Min.Y, v.Y)
		box.Max.X = math.Max(box.Max.X, v.X)
		box.Max.Y = math.Max(box.Max.Y, v.Y)
	}
	return box
}

// Area computes the polygon's unsigned area via the shoelace formula.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	sum := 0.0
	n := len(p)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// Centroid computes the polygon's area-weighted centroid. Falls back to the
// arithmetic mean of vertices for degenerate (zero-area) polygons.
func (p Polygon) Centroid() r2.Vec {
	area := 0.0
	cx, cy := 0.0, 0.0
	n := len(p)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := p[i].X*p[j].Y - p[j].X*p[i].Y
		area += cross
		cx += (p[i].X + p[j].X) * cross
		cy += (p[i].Y + p[j].Y) * cross
	}
	area /= 2
	if math.Abs(area) < 1e-12 {
		var sx, sy float64
		for _, v := range p {
			sx += v.X
			sy += v.Y
		}
		return r2.Vec{X: sx / float64(n), Y: sy / float64(n)}
	}
	return r2.Vec{X: cx / (6 * area), Y: cy / (6 * area)}
}

// Contains reports whether pt lies inside the polygon using a ray-casting
// test (spec §4.8: "point-in-polygon test is ray-casting"). Points exactly
// on an edge may be classified either way; callers sampling a grid treat
// that as acceptable jitter.
func (p Polygon) Contains(pt r2.Vec) bool {
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := p[i], p[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) {
			xIntersect := (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y) + vi.X
			if pt.X < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// Translate returns a new polygon with every vertex shifted by -offset,
// matching the frame transformer's convention of subtracting the ROI
// south-west corner (spec §4.6).
func (p Polygon) Translate(offset r2.Vec) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = r2.Vec{X: v.X - offset.X, Y: v.Y - offset.Y}
	}
	return out
}

// RotatedRectCorners returns the four corners of a rectangle centered at
// center with the given width/depth (full extents, not half-extents) and
// rotation in radians, used to derive an obstacle polygon from a fixture's
// 2-D pose + dimensions (spec §4.8 obstacle-extraction contract).
func RotatedRectCorners(center r2.Vec, width, depth, rotationRad float64) Polygon {
	hw, hd := width/2, depth/2
	local := [4]r2.Vec{
		{X: -hw, Y: -hd},
		{X: hw, Y: -hd},
		{X: hw, Y: hd},
		{X: -hw, Y: hd},
	}
	cosT, sinT := math.Cos(rotationRad), math.Sin(rotationRad)
	out := make(Polygon, 4)
	for i, v := range local {
		rx := v.X*cosT - v.Y*sinT
		ry := v.X*sinT + v.Y*cosT
		out[i] = r2.Vec{X: center.X + rx, Y: center.Y + ry}
	}
	return out
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b r2.Vec) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// AngularDifferenceDeg returns the absolute difference, in [0,180] degrees,
// between the bearing from origin to target and a reference yaw (all in
// degrees), used by the coverage simulation's FOV test (spec §4.8).
func AngularDifferenceDeg(from, to r2.Vec, yawDeg float64) float64 {
	bearing := math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi
	diff := math.Mod(bearing-yawDeg+540, 360) - 180
	return math.Abs(diff)
}
