package geometry

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// CandidateGrid samples candidate sensor-mount centers on an evenly spaced
// grid inside the polygon's bounding box, filtered to points the polygon
// actually contains (spec §4.8: "Sample candidate centers on a grid inside
// the ROI polygon"). spacing must be positive. A bounding box narrower
// than one spacing on either axis admits no grid cells and yields nil.
func CandidateGrid(poly Polygon, spacing float64) []r2.Vec {
	if len(poly) < 3 || spacing <= 0 {
		return nil
	}
	box := poly.BoundingBox()

	nx := int(box.Width()/spacing) + 1
	ny := int(box.Depth()/spacing) + 1
	if nx < 2 || ny < 2 {
		return nil
	}

	// floats.Span lays out nx (resp. ny) evenly spaced samples across the
	// bounding box's extent on each axis, inclusive of both ends; this is
	// the same helper the teacher's analysis tooling uses to build sample
	// axes for plots.
	xs := make([]float64, nx)
	floats.Span(xs, box.Min.X, box.Max.X)
	ys := make([]float64, ny)
	floats.Span(ys, box.Min.Y, box.Max.Y)

	var out []r2.Vec
	for _, y := range ys {
		for _, x := range xs {
			pt := r2.Vec{X: x, Y: y}
			if poly.Contains(pt) {
				out = append(out, pt)
			}
		}
	}
	return out
}

// EvenStrideSelect picks count items from candidates using an even-stride
// index walk (spec §4.8: "Select targetCount candidates by even-stride
// indexing"). If count >= len(candidates), every candidate is returned.
func EvenStrideSelect(candidates []r2.Vec, count int) []r2.Vec {
	n := len(candidates)
	if count <= 0 || n == 0 {
		return nil
	}
	if count >= n {
		return candidates
	}
	out := make([]r2.Vec, 0, count)
	stride := float64(n) / float64(count)
	for i := 0; i < count; i++ {
		idx := int(float64(i) * stride)
		if idx >= n {
			idx = n - 1
		}
		out = append(out, candidates[idx])
	}
	return out
}
