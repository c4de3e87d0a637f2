// Package frame implements the C6 Frame Transformer: it normalizes planner-
// space planned-mount poses and ROI vertices to the venue-local frame the
// edge runtime expects, per spec §4.6.
package frame

import (
	"math"

	"github.com/hyperspacefleet/commission-core/internal/store"
	"gonum.org/v1/gonum/spatial/r2"
)

const radToDeg = 180 / math.Pi

// roiPadding is applied to the planned-mount bounding box when it is used as
// a fallback origin in place of an explicit ROI (spec §4.6 step 1).
const roiPadding = 10.0

// Offset is the planner-to-venue-local translation applied to every
// coordinate in a deployment bundle. It is recorded in the bundle so the
// inverse transform is recoverable offline (spec §4.6 step 4).
type Offset struct {
	X, Z float64
}

// Mount is a planned mount's pose expressed in the venue-local frame.
type Mount struct {
	ID      string
	X, Y, Z float64
	YawDeg  float64
	// DWG carries the original planner-space (x,z) position, emitted
	// alongside the transformed pose so the deployment bundle can report
	// dwgCoordinates (spec §4.7).
	DWGX, DWGZ float64
}

// Result is the complete transform output for a layout: the offset used,
// every mount in venue-local coordinates, the transformed ROI polygon (nil
// if none was defined), and the venue's derived width/depth.
type Result struct {
	Offset      Offset
	Mounts      []Mount
	ROIVertices []r2.Vec
	VenueWidth  float64
	VenueDepth  float64
}

// Transform computes the venue-local frame for a layout's planned mounts and
// ROI polygon, applying the fallback chain from spec §4.6 step 1 when no
// explicit ROI is defined: ROI bounding box → planned-mount bounding box
// padded by 10 m → venue dimensions. There is no separately persisted
// "layout bounds" entity in this data model (spec §3 defines no Layout
// aggregate beyond the layoutId foreign key on PlannedMount/RegionOfInterest),
// so the planned-mount-bbox step stands in for both the second and third
// links of the spec's four-step chain; see DESIGN.md.
func Transform(venue *store.Venue, mounts []*store.PlannedMount, roi []r2.Vec) Result {
	offset := computeOffset(venue, mounts, roi)

	out := Result{Offset: offset}
	out.Mounts = make([]Mount, 0, len(mounts))
	for _, m := range mounts {
		out.Mounts = append(out.Mounts, Mount{
			ID:     m.ID,
			X:      m.X - offset.X,
			Y:      m.MountHeightM,
			Z:      m.Z - offset.Z,
			YawDeg: m.YawRad * radToDeg,
			DWGX:   m.X,
			DWGZ:   m.Z,
		})
	}

	if len(roi) > 0 {
		out.ROIVertices = make([]r2.Vec, len(roi))
		for i, v := range roi {
			out.ROIVertices[i] = r2.Vec{X: v.X - offset.X, Y: v.Y - offset.Z}
		}
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, v := range out.ROIVertices {
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minZ, maxZ = math.Min(minZ, v.Y), math.Max(maxZ, v.Y)
	}
	if len(out.ROIVertices) == 0 {
		// No ROI: venue dimensions come straight from the venue record.
		out.VenueWidth = venue.WidthM
		out.VenueDepth = venue.DepthM
		return out
	}
	out.VenueWidth = maxX - minX
	out.VenueDepth = maxZ - minZ
	return out
}

// computeOffset implements spec §4.6 step 1's fallback chain.
func computeOffset(venue *store.Venue, mounts []*store.PlannedMount, roi []r2.Vec) Offset {
	if len(roi) > 0 {
		minX, minZ := roi[0].X, roi[0].Y
		for _, v := range roi[1:] {
			minX = math.Min(minX, v.X)
			minZ = math.Min(minZ, v.Y)
		}
		return Offset{X: minX, Z: minZ}
	}

	if len(mounts) > 0 {
		minX, minZ := mounts[0].X, mounts[0].Z
		for _, m := range mounts[1:] {
			minX = math.Min(minX, m.X)
			minZ = math.Min(minZ, m.Z)
		}
		return Offset{X: minX - roiPadding, Z: minZ - roiPadding}
	}

	return Offset{X: 0, Z: 0}
}
