package api

import (
	"encoding/json"
	"net/http"

	"github.com/hyperspacefleet/commission-core/internal/geometry"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/placement"
	"github.com/hyperspacefleet/commission-core/internal/store"
	"gonum.org/v1/gonum/spatial/r2"
)

// listPlacements serves GET /placements (spec §6): the planned mounts and
// region of interest for a venue's layout.
func (s *Server) listPlacements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	venueID, layoutID := q.Get("venueId"), q.Get("layoutId")
	if venueID == "" || layoutID == "" {
		httputil.BadRequest(w, "venueId and layoutId are required")
		return
	}
	mounts, err := s.mounts.ListByLayout(venueID, layoutID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	roi, err := s.rois.Get(venueID, layoutID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"mounts": mounts,
		"roi":    roi,
	})
}

// fixtureDTO is the wire shape of a placement.Fixture (spec §4.8 obstacle-
// extraction contract): either an explicit footprint or a center/dims/
// rotation rectangle.
type fixtureDTO struct {
	Footprint   []r2.Vec `json:"footprint"`
	Center      r2.Vec   `json:"center"`
	Width       float64  `json:"width"`
	Depth       float64  `json:"depth"`
	RotationRad float64  `json:"rotationRad"`
}

func (f fixtureDTO) toFixture() placement.Fixture {
	return placement.Fixture{
		Footprint:   f.Footprint,
		Center:      f.Center,
		Width:       f.Width,
		Depth:       f.Depth,
		RotationRad: f.RotationRad,
	}
}

// sensorModelDTO is the wire shape of a store.SensorModel for request
// bodies that embed one inline rather than referencing a catalog ID.
type sensorModelDTO struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	HFOVDeg  float64 `json:"hfovDeg"`
	VFOVDeg  float64 `json:"vfovDeg"`
	RangeM   float64 `json:"rangeM"`
	DomeMode bool    `json:"domeMode"`
}

// autoPlace serves POST /autoplace (spec §6/§4.8): run the solver (external
// with greedy fallback) and persist the result as the layout's new
// auto-sourced mounts. A degenerate ROI or a zero effective radius answers
// 400; an unrecoverable failure such as a storage error answers 500.
func (s *Server) autoPlace(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VenueID  string         `json:"venueId"`
		LayoutID string         `json:"layoutId"`
		ROI      []r2.Vec       `json:"roiPolygon"`
		Fixtures []fixtureDTO   `json:"fixtures"`
		Model    sensorModelDTO `json:"model"`
		Settings placement.Settings `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if body.VenueID == "" || body.LayoutID == "" {
		httputil.BadRequest(w, "venueId and layoutId are required")
		return
	}

	fixtures := make([]placement.Fixture, 0, len(body.Fixtures))
	for _, f := range body.Fixtures {
		fixtures = append(fixtures, f.toFixture())
	}

	req := placement.Request{
		VenueID:  body.VenueID,
		LayoutID: body.LayoutID,
		ROI:      body.ROI,
		Fixtures: fixtures,
		Model: store.SensorModel{
			ID:       body.Model.ID,
			Label:    body.Model.Label,
			HFOVDeg:  body.Model.HFOVDeg,
			VFOVDeg:  body.Model.VFOVDeg,
			RangeM:   body.Model.RangeM,
			DomeMode: body.Model.DomeMode,
		},
		Settings: body.Settings,
	}

	result, err := s.placement.AutoPlace(r.Context(), req)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, result)
}

// simulateCoverage serves POST /simulate (spec §6/§4.8): coverage-only
// evaluation over an already-placed layout. Nothing is persisted.
func (s *Server) simulateCoverage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ROI           []r2.Vec       `json:"roiPolygon"`
		Fixtures      []fixtureDTO   `json:"fixtures"`
		Sensors       []sensorPoseDTO `json:"sensors"`
		SampleSpacing float64        `json:"sampleSpacing"`
		KRequired     int            `json:"kRequired"`
		LOSEnabled    bool           `json:"losEnabled"`
		LOSCellSize   float64        `json:"losCellSize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if len(body.ROI) < 3 {
		httputil.BadRequest(w, "roiPolygon must have at least 3 vertices")
		return
	}
	if body.SampleSpacing <= 0 {
		httputil.BadRequest(w, "sampleSpacing must be positive")
		return
	}
	kRequired := body.KRequired
	if kRequired < 1 {
		kRequired = 1
	}
	losCellSize := body.LOSCellSize
	if losCellSize <= 0 {
		losCellSize = 0.5
	}

	fixtures := make([]placement.Fixture, 0, len(body.Fixtures))
	for _, f := range body.Fixtures {
		fixtures = append(fixtures, f.toFixture())
	}
	obstacles := make([]geometry.Polygon, 0, len(fixtures))
	for _, f := range fixtures {
		if f.IsObstacle() {
			obstacles = append(obstacles, f.Polygon())
		}
	}

	sensors := make([]placement.SensorPose, 0, len(body.Sensors))
	for _, sp := range body.Sensors {
		sensors = append(sensors, sp.toSensorPose())
	}

	result := placement.Simulate(geometry.Polygon(body.ROI), obstacles, sensors, body.SampleSpacing, kRequired, body.LOSEnabled, losCellSize)
	httputil.WriteJSONOK(w, result)
}

// sensorPoseDTO is the wire shape of a placement.SensorPose.
type sensorPoseDTO struct {
	Position        r2.Vec  `json:"position"`
	YawDeg          float64 `json:"yawDeg"`
	HFOVDeg         float64 `json:"hfovDeg"`
	EffectiveRadius float64 `json:"effectiveRadius"`
}

func (d sensorPoseDTO) toSensorPose() placement.SensorPose {
	return placement.SensorPose{
		Position:        d.Position,
		YawDeg:          d.YawDeg,
		HFOVDeg:         d.HFOVDeg,
		EffectiveRadius: d.EffectiveRadius,
	}
}
