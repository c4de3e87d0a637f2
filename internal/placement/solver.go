package placement

import (
	"context"
	"time"

	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/geometry"
	"github.com/hyperspacefleet/commission-core/internal/store"
	"gonum.org/v1/gonum/spatial/r2"
)

// solverDeadline is the dispatch timeout for the external solver (spec
// §4.8 step 1: "POST the request; timeout 30 s").
const solverDeadline = 30 * time.Second

type solverPoint struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

type solverModel struct {
	Label    string  `json:"label"`
	HFOVDeg  float64 `json:"hfov"`
	VFOVDeg  float64 `json:"vfov"`
	RangeM   float64 `json:"range"`
	DomeMode bool    `json:"domeMode"`
}

type solverRequest struct {
	ROIPolygon  []solverPoint   `json:"roiPolygon"`
	Obstacles   [][]solverPoint `json:"obstacles"`
	SensorModel solverModel     `json:"sensorModel"`
	Settings    Settings        `json:"settings"`
}

type solverResponse struct {
	Success      bool          `json:"success"`
	Placements   []solverPoint `json:"placements"`
	Yaws         []float64     `json:"yaws"`
	CoveragePct  float64       `json:"coveragePct"`
	KCoveragePct float64       `json:"kCoveragePct"`
	Warnings     []string      `json:"warnings"`
}

func toSolverPoints(vs []r2.Vec) []solverPoint {
	out := make([]solverPoint, len(vs))
	for i, v := range vs {
		out[i] = solverPoint{X: v.X, Z: v.Y}
	}
	return out
}

// dispatchExternal posts the normalized request to the configured external
// solver. It returns (nil, err) on any transport/remote failure or a
// success=false response, signaling the caller to fall back to the
// internal greedy placement (spec §4.8 step 2).
func dispatchExternal(ctx context.Context, client *edgerpc.Client, solverURL string, roi geometry.Polygon, obstacles []geometry.Polygon, model store.SensorModel, settings Settings) ([]Placement, float64, float64, []string, error) {
	req := solverRequest{
		ROIPolygon: toSolverPoints(roi),
		SensorModel: solverModel{
			Label: model.Label, HFOVDeg: model.HFOVDeg, VFOVDeg: model.VFOVDeg,
			RangeM: model.RangeM, DomeMode: model.DomeMode,
		},
		Settings: settings,
	}
	for _, obs := range obstacles {
		req.Obstacles = append(req.Obstacles, toSolverPoints(obs))
	}

	var resp solverResponse
	if err := client.Call(ctx, solverURL, "/solve", "POST", req, solverDeadline, &resp); err != nil {
		return nil, 0, 0, nil, err
	}
	if !resp.Success {
		return nil, 0, 0, nil, errSolverReportedFailure
	}

	placements := make([]Placement, len(resp.Placements))
	for i, p := range resp.Placements {
		yaw := 0.0
		if i < len(resp.Yaws) {
			yaw = resp.Yaws[i]
		}
		placements[i] = Placement{X: p.X, Z: p.Z, YawDeg: yaw}
	}
	return placements, resp.CoveragePct, resp.KCoveragePct, resp.Warnings, nil
}

var errSolverReportedFailure = solverError("external solver reported success=false")

type solverError string

func (e solverError) Error() string { return string(e) }
