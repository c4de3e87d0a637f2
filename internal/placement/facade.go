package placement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/geometry"
	"github.com/hyperspacefleet/commission-core/internal/monitoring"
	"github.com/hyperspacefleet/commission-core/internal/store"
	"gonum.org/v1/gonum/spatial/r2"
)

// Request is a normalized auto-placement request (spec §4.8).
type Request struct {
	VenueID  string
	LayoutID string
	ROI      []r2.Vec
	Fixtures []Fixture
	Model    store.SensorModel
	Settings Settings
}

// Result is the outcome of one AutoPlace call.
type Result struct {
	RunID        string
	Placements   []Placement
	SolverStatus string
	Warnings     []string
	CoveragePct  float64
	KCoveragePct float64
}

// Facade dispatches placement requests to an external solver with an
// internal greedy fallback, and persists the result (spec C8).
type Facade struct {
	mounts   *store.PlannedMountStore
	runs     *store.PlacementRunStore
	pairings *store.PairingStore
	solver   *edgerpc.Client
	solverURL func() string
	solverEnabled func() bool

	mu          sync.Mutex
	layoutLocks map[string]*sync.Mutex
}

// New creates a Facade. solverURL and solverEnabled are read at dispatch
// time (not captured once) so a config.Reload() takes effect immediately.
func New(mounts *store.PlannedMountStore, runs *store.PlacementRunStore, pairings *store.PairingStore, solver *edgerpc.Client, solverURL func() string, solverEnabled func() bool) *Facade {
	return &Facade{
		mounts: mounts, runs: runs, pairings: pairings, solver: solver,
		solverURL: solverURL, solverEnabled: solverEnabled,
		layoutLocks: make(map[string]*sync.Mutex),
	}
}

func (f *Facade) layoutLock(layoutID string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.layoutLocks[layoutID]
	if !ok {
		l = &sync.Mutex{}
		f.layoutLocks[layoutID] = l
	}
	return l
}

// AutoPlace normalizes req, dispatches to the external solver when
// configured and reachable, falls back to the internal greedy placement
// otherwise, and persists the result as the layout's new auto-sourced
// planned mounts plus a PlacementRun history entry (spec §4.8 step 3).
// Runs for the same layout are serialized: a concurrent call blocks until
// the prior run has committed or failed, per spec §5 ("a new run cancels
// any pending-but-not-yet-committed results from a previous run") — this
// implementation achieves the same observable effect by never letting two
// runs interleave their writes rather than by canceling a started one.
func (f *Facade) AutoPlace(ctx context.Context, req Request) (*Result, error) {
	if len(req.ROI) < 3 {
		return nil, apperr.New(apperr.KindBadRequest, "roiPolygon must have at least 3 vertices")
	}
	roi := geometry.Polygon(req.ROI)
	if roi.Area() <= 0 {
		return nil, apperr.New(apperr.KindBadRequest, "roiPolygon has zero area")
	}

	lock := f.layoutLock(req.LayoutID)
	lock.Lock()
	defer lock.Unlock()

	effectiveRadius := req.Model.EffectiveRadius(req.Settings.MountHeightM)
	if effectiveRadius <= 0 {
		return nil, apperr.New(apperr.KindBadRequest, "sensor model has zero effective radius at the given mount height")
	}
	settings := req.Settings.normalize(effectiveRadius)
	obstacles := obstaclePolygons(req.Fixtures)

	var placements []Placement
	var warnings []string
	var coveragePct, kCoveragePct float64
	solverStatus := "greedy-fallback"

	if f.solverEnabled() && f.solverURL() != "" {
		p, cov, kcov, w, err := dispatchExternal(ctx, f.solver, f.solverURL(), roi, obstacles, req.Model, settings)
		if err != nil {
			monitoring.Logf("placement: external solver unavailable for layout %s, falling back to greedy: %v", req.LayoutID, err)
		} else {
			placements, coveragePct, kCoveragePct, warnings, solverStatus = p, cov, kcov, w, "external"
		}
	}

	if solverStatus == "greedy-fallback" {
		placements, warnings = greedyPlace(roi, effectiveRadius, settings)
	}

	mounts := make([]*store.PlannedMount, 0, len(placements))
	for _, p := range placements {
		mounts = append(mounts, &store.PlannedMount{
			ID:           uuid.New().String(),
			LayoutID:     req.LayoutID,
			ModelID:      req.Model.ID,
			X:            p.X,
			Z:            p.Z,
			YawRad:       p.YawDeg * (3.141592653589793 / 180),
			MountHeightM: req.Settings.MountHeightM,
		})
	}

	if err := f.mounts.ReplaceAuto(req.VenueID, req.LayoutID, mounts); err != nil {
		return nil, err
	}
	if _, err := f.pairings.SweepOrphans(req.VenueID); err != nil {
		return nil, err
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal placement settings: %w", err)
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("marshal placement warnings: %w", err)
	}
	sensorCount := len(placements)
	run := &store.PlacementRun{
		ID:           uuid.New().String(),
		VenueID:      req.VenueID,
		LayoutID:     req.LayoutID,
		SettingsJSON: string(settingsJSON),
		CoveragePct:  &coveragePct,
		KCoveragePct: &kCoveragePct,
		SensorCount:  &sensorCount,
		SolverStatus: solverStatus,
		WarningsJSON: string(warningsJSON),
		CreatedAtNS:  time.Now().UnixNano(),
	}
	if err := f.runs.Insert(run); err != nil {
		return nil, err
	}

	return &Result{
		RunID:        run.ID,
		Placements:   placements,
		SolverStatus: solverStatus,
		Warnings:     warnings,
		CoveragePct:  coveragePct,
		KCoveragePct: kCoveragePct,
	}, nil
}
