package placement

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func squareROI() []r2.Vec {
	return []r2.Vec{{X: 0, Y: 0}, {X: 0, Y: 20}, {X: 20, Y: 20}, {X: 20, Y: 0}}
}

func directionalModel() store.SensorModel {
	return store.SensorModel{ID: "model-1", Label: "Edge Unit", HFOVDeg: 90, VFOVDeg: 60, RangeM: 12}
}

type facadeFixture struct {
	facade   *Facade
	mounts   *store.PlannedMountStore
	runs     *store.PlacementRunStore
	pairings *store.PairingStore
	http     *httputil.MockHTTPClient
	enabled  bool
	url      string
}

func newFacadeFixture(t *testing.T) *facadeFixture {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	mounts := store.NewPlannedMountStore(db)
	runs := store.NewPlacementRunStore(db)
	pairings := store.NewPairingStore(db)

	mock := httputil.NewMockHTTPClient()
	client := edgerpc.New(mock)

	fx := &facadeFixture{mounts: mounts, runs: runs, pairings: pairings, http: mock}
	fx.facade = New(mounts, runs, pairings, client, func() string { return fx.url }, func() bool { return fx.enabled })
	return fx
}

func TestAutoPlace_RejectsDegenerateROI(t *testing.T) {
	fx := newFacadeFixture(t)
	_, err := fx.facade.AutoPlace(context.Background(), Request{
		VenueID: "v1", LayoutID: "l1",
		ROI:   []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}},
		Model: directionalModel(),
	})
	require.Error(t, err)
}

func TestAutoPlace_RejectsZeroEffectiveRadius(t *testing.T) {
	fx := newFacadeFixture(t)
	model := directionalModel()
	model.VFOVDeg = 0
	_, err := fx.facade.AutoPlace(context.Background(), Request{
		VenueID: "v1", LayoutID: "l1",
		ROI:      squareROI(),
		Model:    model,
		Settings: Settings{MountHeightM: 3},
	})
	require.Error(t, err)
}

func TestAutoPlace_GreedyFallbackWhenSolverDisabled(t *testing.T) {
	fx := newFacadeFixture(t)
	fx.enabled = false

	result, err := fx.facade.AutoPlace(context.Background(), Request{
		VenueID: "v1", LayoutID: "l1",
		ROI:      squareROI(),
		Model:    directionalModel(),
		Settings: Settings{MountHeightM: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "greedy-fallback", result.SolverStatus)
	assert.NotEmpty(t, result.Placements)
	assert.NotEmpty(t, result.RunID)

	stored, err := fx.mounts.ListByLayout("v1", "l1")
	require.NoError(t, err)
	assert.Len(t, stored, len(result.Placements))
}

func TestAutoPlace_GreedyFallbackWhenSolverUnreachable(t *testing.T) {
	fx := newFacadeFixture(t)
	fx.enabled = true
	fx.url = "http://solver.invalid"
	fx.http.AddErrorResponse(assert.AnError)

	result, err := fx.facade.AutoPlace(context.Background(), Request{
		VenueID: "v1", LayoutID: "l1",
		ROI:      squareROI(),
		Model:    directionalModel(),
		Settings: Settings{MountHeightM: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "greedy-fallback", result.SolverStatus)
}

func TestAutoPlace_UsesExternalSolverOnSuccess(t *testing.T) {
	fx := newFacadeFixture(t)
	fx.enabled = true
	fx.url = "http://solver.local"
	fx.http.AddResponse(200, `{
		"success": true,
		"placements": [{"x": 5, "z": 5}, {"x": 15, "z": 15}],
		"yaws": [0, 90],
		"coveragePct": 88.5,
		"kCoveragePct": 40.0,
		"warnings": ["low overlap near north wall"]
	}`)

	result, err := fx.facade.AutoPlace(context.Background(), Request{
		VenueID: "v1", LayoutID: "l1",
		ROI:      squareROI(),
		Model:    directionalModel(),
		Settings: Settings{MountHeightM: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "external", result.SolverStatus)
	assert.Len(t, result.Placements, 2)
	assert.InDelta(t, 88.5, result.CoveragePct, 1e-9)
	assert.Equal(t, []string{"low overlap near north wall"}, result.Warnings)

	stored, err := fx.mounts.ListByLayout("v1", "l1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestAutoPlace_CentroidFallbackWhenGridIsEmpty(t *testing.T) {
	fx := newFacadeFixture(t)
	fx.enabled = false

	tiny := []r2.Vec{{X: 0, Y: 0}, {X: 0, Y: 0.01}, {X: 0.01, Y: 0.01}, {X: 0.01, Y: 0}}
	result, err := fx.facade.AutoPlace(context.Background(), Request{
		VenueID: "v1", LayoutID: "l1",
		ROI:      tiny,
		Model:    directionalModel(),
		Settings: Settings{MountHeightM: 3, CandidateSpacing: 5},
	})
	require.NoError(t, err)
	require.Len(t, result.Placements, 1)
	assert.Contains(t, result.Warnings[0], "centroid")
}

func TestAutoPlace_ReplacesPriorAutoMountsButKeepsManual(t *testing.T) {
	fx := newFacadeFixture(t)
	fx.enabled = false

	require.NoError(t, fx.mounts.Insert(&store.PlannedMount{
		ID: "manual-1", VenueID: "v1", LayoutID: "l1", Source: store.MountSourceManual,
		ModelID: "model-1", X: 1, Z: 1, MountHeightM: 3,
	}))

	_, err := fx.facade.AutoPlace(context.Background(), Request{
		VenueID: "v1", LayoutID: "l1",
		ROI:      squareROI(),
		Model:    directionalModel(),
		Settings: Settings{MountHeightM: 3},
	})
	require.NoError(t, err)

	_, err = fx.facade.AutoPlace(context.Background(), Request{
		VenueID: "v1", LayoutID: "l1",
		ROI:      squareROI(),
		Model:    directionalModel(),
		Settings: Settings{MountHeightM: 3},
	})
	require.NoError(t, err)

	stored, err := fx.mounts.ListByLayout("v1", "l1")
	require.NoError(t, err)
	manualCount := 0
	for _, m := range stored {
		if m.Source == store.MountSourceManual {
			manualCount++
		}
	}
	assert.Equal(t, 1, manualCount)
}

func TestAutoPlace_SerializesRunsPerLayout(t *testing.T) {
	fx := newFacadeFixture(t)
	fx.enabled = true
	fx.url = "http://solver.local"

	var inFlight int32
	var overlapped int32
	fx.http.DoFunc = func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&inFlight, 1)
		if atomic.LoadInt32(&inFlight) > 1 {
			atomic.StoreInt32(&overlapped, 1)
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		body := `{
			"success": true, "placements": [{"x": 5, "z": 5}], "yaws": [0],
			"coveragePct": 50, "kCoveragePct": 10, "warnings": []
		}`
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.facade.AutoPlace(context.Background(), Request{
				VenueID: "v1", LayoutID: "shared-layout",
				ROI:      squareROI(),
				Model:    directionalModel(),
				Settings: Settings{MountHeightM: 3},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&overlapped), "concurrent AutoPlace calls for the same layout must not overlap their solver dispatch")
}
