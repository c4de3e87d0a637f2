package deployment

import (
	"context"
	"net/http"
	"testing"

	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/meshdirectory"
	"github.com/hyperspacefleet/commission-core/internal/procexec"
	"github.com/hyperspacefleet/commission-core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusJSON = `{
  "peer": {
    "n1": {"id": "gw-1", "hostname": "edge-gw-1", "addresses": ["100.64.0.10"], "online": true, "tags": ["tag:edge-gateway"]}
  }
}`

type fixture struct {
	engine  *Engine
	venues  *store.VenueStore
	mounts  *store.PlannedMountStore
	models  *store.SensorModelStore
	pairings *store.PairingStore
	rois    *store.RegionOfInterestStore
	records *store.DeploymentRecordStore
	http    *httputil.MockHTTPClient
}

func newFixture(t *testing.T, broker string) *fixture {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	overrides := store.NewGatewayOverrideStore(db)
	executor := &procexec.MockCommandExecutor{Output: []byte(statusJSON)}
	builder := &procexec.MockCommandBuilder{Executor: executor}
	dir := meshdirectory.New(builder, []string{"tailscale", "status", "--json"}, []string{"edge-"}, "tag:edge-gateway", false, overrides)

	mock := httputil.NewMockHTTPClient()
	edge := edgerpc.New(mock)

	venues := store.NewVenueStore(db)
	mounts := store.NewPlannedMountStore(db)
	models := store.NewSensorModelStore(db)
	pairings := store.NewPairingStore(db)
	rois := store.NewRegionOfInterestStore(db)
	records := store.NewDeploymentRecordStore(db)

	engine := New(venues, mounts, models, pairings, rois, records, dir, edge, func() string { return broker })

	require.NoError(t, venues.Insert(&store.Venue{ID: "v1", Label: "Arena", WidthM: 40, DepthM: 30, HeightM: 12}))
	require.NoError(t, models.Insert(&store.SensorModel{ID: "model-1", Label: "Dome X", HFOVDeg: 360, VFOVDeg: 30, RangeM: 30, DomeMode: true}))
	require.NoError(t, mounts.Insert(&store.PlannedMount{
		ID: "mount-1", VenueID: "v1", LayoutID: "layout-1", Source: store.MountSourceManual,
		ModelID: "model-1", X: 5, Y: 0, Z: 5, YawRad: 0, MountHeightM: 3,
	}))
	require.NoError(t, pairings.Upsert(&store.Pairing{
		ID: "pair-1", VenueID: "v1", GatewayID: "gw-1", PlannedMountID: "mount-1",
		SensorID: "sensor-1", SensorAddress: "192.168.50.201",
	}))

	return &fixture{engine: engine, venues: venues, mounts: mounts, models: models, pairings: pairings, rois: rois, records: records, http: mock}
}

func TestEngine_Apply_WritesAppliedRecordOnSuccess(t *testing.T) {
	f := newFixture(t, "mqtt://broker.local:1883")
	f.http.AddResponse(http.StatusOK, `{"appliedConfigHash":"abc123"}`)

	result, err := f.engine.Apply(context.Background(), "v1", "gw-1", "layout-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.AppliedBundleHash)
	assert.Len(t, result.BundleHash, 16)

	records, err := f.records.ListByGateway("v1", "gw-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, store.DeploymentStatusApplied, records[0].Status)
	assert.Equal(t, result.BundleHash, records[0].BundleHash)
}

func TestEngine_Apply_WritesFailedRecordOnGatewayError(t *testing.T) {
	f := newFixture(t, "mqtt://broker.local:1883")
	f.http.AddResponse(http.StatusInternalServerError, "boom")

	_, err := f.engine.Apply(context.Background(), "v1", "gw-1", "layout-1")
	require.Error(t, err)

	records, err := f.records.ListByGateway("v1", "gw-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, store.DeploymentStatusFailed, records[0].Status)
	assert.NotEmpty(t, records[0].ErrorMessage)
}

func TestEngine_Export_ReplacesBrokerAndWritesNoRecord(t *testing.T) {
	f := newFixture(t, "mqtt://broker.local:1883")

	bundle, err := f.engine.Export("v1", "gw-1", "layout-1")
	require.NoError(t, err)

	mqtt := bundle["mqtt"].(map[string]interface{})
	assert.Equal(t, exportBrokerPlaceholder, mqtt["broker"])

	records, err := f.records.ListByGateway("v1", "gw-1", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, f.http.RequestCount())
}

func TestHashBundle_StableAcrossKeyInsertionOrder(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2, "c": map[string]interface{}{"y": 1, "x": 2}}
	b := map[string]interface{}{"a": 2, "c": map[string]interface{}{"x": 2, "y": 1}, "b": 1}

	hashA, err := hashBundle(a)
	require.NoError(t, err)
	hashB, err := hashBundle(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 16)
}
