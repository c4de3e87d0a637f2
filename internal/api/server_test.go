package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperspacefleet/commission-core/internal/store"
)

// setupTestServer builds a Server over a fresh in-memory database with
// only the store-backed fields populated; handlers that reach a
// mesh/RPC/placement component are exercised in their own packages'
// tests, not here.
func setupTestServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := &Server{
		venues:   store.NewVenueStore(db),
		models:   store.NewSensorModelStore(db),
		mounts:   store.NewPlannedMountStore(db),
		rois:     store.NewRegionOfInterestStore(db),
		pairings: store.NewPairingStore(db),
		sensors:  store.NewCommissionedSensorStore(db),
		records:  store.NewDeploymentRecordStore(db),
		db:       db,
	}
	return s, db
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestHealthz(t *testing.T) {
	s, _ := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.healthz(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestModelsHandlers_CreateListUpdate(t *testing.T) {
	s, _ := setupTestServer(t)

	createBody, _ := json.Marshal(map[string]interface{}{
		"label":   "Directional",
		"hfovDeg": 70.0,
		"vfovDeg": 90.0,
		"rangeM":  50.0,
	})
	req := httptest.NewRequest(http.MethodPost, "/models", bytes.NewReader(createBody))
	rec := httptest.NewRecorder()
	s.createModel(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created store.SensorModel
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Directional", created.Label)

	req = httptest.NewRequest(http.MethodGet, "/models", nil)
	rec = httptest.NewRecorder()
	s.listModels(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []*store.SensorModel
	decodeBody(t, rec, &listed)
	assert.Len(t, listed, 1)

	updateBody, _ := json.Marshal(map[string]interface{}{
		"id":       created.ID,
		"label":    "Directional Rev B",
		"hfovDeg":  70.0,
		"vfovDeg":  90.0,
		"rangeM":   60.0,
		"domeMode": false,
	})
	req = httptest.NewRequest(http.MethodPut, "/models", bytes.NewReader(updateBody))
	rec = httptest.NewRecorder()
	s.updateModel(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := s.models.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Directional Rev B", got.Label)
	assert.Equal(t, 60.0, got.RangeM)
}

func TestModelsHandlers_CreateMissingLabel(t *testing.T) {
	s, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"rangeM": 10.0})
	req := httptest.NewRequest(http.MethodPost, "/models", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.createModel(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelsHandlers_UpdateMissingID(t *testing.T) {
	s, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"label": "No ID"})
	req := httptest.NewRequest(http.MethodPut, "/models", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.updateModel(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPairingsHandlers_UpsertListDelete(t *testing.T) {
	s, _ := setupTestServer(t)

	require.NoError(t, s.mounts.Insert(&store.PlannedMount{
		ID: "mount-1", VenueID: "venue-1", LayoutID: "layout-1", ModelID: "model-1", X: 1, Z: 2, YawRad: 0, MountHeightM: 3,
	}))

	upsertBody, _ := json.Marshal(map[string]interface{}{
		"venueId":        "venue-1",
		"plannedMountId": "mount-1",
		"gatewayId":      "gw-1",
		"sensorAddress":  "192.168.50.201",
	})
	req := httptest.NewRequest(http.MethodPost, "/pairings", bytes.NewReader(upsertBody))
	rec := httptest.NewRecorder()
	s.upsertPairing(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created store.Pairing
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.ID)

	req = httptest.NewRequest(http.MethodGet, "/pairings?venueId=venue-1", nil)
	rec = httptest.NewRecorder()
	s.listPairings(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []*store.Pairing
	decodeBody(t, rec, &listed)
	assert.Len(t, listed, 1)

	req = httptest.NewRequest(http.MethodDelete, "/pairings?plannedMountId=mount-1", nil)
	rec = httptest.NewRecorder()
	s.deletePairing(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/pairings?venueId=venue-1", nil)
	rec = httptest.NewRecorder()
	s.listPairings(rec, req)
	decodeBody(t, rec, &listed)
	assert.Len(t, listed, 0)
}

func TestPairingsHandlers_MissingVenueID(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/pairings", nil)
	rec := httptest.NewRecorder()
	s.listPairings(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommissionedSensorsHandlers_ListAndNextIP(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/next-available-ip?venueId=v1&gatewayId=gw-1&subnetCidr=192.168.50.0/24", nil)
	rec := httptest.NewRecorder()
	s.nextAvailableIP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "192.168.50.201", body["address"])

	req = httptest.NewRequest(http.MethodGet, "/commissioned-lidars?venueId=v1", nil)
	rec = httptest.NewRecorder()
	s.listCommissionedSensors(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var sensors []*store.CommissionedSensor
	decodeBody(t, rec, &sensors)
	assert.Len(t, sensors, 0)
}

func TestListPlacements(t *testing.T) {
	s, _ := setupTestServer(t)

	require.NoError(t, s.mounts.Insert(&store.PlannedMount{
		ID: "mount-1", VenueID: "venue-1", LayoutID: "layout-1", ModelID: "model-1", X: 1, Z: 2, YawRad: 0, MountHeightM: 3,
	}))

	req := httptest.NewRequest(http.MethodGet, "/placements?venueId=venue-1&layoutId=layout-1", nil)
	rec := httptest.NewRecorder()
	s.listPlacements(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	mounts, ok := body["mounts"].([]interface{})
	require.True(t, ok)
	assert.Len(t, mounts, 1)
}

func TestListPlacements_MissingParams(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/placements", nil)
	rec := httptest.NewRecorder()
	s.listPlacements(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
