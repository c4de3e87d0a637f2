package pointcloud

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_JSONFormatReencodesPoints(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `[{"x":1,"y":2,"z":3,"intensity":0.5}]`)
	relay := NewRelay(mock)

	rec := httptest.NewRecorder()
	err := relay.Snapshot(context.Background(), rec, SnapshotRequest{
		GatewayAddress: "100.64.0.10:8080", SensorAddress: "192.168.50.2", Format: FormatJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"x":1,"y":2,"z":3,"intensity":0.5}]`, rec.Body.String())
}

func TestSnapshot_BinaryFormatPreservesHeaderAndBytes(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		headers := http.Header{}
		headers.Set("X-Point-Count", "4096")
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     headers,
			Body:       io.NopCloser(strings.NewReader("\x00\x01\x02\x03")),
			Request:    req,
		}, nil
	}
	relay := NewRelay(mock)

	rec := httptest.NewRecorder()
	err := relay.Snapshot(context.Background(), rec, SnapshotRequest{
		GatewayAddress: "100.64.0.10:8080", SensorAddress: "192.168.50.2", Format: FormatBinary,
	})
	require.NoError(t, err)
	assert.Equal(t, "4096", rec.Header().Get("X-Point-Count"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0, 1, 2, 3}, rec.Body.Bytes())
}

func TestSnapshot_PLYFormatSetsDisposition(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "ply\nformat ascii 1.0\n")
	relay := NewRelay(mock)

	rec := httptest.NewRecorder()
	err := relay.Snapshot(context.Background(), rec, SnapshotRequest{
		GatewayAddress: "100.64.0.10:8080", SensorAddress: "192.168.50.2", Format: FormatPLY,
	})
	require.NoError(t, err)
	assert.Equal(t, `attachment; filename="snapshot-192-168-50-2.ply"`, rec.Header().Get("Content-Disposition"))
}

func TestSnapshot_RemoteErrorPropagates(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusBadGateway, "gateway down")
	relay := NewRelay(mock)

	rec := httptest.NewRecorder()
	err := relay.Snapshot(context.Background(), rec, SnapshotRequest{
		GatewayAddress: "100.64.0.10:8080", SensorAddress: "192.168.50.2", Format: FormatJSON,
	})
	require.Error(t, err)
}

func TestBuildSnapshotURL_IncludesOptionalParams(t *testing.T) {
	u := buildSnapshotURL(SnapshotRequest{
		GatewayAddress: "100.64.0.10:8080",
		SensorAddress:  "192.168.50.2",
		Format:         FormatJSON,
		DurationMS:     2000,
		MaxPoints:      5000,
		Downsample:     0.5,
		ModelHint:      "dome-v2",
	})
	assert.Contains(t, u, "sensorAddress=192.168.50.2")
	assert.Contains(t, u, "durationMs=2000")
	assert.Contains(t, u, "maxPoints=5000")
	assert.Contains(t, u, "downsample=0.5")
	assert.Contains(t, u, "modelHint=dome-v2")
}

func TestPlyFilename_SanitizesAddress(t *testing.T) {
	assert.Equal(t, "snapshot-192-168-50-2.ply", plyFilename("192.168.50.2"))
	assert.Equal(t, "snapshot-sensor.ply", plyFilename("sensor"))
	assert.Equal(t, "snapshot-sensor.ply", plyFilename(""))
}
