package pointcloud

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStreamParams_AllPresent(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/pcl?gatewayAddress=100.64.0.10&sensorAddress=192.168.50.2&modelHint=dome-v2&downsample=0.5", nil)
	params, ok := parseStreamParams(req)
	assert.True(t, ok)
	assert.Equal(t, "100.64.0.10", params.GatewayAddress)
	assert.Equal(t, "192.168.50.2", params.SensorAddress)
	assert.Equal(t, "dome-v2", params.ModelHint)
	assert.Equal(t, "0.5", params.Downsample)
}

func TestParseStreamParams_MissingRequired(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/pcl?gatewayAddress=100.64.0.10&sensorAddress=192.168.50.2", nil)
	_, ok := parseStreamParams(req)
	assert.False(t, ok)
}

func TestBuildStreamURL(t *testing.T) {
	u := buildStreamURL(StreamParams{
		GatewayAddress: "100.64.0.10:8080",
		SensorAddress:  "192.168.50.2",
		ModelHint:      "dome-v2",
		Downsample:     "0.5",
	})
	assert.Contains(t, u, "ws://100.64.0.10:8080/api/pointcloud/stream")
	assert.Contains(t, u, "sensorAddress=192.168.50.2")
	assert.Contains(t, u, "modelHint=dome-v2")
	assert.Contains(t, u, "downsample=0.5")
}
