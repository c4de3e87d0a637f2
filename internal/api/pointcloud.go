package api

import (
	"net/http"
	"strconv"

	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/pointcloud"
)

// pclSnapshot serves GET and POST /pcl/snapshot (spec §4.3/§6): a
// request/response point-cloud capture relayed through a gateway. 404 when
// the feature flag is off, per the route-gating convention in gateways.go.
func (s *Server) pclSnapshot(w http.ResponseWriter, r *http.Request) {
	if pclGated() {
		httputil.NotFound(w, "point-cloud relay is disabled")
		return
	}

	q := r.URL.Query()
	gatewayAddress, sensorAddress := q.Get("gatewayAddress"), q.Get("sensorAddress")
	if gatewayAddress == "" || sensorAddress == "" {
		httputil.BadRequest(w, "gatewayAddress and sensorAddress are required")
		return
	}

	format := pointcloud.SnapshotFormat(q.Get("format"))
	if format == "" {
		format = pointcloud.FormatJSON
	}

	req := pointcloud.SnapshotRequest{
		GatewayAddress: gatewayAddress,
		SensorAddress:  sensorAddress,
		Format:         format,
		ModelHint:      q.Get("modelHint"),
	}
	if raw := q.Get("durationMs"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			req.DurationMS = n
		}
	}
	if raw := q.Get("maxPoints"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			req.MaxPoints = n
		}
	}
	if raw := q.Get("downsample"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			req.Downsample = f
		}
	}

	if err := s.relay.Snapshot(r.Context(), w, req); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
}

// pclStream serves GET /ws/pcl (spec §4.3/§6): upgrades to a WebSocket and
// relays point-cloud frames bidirectionally. 404 when the feature flag is
// off; otherwise all parameter validation and the upgrade itself happen
// inside Relay.ServeStream.
func (s *Server) pclStream(w http.ResponseWriter, r *http.Request) {
	if pclGated() {
		httputil.NotFound(w, "point-cloud relay is disabled")
		return
	}
	s.relay.ServeStream(w, r)
}
