package api

import (
	"encoding/json"
	"net/http"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/config"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
)

// listGateways serves GET /edge/scan (spec §6): list every gateway the mesh
// directory currently knows about. A directory-unavailable failure answers
// 503 per the error table in §7.
func (s *Server) listGateways(w http.ResponseWriter, r *http.Request) {
	gateways, err := s.directory.ListGateways()
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, gateways)
}

// renameGateway serves PUT /edge/{id}/name (spec §6): set displayName and
// notes for a gateway. An empty displayName is a 400.
func (s *Server) renameGateway(w http.ResponseWriter, r *http.Request) {
	gatewayID := r.PathValue("id")
	var body struct {
		DisplayName string `json:"displayName"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if body.DisplayName == "" {
		httputil.BadRequest(w, "displayName is required")
		return
	}
	if err := s.directory.RenameGateway(gatewayID, body.DisplayName, body.Notes); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"gatewayId": gatewayID, "displayName": body.DisplayName})
}

// gatewayInventory serves GET /edge/{id}/inventory (spec §6): proxy the
// gateway's own sensor inventory listing through C2. The payload shape is
// the gateway's own and is relayed verbatim.
func (s *Server) gatewayInventory(w http.ResponseWriter, r *http.Request) {
	gw, err := s.directory.Resolve(r.PathValue("id"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	var inventory interface{}
	if err := s.edge.Get(r.Context(), "http://"+gw.MeshAddress, "/api/edge/lidar/inventory", &inventory); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, inventory)
}

// scanLidars serves POST /edge/{id}/scan-lidars (spec §6): a gateway-side
// LAN scan for a factory-fresh sensor (spec §4.4's C4 Scan operation). It is
// read-only and does not take the venue's address-assignment lock, so it
// may run concurrently with an in-progress Assign.
func (s *Server) scanLidars(w http.ResponseWriter, r *http.Request) {
	gw, err := s.directory.Resolve(r.PathValue("id"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	target := r.URL.Query().Get("target")
	result, err := s.coord.Scan(r.Context(), gw.MeshAddress, target)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, result)
}

// gatewayStatus serves GET /edge/{id}/status (spec §6): always 200 when the
// gateway is known, with online:bool in the body regardless of whether it
// is currently reachable. Unlike every other gateway route this does not
// call Resolve, since Resolve itself fails on an offline gateway and this
// route's whole purpose is to report that fact rather than gate on it.
func (s *Server) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	gatewayID := r.PathValue("id")
	gateways, err := s.directory.ListGateways()
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	for _, g := range gateways {
		if g.GatewayID == gatewayID {
			httputil.WriteJSONOK(w, g)
			return
		}
	}
	httputil.WriteAppError(w, apperr.New(apperr.KindNotFound, "gateway %s not found", gatewayID))
}

// deployGateway serves POST /edge/{id}/deploy (spec §6): assemble and push
// the layout's bundle to the gateway (spec §4.7). A deployment record is
// written on both the success and failure path inside Engine.Apply, so a
// 502 here still means the attempt was durably recorded.
func (s *Server) deployGateway(w http.ResponseWriter, r *http.Request) {
	gatewayID := r.PathValue("id")
	var body struct {
		VenueID  string `json:"venueId"`
		LayoutID string `json:"layoutId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if body.VenueID == "" || body.LayoutID == "" {
		httputil.BadRequest(w, "venueId and layoutId are required")
		return
	}
	result, err := s.engine.Apply(r.Context(), body.VenueID, gatewayID, body.LayoutID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, result)
}

// pclGated reports whether the point-cloud relay feature is enabled;
// callers answer 404 rather than the component's own error when it is off
// (spec §6: "when a feature is off, its routes return 404").
func pclGated() bool {
	return !config.Current().Features.PCLRelay
}
