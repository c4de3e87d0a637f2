package api

import (
	"encoding/json"
	"net/http"

	"github.com/hyperspacefleet/commission-core/internal/httputil"
)

// listCommissionedSensors serves GET /commissioned-lidars (spec §6): the
// address book of sensors already assigned a static address.
func (s *Server) listCommissionedSensors(w http.ResponseWriter, r *http.Request) {
	venueID := r.URL.Query().Get("venueId")
	if venueID == "" {
		httputil.BadRequest(w, "venueId is required")
		return
	}
	sensors, err := s.sensors.ListByVenue(venueID, r.URL.Query().Get("gatewayId"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, sensors)
}

// assignCommissionedSensor serves POST /commissioned-lidars (spec §6): runs
// the C4 address-reassignment state machine end to end (CONFIGURING,
// REBOOTING, VERIFYING) and commits the resulting CommissionedSensor row.
// This is the commissioning entry point the address book's POST route maps
// to, since a commissioned sensor is never created by a raw insert: it only
// ever comes into being as the terminal outcome of an Assign run.
func (s *Server) assignCommissionedSensor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VenueID        string `json:"venueId"`
		GatewayID      string `json:"gatewayId"`
		GatewayAddress string `json:"gatewayAddress"`
		SubnetCIDR     string `json:"subnetCidr"`
		OldAddress     string `json:"oldAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if body.VenueID == "" || body.GatewayID == "" || body.GatewayAddress == "" || body.SubnetCIDR == "" || body.OldAddress == "" {
		httputil.BadRequest(w, "venueId, gatewayId, gatewayAddress, subnetCidr, and oldAddress are required")
		return
	}
	result, err := s.coord.Assign(r.Context(), body.VenueID, body.GatewayID, body.GatewayAddress, body.SubnetCIDR, body.OldAddress)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// deleteCommissionedSensor serves DELETE /commissioned-lidars?id=...
// (spec §6): remove a sensor from the address book outright. Spec P4 scopes
// the monotonicity guarantee to addresses "present" in the venue, so unlike
// SetStatus(retired) (which keeps the row, still counted by
// NextAvailableAddress) a hard delete does free the address for reissue;
// operators who want the address permanently retired should mark the
// sensor retired instead of deleting it.
func (s *Server) deleteCommissionedSensor(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "id is required")
		return
	}
	if err := s.sensors.Delete(id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"id": id})
}

// nextAvailableIP serves GET /next-available-ip (spec §6): query the
// address pool without committing an assignment. Pool exhaustion is a 400
// per the error table in §7.
func (s *Server) nextAvailableIP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	venueID, gatewayID, subnetCIDR := q.Get("venueId"), q.Get("gatewayId"), q.Get("subnetCidr")
	if venueID == "" || gatewayID == "" || subnetCIDR == "" {
		httputil.BadRequest(w, "venueId, gatewayId, and subnetCidr are required")
		return
	}
	address, err := s.sensors.NextAvailableAddress(venueID, gatewayID, subnetCIDR)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"address": address})
}
