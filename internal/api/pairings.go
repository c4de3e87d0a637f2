package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/store"
)

// listPairings serves GET /pairings (spec §6/§4.5): CRUD over the pairing
// of a planned mount to a gateway and sensor.
func (s *Server) listPairings(w http.ResponseWriter, r *http.Request) {
	venueID := r.URL.Query().Get("venueId")
	if venueID == "" {
		httputil.BadRequest(w, "venueId is required")
		return
	}
	pairings, err := s.pairings.List(venueID, r.URL.Query().Get("gatewayId"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, pairings)
}

// upsertPairing serves POST /pairings: create or replace the pairing for a
// planned mount. The venue_id/planned_mount_id unique constraint means a
// second pairing for the same mount replaces the first rather than ever
// producing a 409 here; KindUniquenessViolation is reserved for storage
// layers where replace-on-conflict isn't the right semantics (spec §7).
func (s *Server) upsertPairing(w http.ResponseWriter, r *http.Request) {
	var p store.Pairing
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if p.VenueID == "" || p.PlannedMountID == "" || p.GatewayID == "" {
		httputil.BadRequest(w, "venueId, plannedMountId, and gatewayId are required")
		return
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if err := s.pairings.Upsert(&p); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// deletePairing serves DELETE /pairings?plannedMountId=...
func (s *Server) deletePairing(w http.ResponseWriter, r *http.Request) {
	mountID := r.URL.Query().Get("plannedMountId")
	if mountID == "" {
		httputil.BadRequest(w, "plannedMountId is required")
		return
	}
	if err := s.pairings.RemoveByPlannedMount(mountID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"plannedMountId": mountID})
}

// cleanupOrphanedPairings serves DELETE /pairings/cleanup-orphaned (spec
// §6): drop pairings whose planned mount no longer exists, needed after a
// solver re-run wholesale-replaces a layout's auto mounts.
func (s *Server) cleanupOrphanedPairings(w http.ResponseWriter, r *http.Request) {
	venueID := r.URL.Query().Get("venueId")
	if venueID == "" {
		httputil.BadRequest(w, "venueId is required")
		return
	}
	removed, err := s.pairings.SweepOrphans(venueID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]int64{"removed": removed})
}
