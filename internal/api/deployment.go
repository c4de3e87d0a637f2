package api

import (
	"net/http"
	"strconv"

	"github.com/hyperspacefleet/commission-core/internal/httputil"
)

// exportConfig serves GET /export-config (spec §6/§4.7 "Export"): build the
// bundle for offline handoff with the mqtt broker replaced by a placeholder.
// Nothing is sent to a gateway and no deployment record is written.
func (s *Server) exportConfig(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	venueID, gatewayID, layoutID := q.Get("venueId"), q.Get("gatewayId"), q.Get("layoutId")
	if venueID == "" || gatewayID == "" || layoutID == "" {
		httputil.BadRequest(w, "venueId, gatewayId, and layoutId are required")
		return
	}
	bundle, err := s.engine.Export(venueID, gatewayID, layoutID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, bundle)
}

// deployHistory serves GET /deploy-history (spec §6): list deployment
// records for a venue, optionally filtered to one gateway.
func (s *Server) deployHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	venueID := q.Get("venueId")
	if venueID == "" {
		httputil.BadRequest(w, "venueId is required")
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	gatewayID := q.Get("gatewayId")
	var (
		records interface{}
		err     error
	)
	if gatewayID != "" {
		records, err = s.records.ListByGateway(venueID, gatewayID, limit)
	} else {
		records, err = s.records.ListByVenue(venueID, limit)
	}
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, records)
}
