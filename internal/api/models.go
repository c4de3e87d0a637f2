package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/store"
)

// listModels serves GET /models (spec §3/§6): the sensor model catalog.
func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.models.List()
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, models)
}

// createModel serves POST /models (spec §6): add a sensor model to the
// catalog. An ID is generated when the caller omits one.
func (s *Server) createModel(w http.ResponseWriter, r *http.Request) {
	var m store.SensorModel
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if m.Label == "" || m.RangeM <= 0 {
		httputil.BadRequest(w, "label is required and rangeM must be positive")
		return
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if err := s.models.Insert(&m); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

// updateModel serves PUT /models (spec §6): overwrite an existing sensor
// model. The body must carry the ID of the model being updated.
func (s *Server) updateModel(w http.ResponseWriter, r *http.Request) {
	var m store.SensorModel
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if m.ID == "" {
		httputil.BadRequest(w, "id is required")
		return
	}
	if err := s.models.Update(&m); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteJSONOK(w, m)
}
