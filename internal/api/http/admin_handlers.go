package httpapi

import (
	"net/http"
)

func (s *Server) runSweep(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	n, err := s.sweeperSvc.Sweep(r.Context(), auth.Actor())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"delayed": n})
}

func (s *Server) listCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := s.sequenceSvc.List(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"counters": counters})
}

func (s *Server) verifyHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "historyId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid historyId")
		return
	}
	res, err := s.auditSvc.Verify(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
