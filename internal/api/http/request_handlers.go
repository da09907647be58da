package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/application/lifecycle"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

type priorityRequest struct {
	Priority string `json:"priority"`
}

type servicerRequest struct {
	ServicerID uuid.UUID `json:"servicerId"`
	Reason     string    `json:"reason,omitempty"`
}

type reasonRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type scheduleRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// decodeOptionalBody accepts an empty body as the zero value.
func decodeOptionalBody(r *http.Request, v interface{}) error {
	if err := decodeBody(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// canView reports whether the caller may read r. Requesters see what they
// filed, servicers see what they hold.
func canView(auth *AuthUser, r *request.Request) bool {
	switch auth.Role {
	case user.RoleAdmin:
		return true
	case user.RoleServicer:
		return r.ServicerID != nil && *r.ServicerID == auth.UserID
	default:
		return r.CreatedBy == auth.UserID
	}
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	var input lifecycle.SubmitInput
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	auth := authUserFromContext(r.Context())
	req, err := s.lifecycleSvc.Submit(r.Context(), auth.Actor(), input)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, req)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 200)
	q := r.URL.Query()
	filter := request.Filter{}
	if v := q.Get("status"); v != "" {
		st := request.Status(upper(v))
		if err := request.ValidateStatus(st); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		filter.Status = &st
	}
	var err error
	if filter.ServicerID, err = parseUUIDQuery(r, "servicerId"); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid servicerId")
		return
	}
	if filter.CreatedBy, err = parseUUIDQuery(r, "createdBy"); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid createdBy")
		return
	}
	if filter.BuildingID, err = parseUUIDQuery(r, "buildingId"); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid buildingId")
		return
	}
	if v := q.Get("inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid inactive")
			return
		}
		filter.Inactive = &b
	}
	if q.Get("overdue") == "true" {
		now := time.Now().UTC()
		filter.OverdueAt = &now
	}

	auth := authUserFromContext(r.Context())
	switch auth.Role {
	case user.RoleRequester:
		filter.CreatedBy = &auth.UserID
	case user.RoleServicer:
		filter.ServicerID = &auth.UserID
	}

	items, err := s.lifecycleSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"requests": items, "limit": limit, "offset": offset})
}

// loadVisible parses the path id and returns the request when the caller may
// see it. It writes the error response itself.
func (s *Server) loadVisible(w http.ResponseWriter, r *http.Request) (*request.Request, bool) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return nil, false
	}
	req, err := s.lifecycleSvc.Get(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return nil, false
	}
	if !canView(authUserFromContext(r.Context()), req) {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "request not visible to caller")
		return nil, false
	}
	return req, true
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := s.loadVisible(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (s *Server) getRequestHistory(w http.ResponseWriter, r *http.Request) {
	req, ok := s.loadVisible(w, r)
	if !ok {
		return
	}
	rows, err := s.auditSvc.History(r.Context(), req.RequestID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"history": rows})
}

// transitionFunc runs one lifecycle operation for the authenticated actor.
type transitionFunc func(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error)

// transition is the shared shape of every POST /requests/{id}/<op> handler.
func (s *Server) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "requestId")
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
			return
		}
		req, err := fn(r, authUserFromContext(r.Context()), id)
		if err != nil {
			var bad *badBody
			if errors.As(err, &bad) {
				respondError(w, http.StatusBadRequest, "INVALID_PARAM", bad.Error())
				return
			}
			s.respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, req)
	}
}

type badBody struct{ err error }

func (b *badBody) Error() string { return b.err.Error() }

func decodeInto(r *http.Request, v interface{}, optional bool) error {
	decode := decodeBody
	if optional {
		decode = decodeOptionalBody
	}
	if err := decode(r, v); err != nil {
		return &badBody{err: err}
	}
	return nil
}

func (s *Server) assignPriority(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	var body priorityRequest
	if err := decodeInto(r, &body, false); err != nil {
		return nil, err
	}
	return s.lifecycleSvc.AssignPriority(r.Context(), auth.Actor(), id, request.Priority(upper(body.Priority)))
}

func (s *Server) assignServicer(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	var body servicerRequest
	if err := decodeInto(r, &body, false); err != nil {
		return nil, err
	}
	return s.lifecycleSvc.AssignServicer(r.Context(), auth.Actor(), id, body.ServicerID)
}

func (s *Server) sendBack(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	var body reasonRequest
	if err := decodeInto(r, &body, false); err != nil {
		return nil, err
	}
	return s.lifecycleSvc.SendBack(r.Context(), auth.Actor(), id, deref(body.Reason))
}

func (s *Server) scheduleRequest(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	var body scheduleRequest
	if err := decodeInto(r, &body, false); err != nil {
		return nil, err
	}
	return s.lifecycleSvc.Schedule(r.Context(), auth.Actor(), id, body.Start, body.End)
}

func (s *Server) startRequest(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	return s.lifecycleSvc.Start(r.Context(), auth.Actor(), id)
}

func (s *Server) completeRequest(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	return s.lifecycleSvc.Complete(r.Context(), auth.Actor(), id)
}

func (s *Server) reassignRequest(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	var body servicerRequest
	if err := decodeInto(r, &body, false); err != nil {
		return nil, err
	}
	return s.lifecycleSvc.Reassign(r.Context(), auth.Actor(), id, body.ServicerID, body.Reason)
}

func (s *Server) markDelayed(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	return s.lifecycleSvc.MarkDelayed(r.Context(), auth.Actor(), id)
}

func (s *Server) holdRequest(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	var body reasonRequest
	if err := decodeInto(r, &body, false); err != nil {
		return nil, err
	}
	return s.lifecycleSvc.Hold(r.Context(), auth.Actor(), id, deref(body.Reason))
}

func (s *Server) resumeRequest(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	return s.lifecycleSvc.Resume(r.Context(), auth.Actor(), id)
}

func (s *Server) cancelRequest(r *http.Request, auth *AuthUser, id uuid.UUID) (*request.Request, error) {
	var body reasonRequest
	if err := decodeInto(r, &body, true); err != nil {
		return nil, err
	}
	return s.lifecycleSvc.Cancel(r.Context(), auth.Actor(), id, body.Reason)
}
