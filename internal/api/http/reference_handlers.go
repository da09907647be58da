package httpapi

import (
	"net/http"

	"github.com/google/uuid"
)

type buildingCreateRequest struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type roomCreateRequest struct {
	BuildingID uuid.UUID `json:"buildingId"`
	Name       string    `json:"name"`
}

type categoryCreateRequest struct {
	Name string `json:"name"`
}

type subcategoryCreateRequest struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Name       string    `json:"name"`
}

func (s *Server) listBuildings(w http.ResponseWriter, r *http.Request) {
	items, err := s.referenceSvc.ListBuildings(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"buildings": items})
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	buildingID, err := parseUUIDQuery(r, "buildingId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid buildingId")
		return
	}
	items, err := s.referenceSvc.ListRooms(r.Context(), buildingID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rooms": items})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	items, err := s.referenceSvc.ListCategories(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"categories": items})
}

func (s *Server) listSubcategories(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseUUIDQuery(r, "categoryId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid categoryId")
		return
	}
	items, err := s.referenceSvc.ListSubcategories(r.Context(), categoryID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"subcategories": items})
}

func (s *Server) createBuilding(w http.ResponseWriter, r *http.Request) {
	var req buildingCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	b, err := s.referenceSvc.CreateBuilding(r.Context(), req.Name, req.Code)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req roomCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	room, err := s.referenceSvc.CreateRoom(r.Context(), req.BuildingID, req.Name)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, room)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	c, err := s.referenceSvc.CreateCategory(r.Context(), req.Name)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) createSubcategory(w http.ResponseWriter, r *http.Request) {
	var req subcategoryCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	sc, err := s.referenceSvc.CreateSubcategory(r.Context(), req.CategoryID, req.Name)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sc)
}
