package handlers

import (
	"encoding/json"
	"net/http"

	"dinetrack-ops-service/internal/tables"
	"dinetrack-ops-service/pkg/response"
)

type areaCreateRequest struct {
	Name  string `json:"name"`
	Floor int    `json:"floor"`
}

type areaStatusRequest struct {
	Status tables.AreaStatus `json:"status"`
}

// BranchProfile returns the staff member's branch along with whether a
// delete PIN has been configured.
func (h *Handler) BranchProfile(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	branch, found := h.Branches.Get(branchID)
	if !found {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Branch not found")
		return
	}

	_, hasPin := h.Branches.DeletePinHash(branchID)
	response.Success(w, map[string]any{
		"branch":       branch,
		"hasDeletePin": hasPin,
	})
}

func (h *Handler) AreasList(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	response.Success(w, h.Tables.AreasByBranch(branchID))
}

func (h *Handler) AreaCreate(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}

	var body areaCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	area, err := h.Tables.AddArea(r.Context(), branchID, body.Name, body.Floor)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Created(w, area)
}

func (h *Handler) AreaUpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchID(w, r)
	if !ok {
		return
	}
	id := readPathString(r, "id")

	found := false
	for _, a := range h.Tables.AreasByBranch(branchID) {
		if a.ID == id {
			found = true
			break
		}
	}
	if !found {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Area not found")
		return
	}

	var body areaStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	area, err := h.Tables.UpdateAreaStatus(r.Context(), id, body.Status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, area)
}
